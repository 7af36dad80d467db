package memory

import (
	"context"
	"sync"

	"github.com/prospectline/crm/internal/store"
)

// EventRegistry is a fixed in-memory event list.
type EventRegistry struct {
	mu     sync.RWMutex
	events []store.Event
}

// NewEventRegistry returns a registry pre-seeded with the given events.
func NewEventRegistry(events ...store.Event) *EventRegistry {
	return &EventRegistry{events: events}
}

// ListEvents returns a copy of the registry contents.
func (r *EventRegistry) ListEvents(ctx context.Context) ([]store.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Event, len(r.events))
	copy(out, r.events)
	return out, nil
}
