package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/prospectline/crm/internal/store"
)

// HistoryStore is an append-only in-memory import history.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []store.HistoryEntry
}

// NewHistoryStore returns an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append records a finished batch. Entries are never mutated afterwards.
func (s *HistoryStore) Append(ctx context.Context, entry store.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns all entries sorted by ImportedAt descending.
func (s *HistoryStore) List(ctx context.Context) ([]store.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.HistoryEntry, len(s.entries))
	copy(out, s.entries)

	sort.Slice(out, func(i, j int) bool {
		return out[i].ImportedAt.After(out[j].ImportedAt)
	})
	return out, nil
}
