// Package store defines the persistence boundary of the import pipeline:
// the contact store, the read-only event registry, and the append-only
// import history. Implementations live in the memory and postgres
// subpackages; the pipeline only ever sees these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/prospectline/crm/internal/contact"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ErrUnavailable signals total store/network unavailability. The pipeline
// treats it as fatal for the batch (return to Preview for retry) rather than
// as a per-item failure.
var ErrUnavailable = errors.New("store unavailable")

// ContactStore is the external contact persistence collaborator.
//
// MergeUpdate must merge against the latest stored state under per-key
// atomicity (lock or transaction): the pipeline never issues a blind
// overwrite, and participation flags only ever union to true.
type ContactStore interface {
	FindByEmail(ctx context.Context, normalizedEmail string) (*contact.Contact, error)
	Create(ctx context.Context, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error)
	MergeUpdate(ctx context.Context, normalizedEmail string, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error)
}

// Event is a registry entry selectable at the start of a batch.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventRegistry lists existing events. The pipeline treats it as read-only.
type EventRegistry interface {
	ListEvents(ctx context.Context) ([]Event, error)
}

// HistoryStatus is the terminal status of a finished batch.
type HistoryStatus string

const (
	StatusCompleted           HistoryStatus = "completed"
	StatusCompletedWithErrors HistoryStatus = "completed_with_errors"
)

// HistoryEntry is the write-once audit record of one finished import batch,
// the only artifact that outlives the batch. Classified is always written as
// zero by the pipeline; the downstream persona job fills it in later.
type HistoryEntry struct {
	ID         string        `json:"id"`
	ImportedAt time.Time     `json:"importedAt"`
	ImportedBy string        `json:"importedBy"`
	EventName  string        `json:"eventName,omitempty"`
	TotalRows  int           `json:"totalRows"`
	Imported   int           `json:"imported"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Duplicates int           `json:"duplicates"`
	Classified int           `json:"classified"`
	Status     HistoryStatus `json:"status"`
}

// HistoryStore persists the audit trail. Append-only: entries are never
// mutated after Append.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	// List returns entries sorted by ImportedAt descending.
	List(ctx context.Context) ([]HistoryEntry, error)
}
