// Package memory provides in-memory store implementations. They back the
// unit tests and make the service runnable without a database; semantics
// mirror the postgres implementations exactly.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/store"
)

// ContactStore is a thread-safe in-memory contact store keyed by normalized
// email. A single mutex gives the per-key atomicity MergeUpdate requires.
type ContactStore struct {
	mu       sync.Mutex
	byEmail  map[string]*contact.Contact
	failWith error // when set, every call fails with this error (tests)
}

// NewContactStore returns an empty contact store.
func NewContactStore() *ContactStore {
	return &ContactStore{byEmail: make(map[string]*contact.Contact)}
}

// FailWith makes every subsequent call return err. Pass nil to heal.
func (s *ContactStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// FindByEmail returns a copy of the stored contact, or ErrNotFound.
func (s *ContactStore) FindByEmail(ctx context.Context, email string) (*contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	c, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := cloneContact(c)
	return &cp, nil
}

// Create inserts a new contact from a candidate and attaches the event
// participation for the batch's kind.
func (s *ContactStore) Create(ctx context.Context, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	now := time.Now().UTC()
	c := &contact.Contact{
		ID:        uuid.New().String(),
		Email:     cand.Email,
		FirstName: cand.FirstName,
		LastName:  cand.LastName,
		Company:   cand.Company,
		JobTitle:  cand.JobTitle,
		Phone:     cand.Phone,
		Country:   cand.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}
	contact.ApplyParticipation(c, event)

	s.byEmail[c.Email] = c
	cp := cloneContact(c)
	return &cp, nil
}

// MergeUpdate merges candidate attributes and event participation into the
// stored contact under the store lock, so concurrent batches never lose a
// participation flag.
func (s *ContactStore) MergeUpdate(ctx context.Context, email string, cand contact.Candidate, event contact.EventContext) (*contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	c, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}

	contact.Merge(c, cand, event)
	c.UpdatedAt = time.Now().UTC()

	cp := cloneContact(c)
	return &cp, nil
}

// Count returns the number of stored contacts.
func (s *ContactStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

func cloneContact(c *contact.Contact) contact.Contact {
	cp := *c
	if c.Events != nil {
		cp.Events = make(map[string]contact.Participation, len(c.Events))
		for k, v := range c.Events {
			cp.Events[k] = v
		}
	}
	return cp
}
