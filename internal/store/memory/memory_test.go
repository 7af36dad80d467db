package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/store"
)

var event = contact.EventContext{EventID: "e1", EventName: "Summit", Kind: contact.Registered}

// ----------------------------------------------------------------------------
// ContactStore Tests
// ----------------------------------------------------------------------------

func TestContactStore_CreateAndFind(t *testing.T) {
	s := NewContactStore()
	ctx := context.Background()

	created, err := s.Create(ctx, contact.Candidate{Email: "ann@acme.com", FirstName: "Ann"}, event)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() assigned no ID")
	}
	if !created.Events["e1"].Registered {
		t.Error("Create() did not record participation")
	}

	found, err := s.FindByEmail(ctx, "ann@acme.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if found.ID != created.ID || found.FirstName != "Ann" {
		t.Errorf("found = %+v, want created contact", found)
	}

	if _, err := s.FindByEmail(ctx, "nobody@acme.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindByEmail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestContactStore_MergeUpdate(t *testing.T) {
	s := NewContactStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, contact.Candidate{Email: "ann@acme.com", FirstName: "Ann"}, event); err != nil {
		t.Fatal(err)
	}

	attended := event
	attended.Kind = contact.Attended
	merged, err := s.MergeUpdate(ctx, "ann@acme.com", contact.Candidate{Email: "ann@acme.com", Company: "Acme"}, attended)
	if err != nil {
		t.Fatalf("MergeUpdate() error = %v", err)
	}

	if merged.FirstName != "Ann" || merged.Company != "Acme" {
		t.Errorf("merged = %+v", merged)
	}
	p := merged.Events["e1"]
	if !p.Registered || !p.Attended {
		t.Errorf("participation = %+v, want both flags", p)
	}

	if _, err := s.MergeUpdate(ctx, "nobody@acme.com", contact.Candidate{}, event); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("MergeUpdate(missing) error = %v, want ErrNotFound", err)
	}
}

func TestContactStore_ReturnsCopies(t *testing.T) {
	s := NewContactStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, contact.Candidate{Email: "ann@acme.com"}, event); err != nil {
		t.Fatal(err)
	}

	c, _ := s.FindByEmail(ctx, "ann@acme.com")
	c.FirstName = "Mutated"
	c.Events["e1"] = contact.Participation{EventID: "e1", Attended: true}

	again, _ := s.FindByEmail(ctx, "ann@acme.com")
	if again.FirstName == "Mutated" {
		t.Error("caller mutation leaked into store")
	}
	if again.Events["e1"].Attended {
		t.Error("caller map mutation leaked into store")
	}
}

func TestContactStore_FailWith(t *testing.T) {
	s := NewContactStore()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailWith(boom)
	if _, err := s.Create(ctx, contact.Candidate{Email: "x@y.com"}, event); !errors.Is(err, boom) {
		t.Errorf("Create() error = %v, want boom", err)
	}

	s.FailWith(nil)
	if _, err := s.Create(ctx, contact.Candidate{Email: "x@y.com"}, event); err != nil {
		t.Errorf("Create() after heal error = %v", err)
	}
}

// ----------------------------------------------------------------------------
// HistoryStore Tests
// ----------------------------------------------------------------------------

func TestHistoryStore_ListDescending(t *testing.T) {
	s := NewHistoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Append(ctx, store.HistoryEntry{
			ImportedAt: base.Add(time.Duration(i) * time.Hour),
			EventName:  "Summit",
			TotalRows:  i,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].TotalRows != 2 || entries[2].TotalRows != 0 {
		t.Errorf("not sorted most recent first: %+v", entries)
	}
}

// ----------------------------------------------------------------------------
// EventRegistry Tests
// ----------------------------------------------------------------------------

func TestEventRegistry_ListEvents(t *testing.T) {
	r := NewEventRegistry(
		store.Event{ID: "e1", Name: "Summit"},
		store.Event{ID: "e2", Name: "Webinar"},
	)

	events, err := r.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}

	// Mutating the returned slice must not affect the registry.
	events[0].Name = "Hacked"
	again, _ := r.ListEvents(context.Background())
	if again[0].Name == "Hacked" {
		t.Error("caller mutation leaked into registry")
	}
}
