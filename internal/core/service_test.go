package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/store"
	"github.com/prospectline/crm/internal/store/memory"
)

type serviceFixture struct {
	service  *Service
	contacts *memory.ContactStore
	history  *memory.HistoryStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	contacts := memory.NewContactStore()
	history := memory.NewHistoryStore()
	service := NewService(Options{
		Contacts: contacts,
		Events: memory.NewEventRegistry(
			store.Event{ID: "e1", Name: "Spring Summit"},
			store.Event{ID: "e2", Name: "Autumn Webinar"},
		),
		History:       history,
		MaxConcurrent: 2,
		Workers:       2,
	})
	return &serviceFixture{service: service, contacts: contacts, history: history}
}

// runImport drives one batch from creation through processing.
func (f *serviceFixture) runImport(t *testing.T, csv string) *BatchOutcome {
	t.Helper()
	ctx := context.Background()

	batch := f.service.CreateBatch("tester")
	if err := f.service.SelectBatchEvent(ctx, batch.ID, "e1", contact.Registered); err != nil {
		t.Fatalf("SelectBatchEvent() error = %v", err)
	}
	if err := batch.AttachFile("contacts.csv", []byte(csv)); err != nil {
		t.Fatalf("AttachFile() error = %v", err)
	}
	if err := batch.ConfirmMapping(); err != nil {
		t.Fatalf("ConfirmMapping() error = %v", err)
	}
	if err := f.service.StartProcessing(batch.ID); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	outcome, err := f.service.WaitOutcome(waitCtx, batch.ID)
	if err != nil {
		t.Fatalf("WaitOutcome() error = %v", err)
	}
	return outcome
}

// ----------------------------------------------------------------------------
// Service Tests
// ----------------------------------------------------------------------------

func TestService_FullImport(t *testing.T) {
	f := newServiceFixture(t)

	outcome := f.runImport(t, sampleCSV)

	if outcome.Result.Imported != 2 || outcome.Result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 imported 1 skipped", outcome.Result)
	}
	if outcome.Event.EventName != "Spring Summit" {
		t.Errorf("event = %q, want resolved name", outcome.Event.EventName)
	}
	if f.contacts.Count() != 2 {
		t.Errorf("contacts = %d, want 2", f.contacts.Count())
	}
}

func TestService_HistoryWrittenOncePerRun(t *testing.T) {
	f := newServiceFixture(t)

	f.runImport(t, sampleCSV)
	// history.Append runs in the processing goroutine after the outcome is
	// published; give it a moment.
	waitForHistory(t, f.history, 1)

	entries, err := f.service.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.Status != store.StatusCompleted {
		t.Errorf("Status = %q, want %q", e.Status, store.StatusCompleted)
	}
	if e.EventName != "Spring Summit" || e.ImportedBy != "tester" {
		t.Errorf("entry = %+v", e)
	}
	if e.TotalRows != 3 || e.Imported != 2 || e.Skipped != 1 {
		t.Errorf("counts = %+v, want 3/2/1", e)
	}

	// A second identical run appends a second entry, all rows updated.
	f.runImport(t, sampleCSV)
	waitForHistory(t, f.history, 2)

	entries, _ = f.service.History(context.Background())
	if entries[0].Updated != 2 || entries[0].Imported != 0 {
		t.Errorf("second entry = %+v, want 2 updated", entries[0])
	}
}

func TestService_WriteFailuresDowngradeStatus(t *testing.T) {
	f := newServiceFixture(t)
	f.contacts.FailWith(errors.New("constraint violation"))

	outcome := f.runImport(t, sampleCSV)
	if len(outcome.Failed) != 2 {
		t.Fatalf("len(Failed) = %d, want 2", len(outcome.Failed))
	}

	waitForHistory(t, f.history, 1)
	entries, _ := f.service.History(context.Background())
	if entries[0].Status != store.StatusCompletedWithErrors {
		t.Errorf("Status = %q, want %q", entries[0].Status, store.StatusCompletedWithErrors)
	}
}

func TestService_UnavailableStoreWritesNoHistory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	batch := f.service.CreateBatch("tester")
	if err := f.service.SelectBatchEvent(ctx, batch.ID, "e1", contact.Registered); err != nil {
		t.Fatal(err)
	}
	if err := batch.AttachFile("contacts.csv", []byte(sampleCSV)); err != nil {
		t.Fatal(err)
	}
	if err := batch.ConfirmMapping(); err != nil {
		t.Fatal(err)
	}

	f.contacts.FailWith(errors.Join(store.ErrUnavailable, errors.New("dial tcp")))
	if err := f.service.StartProcessing(batch.ID); err != nil {
		t.Fatal(err)
	}

	// Wait for the batch to bounce back to Preview.
	deadline := time.Now().Add(2 * time.Second)
	for batch.State() != StatePreview {
		if time.Now().After(deadline) {
			t.Fatalf("batch stuck in %s", batch.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries, _ := f.service.History(ctx)
	if len(entries) != 0 {
		t.Errorf("aborted run wrote history: %+v", entries)
	}
}

func TestService_SelectUnknownEvent(t *testing.T) {
	f := newServiceFixture(t)
	batch := f.service.CreateBatch("tester")

	err := f.service.SelectBatchEvent(context.Background(), batch.ID, "nope", contact.Registered)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_BatchLookupAndAbandon(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.service.GetBatch("missing"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("GetBatch() error = %v, want ErrBatchNotFound", err)
	}

	batch := f.service.CreateBatch("tester")
	if err := f.service.AbandonBatch(batch.ID); err != nil {
		t.Fatalf("AbandonBatch() error = %v", err)
	}
	if _, err := f.service.GetBatch(batch.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Error("abandoned batch still retrievable")
	}
}

func TestService_ConcurrencyCap(t *testing.T) {
	f := newServiceFixture(t)

	// Hold every slot so the next start is rejected.
	if err := f.service.Limiter().TryAcquire(); err != nil {
		t.Fatal(err)
	}
	if err := f.service.Limiter().TryAcquire(); err != nil {
		t.Fatal(err)
	}
	defer f.service.Limiter().Release()
	defer f.service.Limiter().Release()

	batch := f.service.CreateBatch("tester")
	ctx := context.Background()
	if err := f.service.SelectBatchEvent(ctx, batch.ID, "e1", contact.Registered); err != nil {
		t.Fatal(err)
	}
	if err := batch.AttachFile("contacts.csv", []byte(sampleCSV)); err != nil {
		t.Fatal(err)
	}
	if err := batch.ConfirmMapping(); err != nil {
		t.Fatal(err)
	}

	if err := f.service.StartProcessing(batch.ID); !errors.Is(err, ErrTooManyImports) {
		t.Errorf("StartProcessing() error = %v, want ErrTooManyImports", err)
	}
}

func TestService_StartProcessingRequiresPreview(t *testing.T) {
	f := newServiceFixture(t)
	batch := f.service.CreateBatch("tester")

	if err := f.service.StartProcessing(batch.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("StartProcessing() error = %v, want ErrInvalidTransition", err)
	}
}

func waitForHistory(t *testing.T, h *memory.HistoryStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := h.List(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) >= want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("history has %d entries, want %d", len(entries), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
