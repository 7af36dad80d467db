package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/logging"
	"github.com/prospectline/crm/internal/metrics"
	"github.com/prospectline/crm/internal/store"
)

// ErrBatchNotFound is returned for unknown or expired batch IDs.
var ErrBatchNotFound = errors.New("import batch not found")

// Service coordinates concurrent import batches over shared stores. Each
// operator session gets its own ImportBatch; the service owns their
// lifecycle, the processing concurrency cap, history writes, and metrics.
type Service struct {
	contacts store.ContactStore
	events   store.EventRegistry
	history  store.HistoryStore

	reconciler *Reconciler
	limiter    *ImportLimiter
	metrics    *metrics.Metrics

	processTimeout time.Duration
	sessionTTL     time.Duration

	mu      sync.Mutex
	batches map[string]*ImportBatch
}

// Options configures a Service.
type Options struct {
	Contacts store.ContactStore
	Events   store.EventRegistry
	History  store.HistoryStore
	Metrics  *metrics.Metrics

	// MaxConcurrent caps batches in the processing phase (default 3).
	MaxConcurrent int
	// Workers is the reconciliation fan-out per batch.
	Workers int
	// ProcessTimeout bounds one batch's processing phase (default 10m).
	ProcessTimeout time.Duration
	// SessionTTL is how long a finished batch stays retrievable (default 1h).
	SessionTTL time.Duration
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.ProcessTimeout <= 0 {
		opts.ProcessTimeout = 10 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}

	return &Service{
		contacts:       opts.Contacts,
		events:         opts.Events,
		history:        opts.History,
		reconciler:     NewReconciler(opts.Contacts, opts.Workers),
		limiter:        NewImportLimiter(opts.MaxConcurrent),
		metrics:        opts.Metrics,
		processTimeout: opts.ProcessTimeout,
		sessionTTL:     opts.SessionTTL,
		batches:        make(map[string]*ImportBatch),
	}
}

// Limiter exposes the processing limiter for shutdown draining.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// CreateBatch starts a new import workflow for an operator.
func (s *Service) CreateBatch(createdBy string) *ImportBatch {
	batch := NewImportBatch(createdBy)

	s.mu.Lock()
	s.batches[batch.ID] = batch
	s.mu.Unlock()

	return batch
}

// GetBatch looks up a live batch by ID.
func (s *Service) GetBatch(id string) (*ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

// AbandonBatch discards a batch with no side effects. A batch in the
// processing phase cannot be abandoned.
func (s *Service) AbandonBatch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	if !batch.Abandonable() {
		return ErrBatchProcessing
	}

	delete(s.batches, id)
	return nil
}

// SelectBatchEvent resolves an event ID against the registry and binds it,
// with the participation kind, to the batch.
func (s *Service) SelectBatchEvent(ctx context.Context, batchID, eventID string, kind contact.ParticipationKind) error {
	batch, err := s.GetBatch(batchID)
	if err != nil {
		return err
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	for _, ev := range events {
		if ev.ID == eventID {
			return batch.SelectEvent(contact.EventContext{
				EventID:   ev.ID,
				EventName: ev.Name,
				Kind:      kind,
			})
		}
	}
	return fmt.Errorf("%w: unknown event %q", store.ErrNotFound, eventID)
}

// StartProcessing moves the batch into the processing phase asynchronously.
// It fails fast with ErrTooManyImports when the concurrency cap is reached,
// and with ErrInvalidTransition when the batch is not in Preview. The result
// is retrieved with WaitOutcome.
func (s *Service) StartProcessing(batchID string) error {
	batch, err := s.GetBatch(batchID)
	if err != nil {
		return err
	}
	if batch.State() != StatePreview {
		return fmt.Errorf("%w: process from %s", ErrInvalidTransition, batch.State())
	}

	if err := s.limiter.TryAcquire(); err != nil {
		return err
	}

	go s.runBatch(batch)
	return nil
}

// runBatch drives one batch through processing to its terminal outcome and
// writes the history entry. Runs detached from the originating request; once
// started there is no cancellation path short of the timeout.
func (s *Service) runBatch(batch *ImportBatch) {
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), s.processTimeout)
	defer cancel()

	log := logging.WithFields(ctx, "batch_id", batch.ID)

	if s.metrics != nil {
		s.metrics.ActiveImports.Inc()
		defer s.metrics.ActiveImports.Dec()
	}

	totalRows := batch.TotalRows()
	started := time.Now()

	outcome, err := batch.Process(ctx, s.reconciler)
	if err != nil {
		// Batch returned to Preview with its state intact; the operator
		// retries from there. No history for an aborted run.
		log.Error("batch processing aborted", "error", err)
		return
	}

	elapsed := time.Since(started)
	log.Info("batch processed",
		"event", outcome.Event.EventName,
		"total_rows", totalRows,
		"imported", outcome.Result.Imported,
		"updated", outcome.Result.Updated,
		"skipped", outcome.Result.Skipped,
		"duplicates", outcome.Result.Duplicates,
		"duration", elapsed,
	)

	status := store.StatusCompleted
	if len(outcome.Failed) > 0 {
		status = store.StatusCompletedWithErrors
	}

	if s.metrics != nil {
		s.metrics.ProcessSeconds.Observe(elapsed.Seconds())
		s.metrics.RecordBatch(string(status),
			outcome.Result.Imported, outcome.Result.Updated,
			outcome.Result.Skipped, outcome.Result.Duplicates)
	}

	entry := store.HistoryEntry{
		ID:         uuid.New().String(),
		ImportedAt: time.Now().UTC(),
		ImportedBy: batch.CreatedBy,
		EventName:  outcome.Event.EventName,
		TotalRows:  totalRows,
		Imported:   outcome.Result.Imported,
		Updated:    outcome.Result.Updated,
		Skipped:    outcome.Result.Skipped,
		Duplicates: outcome.Result.Duplicates,
		Status:     status,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		log.Error("failed to record import history", "error", err)
	}

	s.expireAfter(batch.ID, s.sessionTTL)
}

// WaitOutcome blocks until the batch reaches its terminal outcome or the
// context expires.
func (s *Service) WaitOutcome(ctx context.Context, batchID string) (*BatchOutcome, error) {
	batch, err := s.GetBatch(batchID)
	if err != nil {
		return nil, err
	}
	return batch.Outcome(ctx)
}

// ListEvents returns the selectable events.
func (s *Service) ListEvents(ctx context.Context) ([]store.Event, error) {
	return s.events.ListEvents(ctx)
}

// History returns past import runs, most recent first.
func (s *Service) History(ctx context.Context) ([]store.HistoryEntry, error) {
	return s.history.List(ctx)
}

// expireAfter drops a finished batch from the session map once its TTL
// passes, so completed results stay retrievable for a while without the map
// growing forever.
func (s *Service) expireAfter(id string, ttl time.Duration) {
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		delete(s.batches, id)
		s.mu.Unlock()
	})
}
