package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/parse"
)

// State is one step of the import workflow.
type State string

const (
	StateSelectEvent State = "select_event"
	StateUpload      State = "upload"
	StateMapColumns  State = "map_columns"
	StatePreview     State = "preview"
	StateProcessing  State = "processing"
	StateDone        State = "done"
	StateError       State = "error"
)

// Sentinel errors for workflow violations. Handlers map these to 409/422.
var (
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrMissingEvent      = errors.New("no event selected")
	ErrMappingIncomplete = errors.New("column mapping incomplete")
	ErrBatchProcessing   = errors.New("batch is processing and cannot be abandoned")
)

// ImportBatch is the explicit, serializable state of one orchestration run.
// All batch-scoped data (raw table, mapping, event context) lives here and is
// discarded on reset; only the history entry outlives the batch.
type ImportBatch struct {
	ID        string
	CreatedBy string

	mu       sync.Mutex
	state    State
	lastErr  string
	fileName string
	event    *contact.EventContext
	table    *parse.RawTable
	mapping  ColumnMapping
	outcome  *BatchOutcome

	done chan struct{} // closed when processing reaches a terminal outcome
}

// NewImportBatch starts a workflow at SelectEvent.
func NewImportBatch(createdBy string) *ImportBatch {
	return &ImportBatch{
		ID:        uuid.New().String(),
		CreatedBy: createdBy,
		state:     StateSelectEvent,
		done:      make(chan struct{}),
	}
}

// Snapshot is a read-only view of the batch for API responses.
type Snapshot struct {
	ID        string                `json:"id"`
	State     State                 `json:"state"`
	Error     string                `json:"error,omitempty"`
	FileName  string                `json:"fileName,omitempty"`
	Event     *contact.EventContext `json:"event,omitempty"`
	Headers   []string              `json:"headers,omitempty"`
	RowCount  int                   `json:"rowCount"`
	Mapping   ColumnMapping         `json:"mapping,omitempty"`
	CreatedBy string                `json:"createdBy,omitempty"`
}

// Snapshot returns the current batch state.
func (b *ImportBatch) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		ID:        b.ID,
		State:     b.state,
		Error:     b.lastErr,
		FileName:  b.fileName,
		Event:     b.event,
		CreatedBy: b.CreatedBy,
	}
	if b.table != nil {
		s.Headers = b.table.Headers
		s.RowCount = len(b.table.Rows)
	}
	if b.mapping != nil {
		s.Mapping = b.mapping.Clone()
	}
	return s
}

// State returns the current state.
func (b *ImportBatch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SelectEvent binds the batch to an event and participation kind, moving
// SelectEvent -> Upload.
func (b *ImportBatch) SelectEvent(event contact.EventContext) error {
	if event.EventID == "" || !event.Kind.Valid() {
		return fmt.Errorf("%w: event id and participation kind are required", ErrMissingEvent)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateSelectEvent {
		return fmt.Errorf("%w: select event from %s", ErrInvalidTransition, b.state)
	}

	b.event = &event
	b.state = StateUpload
	return nil
}

// AttachFile parses the uploaded text and, on success, auto-maps the headers
// and moves Upload -> MapColumns. A zero-row or unparsable file moves to
// Error with the reason; the operator recovers by uploading again, so
// AttachFile is also accepted from Error.
func (b *ImportBatch) AttachFile(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateUpload && b.state != StateError {
		return fmt.Errorf("%w: upload from %s", ErrInvalidTransition, b.state)
	}

	table, err := parse.ParseTable(data)
	if err != nil {
		b.state = StateError
		b.lastErr = fmt.Sprintf("could not read %s: %v", name, err)
		return err
	}

	b.table = table
	b.fileName = name
	b.mapping = AutoMap(table.Headers)
	b.state = StateMapColumns
	b.lastErr = ""
	return nil
}

// SetMapping overrides one mapping entry; an empty header clears the field.
// Only allowed before the mapping is confirmed.
func (b *ImportBatch) SetMapping(field Field, header string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateMapColumns {
		return fmt.Errorf("%w: edit mapping from %s", ErrInvalidTransition, b.state)
	}

	if header == "" {
		delete(b.mapping, field)
		return nil
	}
	if !containsHeader(b.table.Headers, header) {
		return fmt.Errorf("%w: unknown column %q", ErrMappingIncomplete, header)
	}
	b.mapping[field] = header
	return nil
}

// ConfirmMapping validates the mapping and moves MapColumns -> Preview.
// Email must be bound; everything else may stay unbound.
func (b *ImportBatch) ConfirmMapping() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateMapColumns {
		return fmt.Errorf("%w: confirm mapping from %s", ErrInvalidTransition, b.state)
	}
	if err := ValidateMapping(b.mapping, b.table.Headers); err != nil {
		return err
	}

	b.state = StatePreview
	return nil
}

// PreviewLimit caps the number of sample candidates in a preview payload.
const PreviewLimit = 10

// Preview summarizes what processing would do, without side effects.
type Preview struct {
	TotalRows  int                 `json:"totalRows"`
	Candidates int                 `json:"candidates"`
	Skipped    int                 `json:"skipped"`
	Duplicates int                 `json:"duplicates"`
	Samples    []contact.Candidate `json:"samples"`
}

// BuildPreview projects the full table read-only and reports counts plus the
// first few candidates. Allowed only in Preview.
func (b *ImportBatch) BuildPreview() (*Preview, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StatePreview {
		return nil, fmt.Errorf("%w: preview from %s", ErrInvalidTransition, b.state)
	}

	proj := Project(b.table, b.mapping)
	_, duplicates := foldDuplicates(proj.Candidates)

	p := &Preview{
		TotalRows:  len(b.table.Rows),
		Candidates: len(proj.Candidates),
		Skipped:    proj.Skipped,
		Duplicates: duplicates,
	}
	for i := 0; i < len(proj.Candidates) && i < PreviewLimit; i++ {
		p.Samples = append(p.Samples, proj.Candidates[i])
	}
	return p, nil
}

// Process runs projection and reconciliation over the full candidate set,
// moving Preview -> Processing -> Done. On total store unavailability the
// batch returns to Preview with table, mapping and event intact so the
// operator can retry without re-uploading; no history is written for an
// aborted run. Once started there is no mid-batch cancellation.
func (b *ImportBatch) Process(ctx context.Context, reconciler *Reconciler) (*BatchOutcome, error) {
	b.mu.Lock()
	if b.state != StatePreview {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: process from %s", ErrInvalidTransition, b.state)
	}
	b.state = StateProcessing
	table, mapping, event := b.table, b.mapping, *b.event
	b.mu.Unlock()

	proj := Project(table, mapping)
	result, failed, err := reconciler.Reconcile(ctx, proj.Candidates, event)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		// Unrecoverable for this run; everything stays in place for retry.
		b.state = StatePreview
		b.lastErr = err.Error()
		return nil, err
	}

	result.Skipped += proj.Skipped
	b.outcome = &BatchOutcome{Result: result, Failed: failed, Event: event}
	b.state = StateDone
	b.lastErr = ""
	close(b.done)
	return b.outcome, nil
}

// Outcome blocks until processing reaches a terminal outcome, then returns
// it. Returns an error if the context expires first.
func (b *ImportBatch) Outcome(ctx context.Context) (*BatchOutcome, error) {
	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome, nil
}

// TotalRows returns the number of data rows in the attached table.
func (b *ImportBatch) TotalRows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.table == nil {
		return 0
	}
	return len(b.table.Rows)
}

// Reset clears all batch-scoped state and returns to SelectEvent. Only valid
// from Done; nothing carries over to the next batch.
func (b *ImportBatch) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateDone {
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, b.state)
	}

	b.table = nil
	b.mapping = nil
	b.event = nil
	b.fileName = ""
	b.outcome = nil
	b.lastErr = ""
	b.done = make(chan struct{})
	b.state = StateSelectEvent
	return nil
}

// Abandonable reports whether the batch may be discarded with no side
// effects. True for every state before Processing.
func (b *ImportBatch) Abandonable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != StateProcessing
}
