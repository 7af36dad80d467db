package core

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prospectline/crm/internal/contact"
	"github.com/prospectline/crm/internal/store"
)

// DefaultReconcileWorkers caps concurrent store round-trips during
// reconciliation. Distinct emails carry no ordering requirement between each
// other; all operations for one email stay on one goroutine.
const DefaultReconcileWorkers = 8

// Reconciler merges a batch's candidate set into the contact store.
type Reconciler struct {
	contacts store.ContactStore
	workers  int
}

// NewReconciler creates a Reconciler. workers <= 0 selects the default.
func NewReconciler(contacts store.ContactStore, workers int) *Reconciler {
	if workers <= 0 {
		workers = DefaultReconcileWorkers
	}
	return &Reconciler{contacts: contacts, workers: workers}
}

// Reconcile folds in-batch duplicates and then, per distinct email, either
// creates a new contact or merges into the existing one, recording event
// participation. Individual store failures are caught and reported as failed
// items; only ErrUnavailable aborts the run, and then the returned error
// wraps it so the orchestrator can preserve state for retry.
//
// Re-running the same batch is idempotent: the second run reports every
// candidate as updated and leaves stored attributes unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []contact.Candidate, event contact.EventContext) (ImportResult, []FailedItem, error) {
	distinct, duplicates := foldDuplicates(candidates)

	var (
		mu     sync.Mutex
		result = ImportResult{Duplicates: duplicates}
		failed []FailedItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, cand := range distinct {
		cand := cand
		g.Go(func() error {
			outcome, err := r.reconcileOne(gctx, cand, event)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil && errors.Is(err, store.ErrUnavailable):
				return err // cancels the group; batch aborts
			case err != nil:
				result.Skipped++
				failed = append(failed, FailedItem{Email: cand.Email, Reason: err.Error()})
			case outcome == outcomeCreated:
				result.Imported++
			default:
				result.Updated++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ImportResult{}, nil, err
	}

	return result, failed, nil
}

type reconcileOutcome int

const (
	outcomeCreated reconcileOutcome = iota
	outcomeMerged
)

// reconcileOne performs the read-then-create-or-merge decision for a single
// distinct email.
func (r *Reconciler) reconcileOne(ctx context.Context, cand contact.Candidate, event contact.EventContext) (reconcileOutcome, error) {
	existing, err := r.contacts.FindByEmail(ctx, cand.Email)
	switch {
	case err == nil && existing != nil:
		if _, err := r.contacts.MergeUpdate(ctx, cand.Email, cand, event); err != nil {
			return outcomeMerged, err
		}
		return outcomeMerged, nil

	case errors.Is(err, store.ErrNotFound):
		if _, err := r.contacts.Create(ctx, cand, event); err != nil {
			return outcomeCreated, err
		}
		return outcomeCreated, nil

	default:
		return outcomeMerged, err
	}
}

// foldDuplicates collapses repeated emails within one batch. The last
// occurrence wins for attribute values; every extra occurrence counts once
// toward duplicates. First-appearance order is preserved.
func foldDuplicates(candidates []contact.Candidate) ([]contact.Candidate, int) {
	index := make(map[string]int, len(candidates))
	var distinct []contact.Candidate
	duplicates := 0

	for _, cand := range candidates {
		if i, seen := index[cand.Email]; seen {
			distinct[i] = cand
			duplicates++
			continue
		}
		index[cand.Email] = len(distinct)
		distinct = append(distinct, cand)
	}

	return distinct, duplicates
}
