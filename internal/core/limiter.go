package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when the concurrent processing cap is hit.
var ErrTooManyImports = errors.New("too many imports in progress")

// ImportLimiter bounds the number of batches processing at once. Uploads and
// mapping edits are cheap and unlimited; only the reconciliation phase takes
// a slot.
type ImportLimiter struct {
	slots chan struct{}

	mu     sync.Mutex
	active int
}

// NewImportLimiter creates a limiter with the given number of slots.
func NewImportLimiter(max int) *ImportLimiter {
	if max <= 0 {
		max = 1
	}
	return &ImportLimiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or the context is done.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking, returning ErrTooManyImports when
// none is free.
func (l *ImportLimiter) TryAcquire() error {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	default:
		return ErrTooManyImports
	}
}

// Release frees a slot. Calling Release without a matching acquire is a bug;
// the extra call is ignored.
func (l *ImportLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == 0 {
		return
	}
	l.active--
	<-l.slots
}

// Active reports the number of batches currently holding a slot.
func (l *ImportLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until every in-flight batch has released its slot or
// the timeout elapses. Used during graceful shutdown so a terminal outcome is
// never lost mid-write.
func (l *ImportLimiter) WaitForDrain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if l.Active() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
