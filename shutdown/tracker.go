// Package shutdown coordinates graceful termination of the studio: it stops
// accepting new generations, waits for the running one, then runs the
// registered cleanup handlers in priority order.
package shutdown

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrTrackerClosed is returned when an operation starts after shutdown began.
	ErrTrackerClosed = errors.New("shutdown: operation tracker is closed")
	// ErrWaitTimeout is returned when in-flight operations outlive the wait.
	ErrWaitTimeout = errors.New("shutdown: operations did not finish in time")
)

// OperationTracker counts in-flight operations. Once closed it refuses new
// ones; Wait returns when the count drops to zero.
type OperationTracker struct {
	mu     sync.Mutex
	active int64
	closed bool
	idle   chan struct{}
}

// NewOperationTracker creates an open tracker.
func NewOperationTracker() *OperationTracker {
	idle := make(chan struct{})
	close(idle)
	return &OperationTracker{idle: idle}
}

// Start registers an operation. It reports false when the tracker is closed;
// otherwise the caller must call Done exactly once.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.active == 0 {
		t.idle = make(chan struct{})
	}
	t.active++
	return true
}

// Done marks an operation as finished.
func (t *OperationTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == 0 {
		return
	}
	t.active--
	if t.active == 0 {
		close(t.idle)
	}
}

// Wait blocks until no operation is active or timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}

// Close stops new operations from starting.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *OperationTracker) ActiveCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
