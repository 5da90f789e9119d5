package studio

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a SessionRun.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunCached    RunStatus = "cached"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether s ends a run.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunCached || s == RunFailed
}

// SessionRun is one generation attempt as shown in the session timeline.
// Runs live in memory only.
type SessionRun struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	CacheKey  string    `json:"cacheKey"`
	Timestamp int64     `json:"timestamp"`
	Status    RunStatus `json:"status"`
	Note      string    `json:"note,omitempty"`
}

// DefaultSessionLogCapacity bounds the in-memory run log.
const DefaultSessionLogCapacity = 200

// SessionLog is a bounded, newest-first list of runs.
type SessionLog struct {
	mu       sync.RWMutex
	runs     []SessionRun
	capacity int
	now      func() time.Time
}

// NewSessionLog creates a log that keeps at most capacity runs.
func NewSessionLog(capacity int) *SessionLog {
	if capacity <= 0 {
		capacity = DefaultSessionLogCapacity
	}
	return &SessionLog{capacity: capacity, now: time.Now}
}

// Start records a new pending run and returns it.
func (l *SessionLog) Start(prompt, cacheKey string) SessionRun {
	run := SessionRun{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		CacheKey:  cacheKey,
		Timestamp: l.now().UnixMilli(),
		Status:    RunPending,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append([]SessionRun{run}, l.runs...)
	if len(l.runs) > l.capacity {
		l.runs = l.runs[:l.capacity]
	}
	return run
}

// Finish moves a pending run to a terminal status. A run can be finished
// only once.
func (l *SessionLog) Finish(id string, status RunStatus, note string) (SessionRun, error) {
	if !status.Terminal() {
		return SessionRun{}, fmt.Errorf("studio: %q is not a terminal status", status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.runs {
		if l.runs[i].ID != id {
			continue
		}
		if l.runs[i].Status != RunPending {
			return l.runs[i], ErrRunFinalized
		}
		l.runs[i].Status = status
		l.runs[i].Note = note
		return l.runs[i], nil
	}
	return SessionRun{}, ErrRunNotFound
}

// Get returns the run with id.
func (l *SessionLog) Get(id string) (SessionRun, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.runs {
		if r.ID == id {
			return r, true
		}
	}
	return SessionRun{}, false
}

// List returns a copy of all runs, newest first.
func (l *SessionLog) List() []SessionRun {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]SessionRun(nil), l.runs...)
}

// Len returns the number of runs held.
func (l *SessionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.runs)
}
