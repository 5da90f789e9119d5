package webui

import (
	"sync"
	"time"
)

// RateLimiter blocks a client after too many failed logins inside a window.
type RateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attemptWindow
	maxAttempts int
	window      time.Duration
	block       time.Duration
	now         func() time.Time
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter allows maxAttempts failures per window and blocks for
// block once that is exceeded.
func NewRateLimiter(maxAttempts int, window, block time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts:    make(map[string]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
		now:         time.Now,
	}
}

// Allow reports whether key may try again and, if not, for how long it is
// blocked.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[key]
	if !ok {
		return true, 0
	}
	now := r.now()
	if !now.Before(a.resetAt) {
		delete(r.attempts, key)
		return true, 0
	}
	if a.count >= r.maxAttempts {
		return false, a.resetAt.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt for key.
func (r *RateLimiter) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	a, ok := r.attempts[key]
	if !ok || !now.Before(a.resetAt) {
		r.attempts[key] = &attemptWindow{count: 1, resetAt: now.Add(r.window)}
		return
	}
	a.count++
	if a.count == r.maxAttempts {
		a.resetAt = now.Add(r.block)
	}
}

// Reset forgets key, typically after a successful login.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	delete(r.attempts, key)
	r.mu.Unlock()
}

// Cleanup drops expired entries and returns how many were removed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for k, a := range r.attempts {
		if !now.Before(a.resetAt) {
			delete(r.attempts, k)
			removed++
		}
	}
	return removed
}

func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}
