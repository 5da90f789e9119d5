package shutdown

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"thumbnail_studio/core"
)

// Cleanup priorities used by the studio. Lower runs first.
const (
	PriorityHTTP    = 10 // stop accepting requests, close websockets
	PriorityWorkers = 20 // background schedulers
	PriorityStorage = 30 // drain metrics writer, close the database
	PriorityLogging = 40 // flush logs last
)

type handler struct {
	name     string
	priority int
	fn       core.ShutdownFunc
}

// Registry holds cleanup handlers. Handlers with equal priority run in
// registration order.
type Registry struct {
	mu       sync.Mutex
	handlers []handler
	ran      bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. It is ignored once Run has been called.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ran || fn == nil {
		return
	}
	r.handlers = append(r.handlers, handler{name: name, priority: priority, fn: fn})
}

func (r *Registry) sorted() []handler {
	out := slices.Clone(r.handlers)
	slices.SortStableFunc(out, func(a, b handler) int {
		return a.priority - b.priority
	})
	return out
}

// Run calls every handler once, in priority order, and returns the errors
// of the ones that failed, each prefixed with the handler name. Only the
// first call does anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return nil
	}
	r.ran = true
	handlers := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errs
}

// Names returns handler names in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	handlers := r.sorted()
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.name
	}
	return names
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
