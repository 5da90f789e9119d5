package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

// Manager ties together signal handling, in-flight operation tracking and
// ordered cleanup.
//
//	m := shutdown.NewManager(logger)
//	m.Register("database", shutdown.PriorityStorage, func(ctx context.Context) error {
//	    return app.Close(ctx)
//	})
//	m.Start()
//	<-m.Context().Done()
//	m.Shutdown()
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)
	signals []os.Signal

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	counter  *SignalCounter
	sigChan  chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds the whole shutdown sequence. Default 60s.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithExitFunc replaces os.Exit for the forced exit on a second signal.
func WithExitFunc(exit func(code int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

// WithSignals overrides the signals that start a shutdown.
func WithSignals(sigs ...os.Signal) ManagerOption {
	return func(m *Manager) {
		m.signals = sigs
	}
}

// NewManager creates a manager whose context is cancelled on the first
// SIGINT or SIGTERM once Start has been called.
func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  60 * time.Second,
		exit:     os.Exit,
		signals:  []os.Signal{os.Interrupt, syscall.SIGTERM},
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.counter = NewSignalCounter(2, func() {
		m.logger.Warn("second signal received, exiting immediately")
		m.exit(core.ExitCodeForced)
	})
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler. See the Priority constants.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown handler", zap.String("name", name), zap.Int("priority", priority))
}

// Start begins listening for signals. Later calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, m.signals...)
	go m.listen()
}

// listen keeps counting after the first signal so a second one can force
// an exit while cleanup is still running.
func (m *Manager) listen() {
	for sig := range m.sigChan {
		m.handleSignal(sig)
	}
}

func (m *Manager) handleSignal(sig os.Signal) {
	if m.counter.Increment() == 1 {
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		m.cancel()
	}
}

// Trigger starts a shutdown without a signal.
func (m *Manager) Trigger() {
	m.cancel()
}

// Shutdown refuses new operations, waits for running ones, then runs the
// cleanup handlers with whatever time is left. Only the first call runs.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()
	m.cancel()

	start := time.Now()
	m.tracker.Close()
	if active := m.tracker.ActiveCount(); active > 0 {
		m.logger.Info("waiting for in-flight generations", zap.Int64("active", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("in-flight generations did not finish",
			zap.Int64("remaining", m.tracker.ActiveCount()),
			zap.Duration("waited", time.Since(start)))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("running cleanup handlers", zap.Strings("handlers", m.registry.Names()))
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("cleanup handler failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Info("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// WrapOperation runs fn as a tracked operation. It returns ErrTrackerClosed
// without calling fn once shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("operation rejected during shutdown", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether Shutdown has been called.
func (m *Manager) IsShuttingDown() bool {
	return m.tracker.IsClosed()
}

func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
