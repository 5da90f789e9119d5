package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	return NewManager(logging.NewFromZap(zaptest.NewLogger(t)), opts...)
}

func TestManager_ShutdownWaitsForOperations(t *testing.T) {
	m := newTestManager(t, WithTimeout(5*time.Second))

	var closed atomic.Bool
	m.Register("database", PriorityStorage, func(ctx context.Context) error {
		closed.Store(true)
		return nil
	})

	release := make(chan struct{})
	started := make(chan struct{})
	var finished atomic.Bool
	go m.WrapOperation(context.Background(), "generate", func(ctx context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	<-started
	if m.ActiveOperations() != 1 {
		t.Errorf("ActiveOperations() = %d", m.ActiveOperations())
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if !finished.Load() {
		t.Error("Shutdown returned before the operation finished")
	}
	if !closed.Load() {
		t.Error("cleanup handler not run")
	}
	if m.Context().Err() == nil {
		t.Error("context not cancelled")
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
}

func TestManager_RejectsAfterShutdown(t *testing.T) {
	m := newTestManager(t)
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	called := false
	err := m.WrapOperation(context.Background(), "generate", func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrTrackerClosed) || called {
		t.Errorf("WrapOperation() = %v, called = %v", err, called)
	}
	if !m.IsShuttingDown() {
		t.Error("IsShuttingDown() = false")
	}
}

func TestManager_WrapOperationCancelledContext(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.WrapOperation(ctx, "generate", func(ctx context.Context) error {
		t.Error("fn called with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WrapOperation() = %v", err)
	}
}

func TestManager_ShutdownJoinsErrors(t *testing.T) {
	m := newTestManager(t)
	boom := errors.New("close failed")
	m.Register("database", PriorityStorage, func(ctx context.Context) error { return boom })
	m.Register("logs", PriorityLogging, func(ctx context.Context) error { return nil })

	err := m.Shutdown()
	if !errors.Is(err, boom) {
		t.Errorf("Shutdown() = %v, want wrapped handler error", err)
	}
	if got := m.RegisteredHandlers(); len(got) != 2 || got[0] != "database" {
		t.Errorf("RegisteredHandlers() = %v", got)
	}
}

func TestManager_SignalCancelsContextAndSecondForcesExit(t *testing.T) {
	exited := make(chan int, 1)
	m := newTestManager(t,
		WithSignals(syscall.SIGUSR1),
		WithExitFunc(func(code int) { exited <- code }))
	m.Start()
	m.Start()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-m.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by signal")
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case code := <-exited:
		if code != core.ExitCodeForced {
			t.Errorf("exit code = %d, want %d", code, core.ExitCodeForced)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}
	m.Shutdown()
}

func TestManager_Trigger(t *testing.T) {
	m := newTestManager(t)
	m.Trigger()
	select {
	case <-m.Context().Done():
	default:
		t.Error("Trigger() did not cancel the context")
	}
}
