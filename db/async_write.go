package db

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultChannelCapacity is the number of writes buffered before Write drops.
	DefaultChannelCapacity = 100

	// DefaultDrainTimeout bounds how long Stop waits for buffered writes.
	DefaultDrainTimeout = 30 * time.Second
)

// WriteOperation is a queued write.
type WriteOperation struct {
	Data      interface{}
	Timestamp time.Time
}

// WriteHandler performs a queued write.
type WriteHandler func(op WriteOperation) error

// AsyncWriter moves writes off the caller's goroutine. A single worker
// drains the queue in order; Stop flushes whatever is still buffered.
//
// Example:
//
//	writer := db.NewAsyncWriter(repo.WriteHandler(5*time.Second), db.DefaultAsyncWriterConfig())
//	writer.Start()
//	defer writer.Stop()
//	writer.Write(record)
type AsyncWriter struct {
	writeChan chan WriteOperation
	handler   WriteHandler
	onError   func(op WriteOperation, err error)

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	stopped bool
}

// AsyncWriterConfig configures an AsyncWriter.
type AsyncWriterConfig struct {
	ChannelCapacity int

	// OnError is called with every failed write. Optional.
	OnError func(op WriteOperation, err error)
}

func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{ChannelCapacity: DefaultChannelCapacity}
}

// NewAsyncWriter creates a stopped writer.
func NewAsyncWriter(handler WriteHandler, config AsyncWriterConfig) *AsyncWriter {
	capacity := config.ChannelCapacity
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		writeChan: make(chan WriteOperation, capacity),
		handler:   handler,
		onError:   config.OnError,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker. Calling it again is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.run()
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case op := <-w.writeChan:
			w.handle(op)
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		select {
		case op := <-w.writeChan:
			w.handle(op)
		default:
			return
		}
	}
}

func (w *AsyncWriter) handle(op WriteOperation) {
	if err := w.handler(op); err != nil && w.onError != nil {
		w.onError(op, err)
	}
}

// Write queues data without blocking. It reports false when the queue is
// full or the writer has stopped.
func (w *AsyncWriter) Write(data interface{}) bool {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return false
	}

	select {
	case w.writeChan <- WriteOperation{Data: data, Timestamp: time.Now()}:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued writes.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// Stop flushes queued writes and waits for the worker, giving up after
// timeout. It reports whether the flush finished in time.
func (w *AsyncWriter) Stop(timeout time.Duration) bool {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
