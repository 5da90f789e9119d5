package studio

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

// EventType names a studio event.
type EventType string

const (
	EventHistoryChanged EventType = "history_changed"
	EventRunUpdated     EventType = "run_updated"
	EventRetrying       EventType = "retrying"
)

// Event is delivered to every subscriber.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// RetryInfo is the payload of EventRetrying.
type RetryInfo struct {
	RunID   string `json:"runId"`
	Attempt int    `json:"attempt"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	logger *logging.Logger
}

// NewBus creates an event bus.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		subs:   make(map[uint64]chan Event),
		logger: logger.Named("events"),
	}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned cancel func unregisters it and closes the channel; it is safe to
// call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers e to all current subscribers.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Debug("dropping event for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.String("type", string(e.Type)))
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// HistoryChanged implements core.HistoryNotifier.
func (b *Bus) HistoryChanged(change core.HistoryChange) {
	b.Publish(Event{Type: EventHistoryChanged, Data: change})
}

var _ core.HistoryNotifier = (*Bus)(nil)
