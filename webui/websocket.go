package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"thumbnail_studio/logging"
	"thumbnail_studio/studio"
)

// BroadcasterConfig tunes websocket keep-alive and buffering.
type BroadcasterConfig struct {
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	// MaxMessageSize limits client frames; clients only send pongs.
	MaxMessageSize int64
	// ClientBuffer is the per-client queue. A client that falls this far
	// behind is disconnected.
	ClientBuffer int
}

func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 512,
		ClientBuffer:   64,
	}
}

type client struct {
	conn        *websocket.Conn
	send        chan []byte
	remoteAddr  string
	connectedAt time.Time
	closeOnce   sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Broadcaster relays studio events to every connected websocket client.
type Broadcaster struct {
	config   BroadcasterConfig
	upgrader websocket.Upgrader
	logger   *logging.Logger
	// snapshot builds the initial message for new clients. Optional.
	snapshot func() InitialData

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewBroadcaster creates a broadcaster. snapshot may be nil.
func NewBroadcaster(config BroadcasterConfig, snapshot func() InitialData, logger *logging.Logger) *Broadcaster {
	defaults := DefaultBroadcasterConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = defaults.ClientBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		config:   config,
		snapshot: snapshot,
		logger:   logger.Named("websocket"),
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The studio UI is served from the same origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run forwards events until ctx is done or events is closed, then
// disconnects every client.
func (b *Broadcaster) Run(ctx context.Context, events <-chan studio.Event) {
	ticker := time.NewTicker(b.config.PingInterval)
	defer ticker.Stop()
	defer b.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			b.Broadcast(MessageFromEvent(e))
		case <-ticker.C:
			b.ping()
		}
	}
}

// HandleConnection upgrades the request and registers the client.
func (b *Broadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c := &client{
		conn:        conn,
		send:        make(chan []byte, b.config.ClientBuffer),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	// Queued before registration so it is always the first frame.
	if b.snapshot != nil {
		b.sendTo(c, NewWSMessage(MessageTypeInitial, b.snapshot()))
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	total := len(b.clients)
	b.mu.Unlock()
	b.logger.Info("client connected", zap.String("remote", c.remoteAddr), zap.Int("clients", total))

	go b.writePump(c)
	go b.readPump(c)
}

// Broadcast queues msg for every client.
func (b *Broadcaster) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Warn("failed to encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	b.mu.RLock()
	var slow []*client
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("client too slow, disconnecting", zap.String("remote", c.remoteAddr))
		b.remove(c)
	}
}

func (b *Broadcaster) sendTo(c *client, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects all clients and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c]
	delete(b.clients, c)
	total := len(b.clients)
	b.mu.Unlock()
	if ok {
		c.close()
		b.logger.Info("client disconnected", zap.String("remote", c.remoteAddr), zap.Int("clients", total))
	}
}

func (b *Broadcaster) ping() {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	deadline := time.Now().Add(b.config.WriteWait)
	for _, c := range clients {
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			b.remove(c)
		}
	}
}

func (b *Broadcaster) readPump(c *client) {
	defer b.remove(c)
	c.conn.SetReadLimit(b.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(b.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(b.config.PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Debug("websocket read error", zap.String("remote", c.remoteAddr), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer of data frames on c.conn.
func (b *Broadcaster) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(b.config.WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(b.config.WriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}
