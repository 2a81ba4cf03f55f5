// Package websocket pushes session events to browser clients so that
// every open follow-up table reloads after a save.
package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Message is one notification frame. Type mirrors the event type, for
// example "followups.saved".
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

const (
	outboxSize = 256
	joinSize   = 16
)

// Hub fans messages out to every attached client. A client whose queue is
// full is detached so one stalled browser cannot hold up the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	join   chan *Client
	leave  chan *Client
	outbox chan Message

	dropped atomic.Int64
	logger  *zerolog.Logger
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		join:    make(chan *Client, joinSize),
		leave:   make(chan *Client, joinSize),
		outbox:  make(chan Message, outboxSize),
		logger:  logger,
	}
}

// Run delivers messages until ctx is cancelled, then detaches every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.detachAll()
			h.logger.Info().Msg("WebSocket hub shut down")
			return
		case c := <-h.join:
			h.attach(c)
		case c := <-h.leave:
			h.detach(c, "closed")
		case msg := <-h.outbox:
			h.fanOut(msg)
		}
	}
}

// attach adds c. A previous client with the same id is closed.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.id]; ok && old != c {
		close(old.send)
	}
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Str("client_id", c.id).Int("total_clients", n).Msg("WebSocket client connected")
}

// detach removes c and closes its queue. It is a no-op for a client that
// was already removed.
func (h *Hub) detach(c *Client, reason string) {
	h.mu.Lock()
	current, ok := h.clients[c.id]
	if ok && current == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info().Str("client_id", c.id).Str("reason", reason).Int("total_clients", n).Msg("WebSocket client disconnected")
	}
}

func (h *Hub) detachAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) fanOut(msg Message) {
	var stalled []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.dropped.Add(1)
		h.detach(c, "queue full")
	}
}

// Register queues c for attachment.
func (h *Hub) Register(c *Client) {
	h.join <- c
}

// Broadcast queues msg for every client. When the hub is backed up the
// message is dropped and logged.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.outbox <- msg:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("Broadcast queue full, message dropped")
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many clients were detached for falling behind.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
