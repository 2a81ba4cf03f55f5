// Package sse streams session events to clients that cannot use WebSockets.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	queueSize  = 256
	streamSize = 64

	// DefaultKeepAlive is how often an idle stream receives a comment line
	// so proxies do not close it.
	DefaultKeepAlive = 30 * time.Second
)

// Event is one SSE frame.
type Event struct {
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data"`
}

// WriteTo encodes e in text/event-stream framing. Data is JSON.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return 0, err
	}
	var frame []byte
	if e.Event != "" {
		frame = fmt.Appendf(frame, "event: %s\n", e.Event)
	}
	if e.ID != "" {
		frame = fmt.Appendf(frame, "id: %s\n", e.ID)
	}
	frame = fmt.Appendf(frame, "data: %s\n\n", data)
	n, err := w.Write(frame)
	return int64(n), err
}

// Broadcaster fans events out to every open stream.
type Broadcaster struct {
	mu        sync.RWMutex
	streams   map[chan Event]struct{}
	queue     chan Event
	keepAlive time.Duration
	skipped   atomic.Int64
	logger    *zerolog.Logger
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithKeepAlive sets the idle comment interval. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broadcaster) { b.keepAlive = d }
}

// NewBroadcaster returns a broadcaster with no streams.
func NewBroadcaster(logger *zerolog.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		streams:   make(map[chan Event]struct{}),
		queue:     make(chan Event, queueSize),
		keepAlive: DefaultKeepAlive,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run distributes queued events until ctx is done, then ends every stream.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for s := range b.streams {
				close(s)
				delete(b.streams, s)
			}
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return
		case e := <-b.queue:
			b.fanOut(e)
		}
	}
}

// fanOut skips streams whose buffer is full rather than waiting on them.
func (b *Broadcaster) fanOut(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.streams {
		select {
		case s <- e:
		default:
			b.skipped.Add(1)
			b.logger.Warn().Str("event", e.Event).Msg("SSE stream buffer full, event skipped")
		}
	}
}

// Broadcast queues e without blocking. A full queue drops it.
func (b *Broadcaster) Broadcast(e Event) {
	select {
	case b.queue <- e:
	default:
		b.skipped.Add(1)
		b.logger.Warn().Str("event", e.Event).Msg("SSE queue full, event dropped")
	}
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

// Skipped returns how many deliveries were dropped or skipped.
func (b *Broadcaster) Skipped() int64 {
	return b.skipped.Load()
}

func (b *Broadcaster) attach() chan Event {
	s := make(chan Event, streamSize)
	b.mu.Lock()
	b.streams[s] = struct{}{}
	n := len(b.streams)
	b.mu.Unlock()
	b.logger.Info().Int("total_clients", n).Msg("SSE client connected")
	return s
}

func (b *Broadcaster) detach(s chan Event) {
	b.mu.Lock()
	if _, ok := b.streams[s]; ok {
		delete(b.streams, s)
		close(s)
	}
	n := len(b.streams)
	b.mu.Unlock()
	b.logger.Info().Int("total_clients", n).Msg("SSE client disconnected")
}

// ServeHTTP holds the response open and writes each event as it arrives.
// The stream ends when the client disconnects or Run returns.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	s := b.attach()
	defer b.detach(s)

	send := func(e Event) bool {
		if _, err := e.WriteTo(w); err != nil {
			b.logger.Debug().Err(err).Msg("SSE write failed")
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(Event{Event: "connected", Data: map[string]any{
		"message":   "Connected to renewals updates stream",
		"timestamp": time.Now(),
	}}) {
		return
	}

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		ticker := time.NewTicker(b.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case e, ok := <-s:
			if !ok || !send(e) {
				return
			}
		case <-tick:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
