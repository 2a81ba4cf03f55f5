package events

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const queueSize = 256

// Broker queues session events and forwards each one to every named
// subscriber from a single goroutine.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]Subscriber
	queue   chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
	logger  *zerolog.Logger
}

// NewBroker returns a broker with an empty subscriber set.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]Subscriber),
		queue:  make(chan Event, queueSize),
		logger: logger,
	}
}

// Run delivers queued events until ctx is done, then closes all subscribers.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for name, s := range b.subs {
				closeSubscriber(s)
				delete(b.subs, name)
			}
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return
		case e := <-b.queue:
			b.deliver(e)
		}
	}
}

func (b *Broker) deliver(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, s := range b.subs {
		if err := s.Send(e); err != nil {
			b.logger.Warn().Err(err).
				Str("subscriber", name).
				Str("event_type", string(e.Type)).
				Msg("Event delivery failed")
		}
	}
	b.logger.Debug().
		Str("event_type", string(e.Type)).
		Uint64("seq", e.Seq).
		Int("subscribers", len(b.subs)).
		Msg("Event delivered")
}

// Publish stamps and queues an event. It never blocks: when the queue is
// full the event is counted as dropped and false is returned.
func (b *Broker) Publish(t EventType, data any) bool {
	e := Event{Type: t, Seq: b.seq.Add(1), Timestamp: time.Now(), Data: data}
	select {
	case b.queue <- e:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn().Str("event_type", string(t)).Msg("Event queue full, event dropped")
		return false
	}
}

// Subscribe registers s under name, closing any subscriber it replaces.
// It may be called before Run.
func (b *Broker) Subscribe(name string, s Subscriber) {
	b.mu.Lock()
	if old, ok := b.subs[name]; ok {
		closeSubscriber(old)
	}
	b.subs[name] = s
	b.mu.Unlock()
}

// Unsubscribe removes and closes the subscriber registered under name.
func (b *Broker) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[name]; ok {
		closeSubscriber(s)
		delete(b.subs, name)
	}
}

// Subscribers returns the registered names in sorted order.
func (b *Broker) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.subs))
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many events were discarded on a full queue.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
