package events

import "io"

// Subscriber consumes broker events for one transport. Send must not block.
// A Subscriber that also implements io.Closer is closed when it is removed.
type Subscriber interface {
	Send(Event) error
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(Event) error

// Send calls f(e).
func (f SubscriberFunc) Send(e Event) error { return f(e) }

func closeSubscriber(s Subscriber) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
