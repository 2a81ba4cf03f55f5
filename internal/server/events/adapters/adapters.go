// Package adapters turns the realtime transports into broker subscribers.
package adapters

import (
	"strconv"

	"github.com/agentstation/renewals/internal/server/events"
	"github.com/agentstation/renewals/internal/server/sse"
	ws "github.com/agentstation/renewals/internal/server/websocket"
)

// WebSocket forwards events to every client of hub.
func WebSocket(hub *ws.Hub) events.SubscriberFunc {
	return func(e events.Event) error {
		hub.Broadcast(ws.Message{
			Type:      string(e.Type),
			Timestamp: e.Timestamp,
			Data:      e.Data,
		})
		return nil
	}
}

// SSE forwards events to every stream of b. The event sequence becomes the
// SSE id field.
func SSE(b *sse.Broadcaster) events.SubscriberFunc {
	return func(e events.Event) error {
		b.Broadcast(sse.Event{
			Event: string(e.Type),
			ID:    strconv.FormatUint(e.Seq, 10),
			Data:  e.Data,
		})
		return nil
	}
}
