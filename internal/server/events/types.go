// Package events fans session events out to the realtime transports.
//
// Session hooks publish to a Broker; the Broker forwards every event to each
// subscribed transport (WebSocket, SSE) so open clients know to reload.
package events

import "time"

// EventType represents the type of session event.
type EventType string

// Event types.
const (
	// Follow-up events (from session save hooks).
	FollowUpsSaved      EventType = "followups.saved"
	FollowUpsSaveFailed EventType = "followups.save_failed"

	// Catalog events.
	CatalogRefreshed EventType = "catalog.refreshed"
	CatalogChanged   EventType = "catalog.changed"

	// Overlay events.
	OverlayUnavailable EventType = "overlay.unavailable"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event is one published notification. Seq increases by one per Publish
// call on the same broker.
type Event struct {
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
