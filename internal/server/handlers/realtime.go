package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agentstation/renewals/internal/server/events"
	ws "github.com/agentstation/renewals/internal/server/websocket"
)

// HandleWebSocket handles WebSocket connections at /api/v1/updates/ws.
// Clients receive a followups.saved message after every save so open views
// know to reload.
// @Summary WebSocket updates
// @Description WebSocket connection for save and catalog notifications
// @Tags updates
// @Success 101 "Switching Protocols"
// @Router /api/v1/updates/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), h.wsHub, conn)
	client.Serve()

	h.broker.Publish(events.ClientConnected, map[string]any{
		"client_id": client.ID(),
		"transport": "websocket",
	})
}

// HandleSSE handles Server-Sent Events at /api/v1/updates/stream.
// @Summary SSE updates stream
// @Description Server-Sent Events stream of save and catalog notifications
// @Tags updates
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/v1/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
