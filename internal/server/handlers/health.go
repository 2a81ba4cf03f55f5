package handlers

import (
	"net/http"

	"github.com/agentstation/renewals/internal/server/response"
)

// HandleHealth handles GET /health.
// @Summary Health check
// @Description Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "renewals-api",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready.
// @Summary Readiness check
// @Description Ready once the catalog export can be read
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	cat, err := h.session.Catalog(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"catalog_source":    cat.Source,
		"catalog_loaded_at": cat.LoadedAt,
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
