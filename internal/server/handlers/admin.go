package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/renewals/internal/server/response"
)

// HandleRefresh handles POST /api/v1/refresh.
// @Summary Reload catalog
// @Description Drop the cached catalog and read the export again
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/refresh [post].
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.session.Refresh()

	cat, err := h.session.Catalog(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, map[string]any{
		"status":    "refreshed",
		"source":    cat.Source,
		"plans":     len(cat.Profiles),
		"items":     len(cat.Items),
		"loaded_at": cat.LoadedAt,
	})
}

// HandleStats handles GET /api/v1/stats.
// @Summary Reconciliation statistics
// @Description Catalog, overlay and server statistics
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/stats [get].
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	view, err := h.session.Master(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	overlay := map[string]any{"available": view.OverlayErr == nil}
	if view.OverlayErr != nil {
		overlay["error"] = view.OverlayErr.Error()
	}

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      memStats.Alloc / 1024 / 1024,
		},
		"reconciliation": view.Stats,
		"orphans":        view.Orphans,
		"overlay":        overlay,
		"catalog_loaded": view.LoadedAt,
		"session_state":  h.session.State().String(),
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
			"sse_skipped":       h.sseBroadcaster.Skipped(),
			"websocket_dropped": h.wsHub.Dropped(),
			"subscribers":       h.broker.Subscribers(),
			"events_dropped":    h.broker.Dropped(),
		},
	})
}
