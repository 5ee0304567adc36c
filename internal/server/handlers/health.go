package handlers

import (
	"net/http"

	"github.com/agentstation/concilia/internal/server/response"
	"github.com/agentstation/concilia/pkg/logging"
)

// HandleHealth handles GET /api/v1/health.
// @Summary Health check
// @Description Liveness check with stream and preview counts
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Router /api/v1/health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":            "healthy",
		"service":           "concilia-api",
		"version":           "v1",
		"uptime":            h.now().Sub(h.startTime).Round(1e9).String(),
		"pending_previews":  h.previews.Count(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
		"websocket_clients": h.wsHub.ClientCount(),
	})
}

// HandleReady handles GET /api/v1/ready.
// @Summary Readiness check
// @Description Checks that the stored state can be loaded
// @Tags health
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Failure 503 {object} response.Response{error=response.Error}
// @Router /api/v1/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	state, err := h.client.State(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("state not available")
		response.ServiceUnavailable(w, "State not available")
		return
	}
	response.OK(w, map[string]any{
		"status":   "ready",
		"clients":  len(state.Clients),
		"payments": len(state.Payments),
	})
}
