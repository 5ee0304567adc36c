package handlers

import "net/http"

// HandleSSE handles GET /api/v1/events.
// @Summary Event stream
// @Description Server-Sent Events for toggles, payment changes and imports
// @Tags events
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/v1/events [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}

// HandleWebSocket handles GET /api/v1/events/ws.
// @Summary WebSocket events
// @Description The event stream over a WebSocket connection
// @Tags events
// @Success 101 "Switching Protocols"
// @Router /api/v1/events/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHub.ServeHTTP(w, r)
}
