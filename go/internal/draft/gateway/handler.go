package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Handler exposes the hub over HTTP: the WebSocket upgrade endpoint and a
// connection stats endpoint.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWebSocket upgrades the request and hands the connection to the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.Upgrade(w, r); err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Debug().Err(err).Msg("WebSocket upgrade rejected")
	}
}

// HandleStats reports active connection counts as JSON.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.hub.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode gateway stats")
	}
}
