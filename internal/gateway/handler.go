package gateway

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handler handles WebSocket upgrade requests for the auction channel.
type Handler struct {
	hub *Hub
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleAuctionConnection upgrades a client onto the auction channel.
// The team code and role come from query parameters; session mechanics
// live outside this service.
func (h *Handler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	team := r.URL.Query().Get("team")
	role := RoleTeam
	if r.URL.Query().Get("role") == string(RoleHost) {
		role = RoleHost
	}
	if role == RoleTeam && team == "" {
		http.Error(w, "team is required", http.StatusBadRequest)
		return
	}

	if err := h.hub.Upgrade(w, r, team, role); err != nil {
		log.Error().
			Err(err).
			Str("team", team).
			Str("role", string(role)).
			Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns the number of active connections.
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"total_connections":` + strconv.Itoa(h.hub.ConnectionCount()) + `}`))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
