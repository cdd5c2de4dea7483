package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/access"
	"github.com/rs/zerolog/log"
)

// TokenParser resolves a bearer token to a principal.
type TokenParser interface {
	Parse(token string) (access.Principal, error)
}

// WebSocketHandler upgrades subscriber connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateProvider     StateProvider
	tokens            TokenParser
}

// NewWebSocketHandler creates a WebSocket handler. tokens may be nil, in which
// case every subscriber is anonymous.
func NewWebSocketHandler(cm *ConnectionManager, provider StateProvider, tokens TokenParser) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateProvider:     provider,
		tokens:            tokens,
	}
}

// HandleAuctionConnection handles GET /ws/auction?auction_id=&token=
func (h *WebSocketHandler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("auction_id")
	if idStr == "" {
		http.Error(w, "auction_id is required", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid auction_id format", http.StatusBadRequest)
		return
	}

	userID := "anonymous"
	token := r.URL.Query().Get("token")
	if token == "" {
		token = access.BearerToken(r.Header)
	}
	if token != "" && h.tokens != nil {
		principal, err := h.tokens.Parse(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID = principal.UserID
	}

	if h.stateProvider != nil {
		if _, err := h.stateProvider.GetAuctionState(r.Context(), auctionID); err != nil {
			if isNotFound(err) {
				http.Error(w, "auction not found", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to check auction before upgrade")
			http.Error(w, "failed to load auction", http.StatusInternalServerError)
			return
		}
	}

	// Upgrade writes its own error response on failure.
	if err := h.connectionManager.UpgradeConnection(w, r, userID, auctionID); err != nil {
		log.Error().
			Err(err).
			Str("auction_id", auctionID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats handles GET /ws/stats
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers the WebSocket routes on mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/auction", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
