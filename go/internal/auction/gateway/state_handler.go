package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StateProvider reads auction state for the gateway.
type StateProvider interface {
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
	GetActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error)
}

// StateResponse is a snapshot plus the seconds left on the bid countdown.
type StateResponse struct {
	*models.AuctionSnapshot
	TimeRemaining *int `json:"time_remaining_sec,omitempty"`
}

// StateHandler serves auction state over plain HTTP.
type StateHandler struct {
	stateProvider StateProvider
	clock         clockwork.Clock
}

// NewStateHandler creates a state handler.
func NewStateHandler(provider StateProvider, clock clockwork.Clock) *StateHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StateHandler{stateProvider: provider, clock: clock}
}

// HandleGetAuctionState handles GET /api/auctions/{id}/state
func (h *StateHandler) HandleGetAuctionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := extractAuctionIDFromPath(r.URL.Path)
	if idStr == "" {
		http.Error(w, "Auction ID is required", http.StatusBadRequest)
		return
	}
	auctionID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid auction ID format", http.StatusBadRequest)
		return
	}

	snap, err := h.stateProvider.GetAuctionState(r.Context(), auctionID)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "Auction not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to get auction state")
		http.Error(w, "Failed to get auction state", http.StatusInternalServerError)
		return
	}

	resp := StateResponse{AuctionSnapshot: snap}
	if snap.Block != nil && snap.Block.Deadline != nil {
		remaining := int(snap.Block.Deadline.Sub(h.clock.Now()) / time.Second)
		if remaining > 0 {
			resp.TimeRemaining = &remaining
		}
	}

	writeJSON(w, resp)
}

// HandleGetActiveAuctions handles GET /api/auctions/active
func (h *StateHandler) HandleGetActiveAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	auctions, err := h.stateProvider.GetActiveAuctions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active auctions")
		http.Error(w, "Failed to get active auctions", http.StatusInternalServerError)
		return
	}
	if auctions == nil {
		auctions = []models.AuctionSummary{}
	}
	writeJSON(w, auctions)
}

// RegisterStateRoutes registers the state routes on mux.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auctions/active", h.HandleGetActiveAuctions)
	mux.HandleFunc("/api/auctions/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/state") {
			h.HandleGetAuctionState(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// extractAuctionIDFromPath pulls {id} out of /api/auctions/{id}/state
func extractAuctionIDFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/auctions/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func isNotFound(err error) bool {
	var notFound *auction.NotFoundError
	return errors.As(err, &notFound) || connect.CodeOf(err) == connect.CodeNotFound
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
