package auction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/rs/zerolog/log"
)

// CreateAuctionRequest describes a new auction. RosterDesign and Budget fall
// back to engine defaults when unset.
type CreateAuctionRequest struct {
	Name         string
	Catalog      *catalog.Catalog
	RosterDesign *models.RosterDesign
	Budget       int64
}

// CreateAuctionResult is returned once. MasterToken is never stored in the
// clear and cannot be recovered later.
type CreateAuctionResult struct {
	AuctionID   uuid.UUID `json:"auction_id"`
	AuctionName string    `json:"auction_name"`
	JoinCode    string    `json:"join_code"`
	MasterToken string    `json:"master_token"`
}

// CreateAuction registers a new auction in NotStarted with the catalog's
// schools as its pool.
func (e *Engine) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*CreateAuctionResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if req.Catalog == nil || req.Catalog.Len() == 0 {
		return nil, &ValidationError{Field: "catalog", Reason: "has no schools"}
	}

	design := e.config.RosterDesign
	if req.RosterDesign != nil {
		design = *req.RosterDesign
	}
	if err := roster.ValidateDesign(design); err != nil {
		return nil, &ValidationError{Field: "roster_design", Reason: err.Error()}
	}
	design = copyDesign(design)

	budget := e.config.DefaultBudget
	if req.Budget != 0 {
		if req.Budget < 0 {
			return nil, &ValidationError{Field: "budget", Reason: "must be positive"}
		}
		budget = req.Budget
	}

	token, err := newMasterToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create master token: %w", err)
	}
	hash, err := hashMasterToken(token, e.config.TokenCost)
	if err != nil {
		return nil, err
	}

	st := &auctionState{
		id:        uuid.New(),
		name:      name,
		status:    models.AuctionStatusNotStarted,
		tokenHash: hash,
		settings: models.AuctionSettings{
			DefaultBudget: budget,
			OpeningBid:    e.config.OpeningBid,
			BidTimeout:    e.config.BidTimeout,
		},
		createdAt:    e.clock.Now().UTC(),
		design:       design,
		schools:      make(map[uuid.UUID]*schoolEntry, req.Catalog.Len()),
		teams:        make(map[uuid.UUID]*models.Team),
		participants: make(map[string]*models.Participant),
	}
	for _, school := range req.Catalog.Schools() {
		st.pool = append(st.pool, school.ID)
		st.schools[school.ID] = &schoolEntry{school: school, status: models.SchoolStatusAvailable}
	}

	if err := e.register(st); err != nil {
		return nil, err
	}
	obs.AuctionOpened()

	log.Info().
		Str("auction_id", st.id.String()).
		Str("name", name).
		Int("schools", len(st.pool)).
		Int("slots", design.Size()).
		Msg("auction created")

	return &CreateAuctionResult{
		AuctionID:   st.id,
		AuctionName: name,
		JoinCode:    st.joinCode,
		MasterToken: token,
	}, nil
}

// register stores st under a join code unique among active auctions.
func (e *Engine) register(st *auctionState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := newJoinCode()
		if err != nil {
			return err
		}
		if _, taken := e.joinCodes[code]; taken {
			continue
		}
		st.joinCode = code
		e.joinCodes[code] = st.id
		e.auctions[st.id] = st
		return nil
	}
	return fmt.Errorf("failed to allocate a unique join code after %d attempts", joinCodeAttempts)
}

func copyDesign(d models.RosterDesign) models.RosterDesign {
	out := models.RosterDesign{Name: d.Name, Slots: make([]models.RosterSlotDefinition, len(d.Slots))}
	copy(out.Slots, d.Slots)
	return out
}
