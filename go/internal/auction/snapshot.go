package auction

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/roster"
)

// GetAuctionState returns a consistent snapshot of the auction.
func (e *Engine) GetAuctionState(_ context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	st, err := e.lookup(auctionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return e.snapshot(st), nil
}

// ListAuctions summarizes every auction, newest first. Completed auctions are
// included only when includeComplete is set.
func (e *Engine) ListAuctions(_ context.Context, includeComplete bool) []models.AuctionSummary {
	e.mu.RLock()
	states := make([]*auctionState, 0, len(e.auctions))
	for _, st := range e.auctions {
		states = append(states, st)
	}
	e.mu.RUnlock()

	summaries := make([]models.AuctionSummary, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if includeComplete || !st.status.IsTerminal() {
			summaries = append(summaries, models.AuctionSummary{
				ID:           st.id,
				Name:         st.name,
				Status:       st.status,
				TeamCount:    len(st.teamOrder),
				DraftedCount: st.draftedCount(),
				CreatedAt:    st.createdAt,
			})
		}
		st.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// snapshot copies st into its read model. Must hold st.mu.
func (e *Engine) snapshot(st *auctionState) *models.AuctionSnapshot {
	snap := &models.AuctionSnapshot{
		Auction: models.Auction{
			ID:          st.id,
			Name:        st.name,
			Status:      st.status,
			JoinCode:    st.joinCode,
			Settings:    st.settings,
			CreatedAt:   st.createdAt,
			StartedAt:   st.startedAt,
			CompletedAt: st.completedAt,
		},
		Sequence:     st.seq,
		RosterDesign: copyDesign(st.design),
	}

	for _, id := range st.teamOrder {
		t := st.teams[id]
		snap.Teams = append(snap.Teams, models.TeamSnapshot{
			Team:      *copyTeam(t),
			Remaining: t.Remaining(),
			OpenSlots: roster.OpenSlots(st.design, t.FilledSlots()),
		})
	}
	for _, userID := range st.participantOrder {
		p := *st.participants[userID]
		if p.TeamID != nil {
			id := *p.TeamID
			p.TeamID = &id
		}
		snap.Participants = append(snap.Participants, p)
	}
	for _, id := range st.pool {
		if entry := st.schools[id]; entry.status == models.SchoolStatusAvailable {
			snap.AvailableSchools = append(snap.AvailableSchools, entry.school)
		}
	}

	if st.status == models.AuctionStatusInProgress || st.status == models.AuctionStatusPaused {
		if next, ok := st.currentNominator(); ok {
			snap.NominatingTeamID = &next
		}
	}
	if b := st.block; b != nil {
		bs := &models.BlockSnapshot{
			School:      st.schools[b.schoolID].school,
			NominatedBy: b.nominatedBy,
			HighBid:     b.highBid,
		}
		if b.highBidder != nil {
			id := *b.highBidder
			bs.HighBidderID = &id
		}
		if b.deadline != nil {
			d := *b.deadline
			bs.Deadline = &d
		}
		snap.Block = bs
	}
	return snap
}
