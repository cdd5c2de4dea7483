package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/rs/zerolog/log"
)

// Settlement triggers
const (
	TriggerManual  = "manual"
	TriggerTimeout = "timeout"
)

// Nomination is returned by Nominate.
type Nomination struct {
	SchoolID   uuid.UUID  `json:"school_id"`
	TeamID     uuid.UUID  `json:"team_id"`
	OpeningBid int64      `json:"opening_bid"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Sequence   uint64     `json:"sequence"`
}

// Nominate puts a school on the block. Only the team whose turn it is may
// nominate, and only while nothing else is on the block.
func (e *Engine) Nominate(ctx context.Context, auctionID, teamID, schoolID uuid.UUID) (*Nomination, error) {
	var result Nomination
	err := e.withAuction(auctionID, func(st *auctionState) error {
		if st.status != models.AuctionStatusInProgress {
			return &InvalidTransitionError{From: st.status, Action: "nominate"}
		}
		if _, err := st.team(teamID); err != nil {
			return err
		}
		if st.block != nil {
			return &ConflictError{Reason: "a school is already on the block"}
		}
		turn, ok := st.currentNominator()
		if !ok {
			return &ConflictError{Reason: "no team can nominate"}
		}
		if turn != teamID {
			return &ConflictError{Reason: fmt.Sprintf("out of turn: team %s nominates next", turn)}
		}
		entry, ok := st.schools[schoolID]
		if !ok {
			return &NotFoundError{Kind: "school", ID: schoolID.String()}
		}
		if entry.status != models.SchoolStatusAvailable {
			return &ConflictError{Reason: fmt.Sprintf("school %s is %s", entry.school.Name, entry.status)}
		}

		entry.status = models.SchoolStatusOnBlock
		st.block = &block{
			schoolID:    schoolID,
			nominatedBy: teamID,
			highBid:     st.settings.OpeningBid,
		}
		e.restartCountdown(st)

		now := e.clock.Now().UTC()
		e.emit(ctx, st, events.TypeItemNominated, events.ItemNominatedPayload{
			SchoolID:    schoolID.String(),
			SchoolName:  entry.school.Name,
			Position:    entry.school.Position,
			TeamID:      teamID.String(),
			OpeningBid:  st.block.highBid,
			NominatedAt: now,
			Deadline:    st.block.deadline,
		})
		log.Info().
			Str("auction_id", st.id.String()).
			Str("team_id", teamID.String()).
			Str("school_id", schoolID.String()).
			Str("school", entry.school.Name).
			Msg("school nominated")

		result = Nomination{
			SchoolID:   schoolID,
			TeamID:     teamID,
			OpeningBid: st.block.highBid,
			Deadline:   st.block.deadline,
			Sequence:   st.seq,
		}
		return nil
	})
	obs.ObserveNomination(Kind(err))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// BidRequest is a bid on the school currently on the block.
type BidRequest struct {
	TeamID   uuid.UUID
	Amount   int64
	PlacedBy string
}

// BidResult is returned for an accepted bid.
type BidResult struct {
	SchoolID uuid.UUID  `json:"school_id"`
	TeamID   uuid.UUID  `json:"team_id"`
	Amount   int64      `json:"amount"`
	Deadline *time.Time `json:"deadline,omitempty"`
	Sequence uint64     `json:"sequence"`
}

// PlaceBid raises the high bid. A bid must beat the current high bid, fit in
// the team's remaining budget, and the team must have a slot the school can
// fill. Rejected bids leave the auction untouched.
func (e *Engine) PlaceBid(ctx context.Context, auctionID uuid.UUID, req BidRequest) (*BidResult, error) {
	var result BidResult
	err := e.withAuction(auctionID, func(st *auctionState) error {
		if req.Amount <= 0 {
			return &ValidationError{Field: "amount", Reason: "must be positive"}
		}
		if st.status != models.AuctionStatusInProgress {
			return &InvalidTransitionError{From: st.status, Action: "bid"}
		}
		if st.block == nil {
			return &NoActiveItemError{}
		}
		team, err := st.team(req.TeamID)
		if err != nil {
			return err
		}
		if req.Amount <= st.block.highBid {
			return &OutbidError{Amount: req.Amount, CurrentBid: st.block.highBid}
		}
		if req.Amount > team.Remaining() {
			return &BudgetError{TeamID: team.ID, Amount: req.Amount, Remaining: team.Remaining()}
		}
		entry := st.schools[st.block.schoolID]
		if _, ok := roster.BestSlot(st.design, team.FilledSlots(), entry.school.Position); !ok {
			return &RosterFullError{TeamID: team.ID, Position: entry.school.Position}
		}

		bidder := team.ID
		st.block.highBid = req.Amount
		st.block.highBidder = &bidder
		e.restartCountdown(st)

		e.emit(ctx, st, events.TypeBidPlaced, events.BidPlacedPayload{
			SchoolID: st.block.schoolID.String(),
			TeamID:   team.ID.String(),
			Amount:   req.Amount,
			PlacedBy: req.PlacedBy,
			PlacedAt: e.clock.Now().UTC(),
			Deadline: st.block.deadline,
		})
		log.Debug().
			Str("auction_id", st.id.String()).
			Str("team_id", team.ID.String()).
			Int64("amount", req.Amount).
			Msg("bid accepted")

		result = BidResult{
			SchoolID: st.block.schoolID,
			TeamID:   team.ID,
			Amount:   req.Amount,
			Deadline: st.block.deadline,
			Sequence: st.seq,
		}
		return nil
	})
	obs.ObserveBid(Kind(err))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Settlement describes how the school on the block was closed out.
type Settlement struct {
	SchoolID      uuid.UUID            `json:"school_id"`
	Sold          bool                 `json:"sold"`
	TeamID        *uuid.UUID           `json:"team_id,omitempty"`
	Price         int64                `json:"price,omitempty"`
	Pick          *models.DraftPick    `json:"pick,omitempty"`
	UnsoldOutcome UnsoldOutcome        `json:"unsold_outcome,omitempty"`
	Status        models.AuctionStatus `json:"status"`
	Sequence      uint64               `json:"sequence"`
}

// SettleCurrentItem closes bidding on the school on the block.
func (e *Engine) SettleCurrentItem(ctx context.Context, auctionID uuid.UUID) (*Settlement, error) {
	var result *Settlement
	err := e.withAuction(auctionID, func(st *auctionState) error {
		switch st.status {
		case models.AuctionStatusInProgress, models.AuctionStatusPaused:
		default:
			return &InvalidTransitionError{From: st.status, Action: "settle"}
		}
		if st.block == nil {
			return &NoActiveItemError{}
		}
		s, err := e.settle(ctx, st, TriggerManual)
		result = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandleBidTimeout settles the school whose countdown expired. Expirations
// for an older countdown, or arriving after the school was settled or the
// auction paused, are ignored.
func (e *Engine) HandleBidTimeout(ctx context.Context, auctionID uuid.UUID, epoch uint64) error {
	return e.withAuction(auctionID, func(st *auctionState) error {
		if st.status != models.AuctionStatusInProgress || st.block == nil || st.block.epoch != epoch {
			log.Debug().
				Str("auction_id", auctionID.String()).
				Uint64("epoch", epoch).
				Msg("ignoring stale bid timeout")
			return nil
		}
		_, err := e.settle(ctx, st, TriggerTimeout)
		return err
	})
}

// settle awards or returns the school on the block. Must hold st.mu.
func (e *Engine) settle(ctx context.Context, st *auctionState, trigger string) (*Settlement, error) {
	b := st.block
	entry, ok := st.schools[b.schoolID]
	if !ok {
		return nil, e.faultAuction(st, "school on the block is missing from the pool")
	}
	now := e.clock.Now().UTC()
	result := &Settlement{SchoolID: b.schoolID}
	payload := events.ItemSettledPayload{
		SchoolID:   b.schoolID.String(),
		SchoolName: entry.school.Name,
		Reason:     trigger,
		SettledAt:  now,
	}

	if b.highBidder != nil {
		team, err := st.team(*b.highBidder)
		if err != nil {
			return nil, e.faultAuction(st, "high bidder is not a team in this auction")
		}
		slot, ok := roster.BestSlot(st.design, team.FilledSlots(), entry.school.Position)
		if !ok {
			return nil, e.faultAuction(st, fmt.Sprintf("team %s has no slot for the school it won", team.ID))
		}
		if team.Spent+b.highBid > team.Budget {
			return nil, e.faultAuction(st, fmt.Sprintf("team %s would overspend its budget", team.ID))
		}

		pick := models.DraftPick{
			TeamID:      team.ID,
			SchoolID:    b.schoolID,
			SchoolName:  entry.school.Name,
			SlotID:      slot.ID,
			Position:    slot.PositionName,
			AuctionCost: b.highBid,
			DraftedAt:   now,
		}
		team.Picks = append(team.Picks, pick)
		team.Spent += b.highBid
		entry.status = models.SchoolStatusDrafted

		teamID := team.ID
		result.Sold = true
		result.TeamID = &teamID
		result.Price = b.highBid
		result.Pick = &pick

		payload.Sold = true
		payload.TeamID = team.ID.String()
		payload.Price = b.highBid
		payload.SlotID = slot.ID.String()
		payload.SlotPosition = slot.PositionName
	} else {
		outcome := e.config.UnsoldPolicy(entry.school)
		switch outcome {
		case UnsoldWithdraw:
			entry.status = models.SchoolStatusWithdrawn
		default:
			outcome = UnsoldReturnToPool
			entry.status = models.SchoolStatusAvailable
		}
		result.UnsoldOutcome = outcome
		payload.UnsoldOutcome = string(outcome)
	}

	e.timer.Cancel(st.id)
	st.block = nil
	st.advanceNominationAfter(b.nominatedBy)
	if next, ok := st.currentNominator(); ok {
		payload.NextNominatingID = next.String()
	}

	e.emit(ctx, st, events.TypeItemSettled, payload)
	result.Sequence = st.seq

	outcome := "unsold"
	if result.Sold {
		outcome = "sold"
	}
	obs.ObserveSettlement(outcome, trigger)
	log.Info().
		Str("auction_id", st.id.String()).
		Str("school_id", b.schoolID.String()).
		Str("school", entry.school.Name).
		Bool("sold", result.Sold).
		Int64("price", result.Price).
		Str("trigger", trigger).
		Msg("school settled")

	e.completeAfterSettlement(ctx, st)
	result.Status = st.status
	return result, nil
}
