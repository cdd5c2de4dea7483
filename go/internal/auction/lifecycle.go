package auction

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

var allowedTransitions = map[models.AuctionStatus][]models.AuctionStatus{
	models.AuctionStatusNotStarted: {models.AuctionStatusInProgress, models.AuctionStatusComplete},
	models.AuctionStatusInProgress: {models.AuctionStatusPaused, models.AuctionStatusComplete},
	models.AuctionStatusPaused:     {models.AuctionStatusInProgress, models.AuctionStatusComplete},
	models.AuctionStatusComplete:   {},
}

func validateStatusTransition(from, to models.AuctionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Start opens bidding. The auction needs at least one team.
func (e *Engine) Start(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	return e.transition(ctx, auctionID, "start", func(st *auctionState) (models.AuctionStatus, string, error) {
		if st.status != models.AuctionStatusNotStarted {
			return "", "", &InvalidTransitionError{From: st.status, Action: "start"}
		}
		if len(st.teamOrder) == 0 {
			return "", "", &InvalidTransitionError{From: st.status, Action: "start", Reason: "no teams have been created"}
		}
		now := e.clock.Now().UTC()
		st.startedAt = &now
		st.nominator = 0
		return models.AuctionStatusInProgress, "started", nil
	})
}

// Pause freezes bidding. A school on the block stays there and its countdown
// is cancelled.
func (e *Engine) Pause(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	return e.transition(ctx, auctionID, "pause", func(st *auctionState) (models.AuctionStatus, string, error) {
		if st.status != models.AuctionStatusInProgress {
			return "", "", &InvalidTransitionError{From: st.status, Action: "pause"}
		}
		if st.block != nil {
			e.timer.Cancel(st.id)
			st.block.deadline = nil
		}
		return models.AuctionStatusPaused, "paused", nil
	})
}

// Resume reopens bidding. A school still on the block gets a fresh countdown.
func (e *Engine) Resume(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error) {
	return e.transition(ctx, auctionID, "resume", func(st *auctionState) (models.AuctionStatus, string, error) {
		if st.status != models.AuctionStatusPaused {
			return "", "", &InvalidTransitionError{From: st.status, Action: "resume"}
		}
		if st.block != nil {
			e.restartCountdown(st)
		}
		return models.AuctionStatusInProgress, "resumed", nil
	})
}

// Finish completes the auction. Without force every roster must be full.
func (e *Engine) Finish(ctx context.Context, auctionID uuid.UUID, force bool) (*models.AuctionSnapshot, error) {
	return e.transition(ctx, auctionID, "finish", func(st *auctionState) (models.AuctionStatus, string, error) {
		if st.status.IsTerminal() {
			return "", "", &InvalidTransitionError{From: st.status, Action: "finish"}
		}
		if !force && !st.allRostersFull() {
			return "", "", &InvalidTransitionError{From: st.status, Action: "finish", Reason: "rosters are not full"}
		}
		e.closeBlock(st)
		e.markComplete(st)
		if force {
			return models.AuctionStatusComplete, "forced by auction master", nil
		}
		return models.AuctionStatusComplete, "finished", nil
	})
}

// transition applies a lifecycle change and emits AuctionStatusChanged.
func (e *Engine) transition(
	ctx context.Context,
	auctionID uuid.UUID,
	action string,
	apply func(st *auctionState) (models.AuctionStatus, string, error),
) (*models.AuctionSnapshot, error) {
	var snap *models.AuctionSnapshot
	err := e.withAuction(auctionID, func(st *auctionState) error {
		from := st.status
		to, reason, err := apply(st)
		if err != nil {
			return err
		}
		if !validateStatusTransition(from, to) {
			return e.faultAuction(st, "illegal status change "+string(from)+" -> "+string(to))
		}
		st.status = to
		e.emit(ctx, st, events.TypeAuctionStatusChanged, events.AuctionStatusChangedPayload{
			From:      string(from),
			To:        string(to),
			Reason:    reason,
			ChangedAt: e.clock.Now().UTC(),
		})
		log.Info().
			Str("auction_id", st.id.String()).
			Str("action", action).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("auction status changed")
		snap = e.snapshot(st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// completeAfterSettlement auto-completes once every roster is full.
// Must hold st.mu.
func (e *Engine) completeAfterSettlement(ctx context.Context, st *auctionState) {
	if !st.allRostersFull() {
		return
	}
	from := st.status
	e.markComplete(st)
	st.status = models.AuctionStatusComplete
	e.emit(ctx, st, events.TypeAuctionStatusChanged, events.AuctionStatusChangedPayload{
		From:      string(from),
		To:        string(models.AuctionStatusComplete),
		Reason:    "all rosters full",
		ChangedAt: e.clock.Now().UTC(),
	})
	log.Info().Str("auction_id", st.id.String()).Msg("all rosters full, auction complete")
}

// markComplete records completion bookkeeping. Must hold st.mu.
func (e *Engine) markComplete(st *auctionState) {
	now := e.clock.Now().UTC()
	st.completedAt = &now
	e.timer.Cancel(st.id)
	e.releaseJoinCode(st.joinCode, st.id)
	obs.AuctionClosed()
}

// closeBlock returns an unsettled school to the pool. Must hold st.mu.
func (e *Engine) closeBlock(st *auctionState) {
	if st.block == nil {
		return
	}
	e.timer.Cancel(st.id)
	if entry, ok := st.schools[st.block.schoolID]; ok {
		entry.status = models.SchoolStatusAvailable
	}
	st.block = nil
}

// restartCountdown gives the school on the block a fresh bid window.
// Must hold st.mu.
func (e *Engine) restartCountdown(st *auctionState) {
	st.epoch++
	st.block.epoch = st.epoch
	st.block.deadline = e.deadline(e.clock.Now().UTC(), st.settings.BidTimeout)
	if st.block.deadline != nil {
		e.timer.Schedule(st.id, st.epoch, st.settings.BidTimeout)
	}
}
