package auction

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
)

// ValidationError reports a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ConflictError reports a request that clashes with current auction state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// NoActiveItemError is the conflict raised when no school is on the block.
type NoActiveItemError struct{}

func (e *NoActiveItemError) Error() string {
	return "conflict: no school is on the block"
}

func (e *NoActiveItemError) Unwrap() error {
	return &ConflictError{Reason: "no school is on the block"}
}

// OutbidError rejects a bid that does not beat the current high bid.
type OutbidError struct {
	Amount     int64
	CurrentBid int64
}

func (e *OutbidError) Error() string {
	return fmt.Sprintf("outbid: bid of %d must be greater than %d", e.Amount, e.CurrentBid)
}

// MinimumNextBid is the smallest amount that would be accepted.
func (e *OutbidError) MinimumNextBid() int64 {
	return e.CurrentBid + 1
}

// BudgetError rejects a bid larger than the team's remaining budget.
type BudgetError struct {
	TeamID    uuid.UUID
	Amount    int64
	Remaining int64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget exceeded: bid of %d exceeds remaining budget %d", e.Amount, e.Remaining)
}

// RosterFullError rejects a bid from a team with no slot for the school.
type RosterFullError struct {
	TeamID   uuid.UUID
	Position string
}

func (e *RosterFullError) Error() string {
	return fmt.Sprintf("roster full: team %s has no open slot for %q", e.TeamID, e.Position)
}

// InvalidTransitionError rejects an operation the auction status does not allow.
type InvalidTransitionError struct {
	From   models.AuctionStatus
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: cannot %s while %s", e.Action, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ForbiddenError reports a caller lacking authority for the operation.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// NotFoundError reports an unknown auction, team, school or participant.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvariantViolationError marks an auction whose state can no longer be
// trusted. Every later command on that auction returns it.
type InvariantViolationError struct {
	AuctionID uuid.UUID
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("auction %s faulted: %s", e.AuctionID, e.Detail)
}

// Kind returns a short label for an engine error, used for metrics and logs.
func Kind(err error) string {
	if err == nil {
		return "accepted"
	}
	var (
		validation *ValidationError
		noItem     *NoActiveItemError
		conflict   *ConflictError
		outbid     *OutbidError
		budget     *BudgetError
		rosterFull *RosterFullError
		transition *InvalidTransitionError
		forbidden  *ForbiddenError
		notFound   *NotFoundError
		invariant  *InvariantViolationError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &noItem):
		return "no_active_item"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &outbid):
		return "outbid"
	case errors.As(err, &budget):
		return "budget"
	case errors.As(err, &rosterFull):
		return "roster_full"
	case errors.As(err, &transition):
		return "invalid_transition"
	case errors.As(err, &forbidden):
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &invariant):
		return "invariant"
	default:
		return "internal"
	}
}

func auctionNotFound(id uuid.UUID) error {
	return &NotFoundError{Kind: "auction", ID: id.String()}
}
