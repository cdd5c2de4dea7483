package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus defines the lifecycle status of an auction.
type AuctionStatus string

const (
	AuctionStatusNotStarted AuctionStatus = "NOT_STARTED"
	AuctionStatusInProgress AuctionStatus = "IN_PROGRESS"
	AuctionStatusPaused     AuctionStatus = "PAUSED"
	AuctionStatusComplete   AuctionStatus = "COMPLETE"
)

// IsTerminal reports whether no further transitions are possible.
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusComplete
}

// AuctionSettings holds the per-auction knobs fixed at creation.
type AuctionSettings struct {
	DefaultBudget int64         `json:"default_budget"`
	OpeningBid    int64         `json:"opening_bid"`
	BidTimeout    time.Duration `json:"bid_timeout"`
}

// Auction is the summary view of an auction instance.
type Auction struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Status      AuctionStatus   `json:"status"`
	JoinCode    string          `json:"join_code"`
	Settings    AuctionSettings `json:"settings"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
