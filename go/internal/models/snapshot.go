package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionSnapshot is the full read view of one auction at a sequence number.
type AuctionSnapshot struct {
	Auction
	Sequence         uint64         `json:"sequence"`
	RosterDesign     RosterDesign   `json:"roster_design"`
	Teams            []TeamSnapshot `json:"teams"`
	Participants     []Participant  `json:"participants"`
	AvailableSchools []School       `json:"available_schools"`
	NominatingTeamID *uuid.UUID     `json:"nominating_team_id,omitempty"`
	Block            *BlockSnapshot `json:"block,omitempty"`
}

// TeamSnapshot is a team plus its derived figures.
type TeamSnapshot struct {
	Team
	Remaining int64 `json:"remaining"`
	OpenSlots int   `json:"open_slots"`
}

// BlockSnapshot describes the school currently up for bidding.
type BlockSnapshot struct {
	School       School     `json:"school"`
	NominatedBy  uuid.UUID  `json:"nominated_by"`
	HighBid      int64      `json:"high_bid"`
	HighBidderID *uuid.UUID `json:"high_bidder_id,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

// AuctionSummary is the list view used for active-auction listings.
type AuctionSummary struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Status       AuctionStatus `json:"status"`
	TeamCount    int           `json:"team_count"`
	DraftedCount int           `json:"drafted_count"`
	CreatedAt    time.Time     `json:"created_at"`
}
