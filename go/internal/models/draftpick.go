package models

import (
	"github.com/google/uuid"
	"time"
)

// DraftPick records a settled school: which team won it, for how much, and
// the roster slot it fills.
type DraftPick struct {
	TeamID      uuid.UUID `json:"team_id"`
	SchoolID    uuid.UUID `json:"school_id"`
	SchoolName  string    `json:"school_name"`
	SlotID      uuid.UUID `json:"slot_id"`
	Position    string    `json:"position"` // slot position name, "Flex" when filled by wildcard
	AuctionCost int64     `json:"auction_cost"`
	DraftedAt   time.Time `json:"drafted_at"`
}
