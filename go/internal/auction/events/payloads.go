package events

import (
	"time"
)

// Event payload types shared by the engine, the gateway and the outbox.

// ParticipantJoinedPayload is the payload for a ParticipantJoined event
type ParticipantJoinedPayload struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RoleAssignedPayload is the payload for a RoleAssigned event
type RoleAssignedPayload struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	PreviousRole string `json:"previous_role,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
	TeamName     string `json:"team_name,omitempty"`
	TeamCreated  bool   `json:"team_created,omitempty"`
	// PreviousTeamID is the team the user held a seat on before this change.
	PreviousTeamID string `json:"previous_team_id,omitempty"`
	// DisplacedUserID lost the seat to UserID and is now an AUCTION_VIEWER
	// with no team.
	DisplacedUserID string `json:"displaced_user_id,omitempty"`
}

// ItemNominatedPayload is the payload for an ItemNominated event
type ItemNominatedPayload struct {
	SchoolID    string     `json:"school_id"`
	SchoolName  string     `json:"school_name"`
	Position    string     `json:"position"`
	TeamID      string     `json:"team_id"`
	OpeningBid  int64      `json:"opening_bid"`
	NominatedAt time.Time  `json:"nominated_at"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	SchoolID string     `json:"school_id"`
	TeamID   string     `json:"team_id"`
	Amount   int64      `json:"amount"`
	PlacedBy string     `json:"placed_by,omitempty"`
	PlacedAt time.Time  `json:"placed_at"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// ItemSettledPayload is the payload for an ItemSettled event. TeamID is empty
// when the school went unsold.
type ItemSettledPayload struct {
	SchoolID         string    `json:"school_id"`
	SchoolName       string    `json:"school_name"`
	Sold             bool      `json:"sold"`
	TeamID           string    `json:"team_id,omitempty"`
	Price            int64     `json:"price,omitempty"`
	SlotID           string    `json:"slot_id,omitempty"`
	SlotPosition     string    `json:"slot_position,omitempty"`
	UnsoldOutcome    string    `json:"unsold_outcome,omitempty"`
	Reason           string    `json:"reason"`
	NextNominatingID string    `json:"next_nominating_team_id,omitempty"`
	SettledAt        time.Time `json:"settled_at"`
}

// AuctionStatusChangedPayload is the payload for an AuctionStatusChanged event
type AuctionStatusChangedPayload struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
