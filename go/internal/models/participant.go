package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the single role a user holds within one auction.
type Role string

const (
	RoleAuctionMaster Role = "AUCTION_MASTER"
	RoleTeamCoach     Role = "TEAM_COACH"
	RoleProxyCoach    Role = "PROXY_COACH"
	RoleAuctionViewer Role = "AUCTION_VIEWER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAuctionMaster, RoleTeamCoach, RoleProxyCoach, RoleAuctionViewer:
		return true
	}
	return false
}

// Participant is a user connected to an auction.
type Participant struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Role        Role       `json:"role"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}
