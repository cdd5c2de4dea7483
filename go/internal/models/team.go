package models

import (
	"github.com/google/uuid"
)

// Team represents a bidding team inside an auction.
type Team struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	CoachUserID     string      `json:"coach_user_id,omitempty"`
	ProxyUserID     string      `json:"proxy_user_id,omitempty"`
	Budget          int64       `json:"budget"`
	Spent           int64       `json:"spent"`
	NominationOrder int         `json:"nomination_order"`
	Picks           []DraftPick `json:"picks"`
}

// Remaining returns the unspent budget.
func (t Team) Remaining() int64 {
	return t.Budget - t.Spent
}

// FilledSlots maps slot id to the school occupying it.
func (t Team) FilledSlots() map[uuid.UUID]uuid.UUID {
	filled := make(map[uuid.UUID]uuid.UUID, len(t.Picks))
	for _, p := range t.Picks {
		filled[p.SlotID] = p.SchoolID
	}
	return filled
}
