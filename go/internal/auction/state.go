package auction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/roster"
)

type schoolEntry struct {
	school models.School
	status models.SchoolStatus
}

type block struct {
	schoolID    uuid.UUID
	nominatedBy uuid.UUID
	highBid     int64
	highBidder  *uuid.UUID
	deadline    *time.Time
	epoch       uint64
}

// auctionState is the authoritative record of one auction. Every field is
// guarded by mu.
type auctionState struct {
	mu sync.Mutex

	id          uuid.UUID
	name        string
	status      models.AuctionStatus
	joinCode    string
	tokenHash   []byte
	settings    models.AuctionSettings
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time

	design  models.RosterDesign
	pool    []uuid.UUID
	schools map[uuid.UUID]*schoolEntry

	teams     map[uuid.UUID]*models.Team
	teamOrder []uuid.UUID

	participants     map[string]*models.Participant
	participantOrder []string

	// nominator indexes teamOrder; full rosters are skipped when resolving
	nominator int
	block     *block
	epoch     uint64
	seq       uint64
	fault     error
}

func (s *auctionState) team(id uuid.UUID) (*models.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return nil, &NotFoundError{Kind: "team", ID: id.String()}
	}
	return t, nil
}

func (s *auctionState) teamFull(t *models.Team) bool {
	return roster.IsFull(s.design, t.FilledSlots())
}

func (s *auctionState) allRostersFull() bool {
	if len(s.teamOrder) == 0 {
		return false
	}
	for _, id := range s.teamOrder {
		if !s.teamFull(s.teams[id]) {
			return false
		}
	}
	return true
}

// currentNominator resolves whose turn it is, skipping full rosters.
func (s *auctionState) currentNominator() (uuid.UUID, bool) {
	n := len(s.teamOrder)
	for i := 0; i < n; i++ {
		id := s.teamOrder[(s.nominator+i)%n]
		if !s.teamFull(s.teams[id]) {
			return id, true
		}
	}
	return uuid.Nil, false
}

// advanceNominationAfter moves the turn to the team following teamID.
func (s *auctionState) advanceNominationAfter(teamID uuid.UUID) {
	n := len(s.teamOrder)
	if n == 0 {
		return
	}
	for i, id := range s.teamOrder {
		if id == teamID {
			s.nominator = (i + 1) % n
			return
		}
	}
	s.nominator = (s.nominator + 1) % n
}

// detach removes the user from whatever team they coach or proxy for.
func (s *auctionState) detach(p *models.Participant) {
	if p.TeamID == nil {
		return
	}
	if t, ok := s.teams[*p.TeamID]; ok {
		if t.CoachUserID == p.UserID {
			t.CoachUserID = ""
		}
		if t.ProxyUserID == p.UserID {
			t.ProxyUserID = ""
		}
	}
	p.TeamID = nil
}

// demote turns a displaced coach or proxy back into a viewer.
func (s *auctionState) demote(userID string) {
	if userID == "" {
		return
	}
	if p, ok := s.participants[userID]; ok {
		p.Role = models.RoleAuctionViewer
		p.TeamID = nil
	}
}

func (s *auctionState) draftedCount() int {
	n := 0
	for _, id := range s.pool {
		if s.schools[id].status == models.SchoolStatusDrafted {
			n++
		}
	}
	return n
}
