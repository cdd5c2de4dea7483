package auction

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Identity is an authenticated user as seen by the engine.
type Identity struct {
	UserID      string
	DisplayName string
}

// JoinResult is returned by JoinAuction.
type JoinResult struct {
	AuctionID   uuid.UUID          `json:"auction_id"`
	Participant models.Participant `json:"participant"`
	Created     bool               `json:"created"`
}

// JoinAuction adds the user to the auction behind joinCode as a viewer.
// Joining again returns the existing participant and emits nothing.
func (e *Engine) JoinAuction(ctx context.Context, joinCode string, id Identity) (*JoinResult, error) {
	userID := strings.TrimSpace(id.UserID)
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	code := NormalizeJoinCode(joinCode)

	e.mu.RLock()
	auctionID, ok := e.joinCodes[code]
	e.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Kind: "join code", ID: code}
	}

	var result JoinResult
	err := e.withAuction(auctionID, func(st *auctionState) error {
		if st.status.IsTerminal() {
			return &InvalidTransitionError{From: st.status, Action: "join"}
		}
		if p, exists := st.participants[userID]; exists {
			result = JoinResult{AuctionID: st.id, Participant: *p}
			return nil
		}

		name := strings.TrimSpace(id.DisplayName)
		if name == "" {
			name = userID
		}
		p := &models.Participant{
			UserID:      userID,
			DisplayName: name,
			Role:        models.RoleAuctionViewer,
			JoinedAt:    e.clock.Now().UTC(),
		}
		st.participants[userID] = p
		st.participantOrder = append(st.participantOrder, userID)

		e.emit(ctx, st, events.TypeParticipantJoined, events.ParticipantJoinedPayload{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Role:        string(p.Role),
			JoinedAt:    p.JoinedAt,
		})
		log.Info().
			Str("auction_id", st.id.String()).
			Str("user_id", userID).
			Msg("participant joined")

		result = JoinResult{AuctionID: st.id, Participant: *p, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AssignRoleRequest changes a participant's role.
//
// For TeamCoach, a nil TeamID creates a new team named TeamName (only before
// the auction starts); a set TeamID hands an existing team to the user. For
// ProxyCoach, TeamID is required. Budget overrides the auction default for a
// newly created team.
type AssignRoleRequest struct {
	UserID   string
	Role     models.Role
	TeamID   uuid.UUID
	TeamName string
	Budget   int64
}

// RoleAssignment is returned by AssignRole.
type RoleAssignment struct {
	Participant models.Participant `json:"participant"`
	Team        *models.Team       `json:"team,omitempty"`
	Changed     bool               `json:"changed"`
}

// AssignRole gives a participant exactly one role, displacing any previous
// coach or proxy of the target team.
func (e *Engine) AssignRole(ctx context.Context, auctionID uuid.UUID, req AssignRoleRequest) (*RoleAssignment, error) {
	if !req.Role.Valid() {
		return nil, &ValidationError{Field: "role", Reason: "unknown role " + string(req.Role)}
	}
	if req.Role == models.RoleAuctionMaster {
		return nil, &ValidationError{Field: "role", Reason: "the auction master is held by the master token and cannot be assigned"}
	}

	var result RoleAssignment
	err := e.withAuction(auctionID, func(st *auctionState) error {
		if st.status.IsTerminal() {
			return &InvalidTransitionError{From: st.status, Action: "assign roles"}
		}
		p, ok := st.participants[req.UserID]
		if !ok {
			return &NotFoundError{Kind: "participant", ID: req.UserID}
		}

		previous := p.Role
		var previousTeam string
		if p.TeamID != nil {
			previousTeam = p.TeamID.String()
		}
		var (
			team      *models.Team
			created   bool
			displaced string
		)
		switch req.Role {
		case models.RoleTeamCoach:
			if req.TeamID == uuid.Nil {
				t, err := e.createTeam(st, req)
				if err != nil {
					return err
				}
				team, created = t, true
			} else {
				t, err := st.team(req.TeamID)
				if err != nil {
					return err
				}
				if t.CoachUserID == p.UserID && p.Role == models.RoleTeamCoach {
					result = RoleAssignment{Participant: *p, Team: copyTeam(t)}
					return nil
				}
				team = t
			}
			st.detach(p)
			if team.CoachUserID != "" && team.CoachUserID != p.UserID {
				displaced = team.CoachUserID
				st.demote(displaced)
			}
			team.CoachUserID = p.UserID

		case models.RoleProxyCoach:
			if req.TeamID == uuid.Nil {
				return &ValidationError{Field: "team_id", Reason: "is required for a proxy coach"}
			}
			t, err := st.team(req.TeamID)
			if err != nil {
				return err
			}
			if t.ProxyUserID == p.UserID && p.Role == models.RoleProxyCoach {
				result = RoleAssignment{Participant: *p, Team: copyTeam(t)}
				return nil
			}
			team = t
			st.detach(p)
			if team.ProxyUserID != "" && team.ProxyUserID != p.UserID {
				displaced = team.ProxyUserID
				st.demote(displaced)
			}
			team.ProxyUserID = p.UserID

		default:
			if p.Role == req.Role {
				result = RoleAssignment{Participant: *p}
				return nil
			}
			st.detach(p)
		}

		p.Role = req.Role
		payload := events.RoleAssignedPayload{
			UserID:          p.UserID,
			Role:            string(req.Role),
			PreviousRole:    string(previous),
			PreviousTeamID:  previousTeam,
			DisplacedUserID: displaced,
		}
		if team != nil {
			id := team.ID
			p.TeamID = &id
			payload.TeamID = team.ID.String()
			payload.TeamName = team.Name
			payload.TeamCreated = created
			result.Team = copyTeam(team)
		}
		e.emit(ctx, st, events.TypeRoleAssigned, payload)

		log.Info().
			Str("auction_id", st.id.String()).
			Str("user_id", p.UserID).
			Str("role", string(req.Role)).
			Str("previous_role", string(previous)).
			Msg("role assigned")

		result.Participant = *p
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (e *Engine) createTeam(st *auctionState, req AssignRoleRequest) (*models.Team, error) {
	if st.status != models.AuctionStatusNotStarted {
		return nil, &ConflictError{Reason: "teams can only be created before the auction starts"}
	}
	name := strings.TrimSpace(req.TeamName)
	if name == "" {
		return nil, &ValidationError{Field: "team_name", Reason: "is required to create a team"}
	}
	for _, id := range st.teamOrder {
		if strings.EqualFold(st.teams[id].Name, name) {
			return nil, &ConflictError{Reason: "a team named " + name + " already exists"}
		}
	}
	budget := st.settings.DefaultBudget
	if req.Budget != 0 {
		if req.Budget < 0 {
			return nil, &ValidationError{Field: "budget", Reason: "must be positive"}
		}
		budget = req.Budget
	}

	t := &models.Team{
		ID:              uuid.New(),
		Name:            name,
		Budget:          budget,
		NominationOrder: len(st.teamOrder) + 1,
	}
	st.teams[t.ID] = t
	st.teamOrder = append(st.teamOrder, t.ID)
	return t, nil
}

func copyTeam(t *models.Team) *models.Team {
	out := *t
	out.Picks = append([]models.DraftPick(nil), t.Picks...)
	return &out
}
