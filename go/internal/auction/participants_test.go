package auction

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAuction(t *testing.T) {
	f := newFixture(t, secAndFlex)

	created := f.create(school("Georgia", "SEC"))
	assert.Len(t, created.JoinCode, joinCodeLength)
	assert.NotEmpty(t, created.MasterToken)
	assert.Empty(t, f.pub.all())

	snap := f.state(created.AuctionID)
	assert.Equal(t, models.AuctionStatusNotStarted, snap.Status)
	assert.Equal(t, int64(200), snap.Settings.DefaultBudget)
	assert.Len(t, snap.AvailableSchools, 1)
	assert.Equal(t, 2, snap.RosterDesign.Size())
	assert.Nil(t, snap.NominatingTeamID)
	assert.Zero(t, snap.Sequence)

	_, err := f.engine.CreateAuction(f.ctx, CreateAuctionRequest{Name: " ", Catalog: f.catalog(school("Texas", "SEC"))})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name", validation.Field)

	_, err = f.engine.CreateAuction(f.ctx, CreateAuctionRequest{Name: "Empty", Catalog: catalog.New(nil)})
	require.ErrorAs(t, err, &validation)

	_, err = f.engine.CreateAuction(f.ctx, CreateAuctionRequest{
		Name:         "No slots",
		Catalog:      f.catalog(school("Texas", "SEC")),
		RosterDesign: &models.RosterDesign{Name: "empty"},
	})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "roster_design", validation.Field)
}

func TestCreateAuction_OverridesDesignAndBudget(t *testing.T) {
	f := newFixture(t, secAndFlex)
	design, err := roster.NewDesign("", []roster.SlotSpec{{Position: models.FlexPosition}})
	require.NoError(t, err)

	created, err := f.engine.CreateAuction(f.ctx, CreateAuctionRequest{
		Name:         "Custom",
		Catalog:      f.catalog(school("Georgia", "SEC")),
		RosterDesign: &design,
		Budget:       75,
	})
	require.NoError(t, err)

	snap := f.state(created.AuctionID)
	assert.Equal(t, roster.DefaultDesignName, snap.RosterDesign.Name)
	assert.Equal(t, 1, snap.RosterDesign.Size())
	assert.Equal(t, int64(75), snap.Settings.DefaultBudget)

	a := f.team(created, "alice", "Team A", 0)
	assert.Equal(t, int64(75), teamSnapshot(t, f.state(created.AuctionID), a).Budget)
}

func TestVerifyMasterToken(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))

	ok, err := f.engine.VerifyMasterToken(f.ctx, created.AuctionID, created.MasterToken)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.VerifyMasterToken(f.ctx, created.AuctionID, "not-the-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.engine.VerifyMasterToken(f.ctx, created.AuctionID, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.engine.VerifyMasterToken(f.ctx, uuid.New(), created.MasterToken)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestJoinAuction_Idempotent(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))

	first, err := f.engine.JoinAuction(f.ctx, strings.ToLower(created.JoinCode)+" ", Identity{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, created.AuctionID, first.AuctionID)
	assert.Equal(t, models.RoleAuctionViewer, first.Participant.Role)
	assert.Equal(t, "Alice", first.Participant.DisplayName)

	again, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: "alice", DisplayName: "Someone Else"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, "Alice", again.Participant.DisplayName)

	assert.Equal(t, []events.Type{events.TypeParticipantJoined}, f.pub.types())

	ok, err := f.engine.IsParticipant(f.ctx, created.AuctionID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.engine.IsParticipant(f.ctx, created.AuctionID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.engine.JoinAuction(f.ctx, "ZZZZZZ", Identity{UserID: "bob"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAssignRole_CreatesTeams(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))
	a := f.team(created, "alice", "Team A", 0)

	ok, err := f.engine.CanActForTeam(f.ctx, created.AuctionID, a, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: "bob"})
	require.NoError(t, err)
	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "bob", Role: models.RoleTeamCoach, TeamName: "team a"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "bob", Role: models.RoleTeamCoach})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "nobody", Role: models.RoleAuctionViewer})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "bob", Role: "CAPTAIN"})
	require.ErrorAs(t, err, &validation)

	_, err = f.engine.Start(f.ctx, created.AuctionID)
	require.NoError(t, err)
	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "bob", Role: models.RoleTeamCoach, TeamName: "Late"})
	require.ErrorAs(t, err, &conflict)
}

func TestAssignRole_TakeoverAndProxy(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))
	a := f.team(created, "alice", "Team A", 0)
	for _, user := range []string{"carol", "pat"} {
		_, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: user})
		require.NoError(t, err)
	}

	res, err := f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "carol", Role: models.RoleTeamCoach, TeamID: a})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "carol", res.Team.CoachUserID)

	_, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "pat", Role: models.RoleProxyCoach})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	res, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "pat", Role: models.RoleProxyCoach, TeamID: a})
	require.NoError(t, err)
	assert.Equal(t, "pat", res.Team.ProxyUserID)

	snap := f.state(created.AuctionID)
	roles := map[string]models.Participant{}
	for _, p := range snap.Participants {
		roles[p.UserID] = p
	}
	assert.Equal(t, models.RoleAuctionViewer, roles["alice"].Role)
	assert.Nil(t, roles["alice"].TeamID)
	assert.Equal(t, models.RoleTeamCoach, roles["carol"].Role)
	assert.Equal(t, models.RoleProxyCoach, roles["pat"].Role)
	require.NotNil(t, roles["pat"].TeamID)
	assert.Equal(t, a, *roles["pat"].TeamID)

	for user, want := range map[string]bool{"alice": false, "carol": true, "pat": true} {
		ok, err := f.engine.CanActForTeam(f.ctx, created.AuctionID, a, user)
		require.NoError(t, err)
		assert.Equal(t, want, ok, user)
	}

	before := len(f.pub.all())
	res, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "pat", Role: models.RoleProxyCoach, TeamID: a})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Len(t, f.pub.all(), before)

	res, err = f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: "pat", Role: models.RoleAuctionViewer})
	require.NoError(t, err)
	assert.Nil(t, res.Participant.TeamID)
	ok, err := f.engine.CanActForTeam(f.ctx, created.AuctionID, a, "pat")
	require.NoError(t, err)
	assert.False(t, ok)

	all := f.pub.all()
	decoded, err := events.Decode(all[len(all)-1])
	require.NoError(t, err)
	assigned := decoded.(*events.RoleAssignedPayload)
	assert.Equal(t, string(models.RoleProxyCoach), assigned.PreviousRole)
	assert.Equal(t, string(models.RoleAuctionViewer), assigned.Role)
}

func TestAssignRole_RejectsAuctionMaster(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))
	for _, user := range []string{"u1", "u2"} {
		_, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: user})
		require.NoError(t, err)
	}
	before := len(f.pub.all())

	for _, user := range []string{"u1", "u2"} {
		_, err := f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{UserID: user, Role: models.RoleAuctionMaster})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "role", validation.Field)
	}

	for _, p := range f.state(created.AuctionID).Participants {
		assert.NotEqual(t, models.RoleAuctionMaster, p.Role, p.UserID)
	}
	assert.Len(t, f.pub.all(), before)
}

// replayParticipants rebuilds participant roles from the published events.
func replayParticipants(t *testing.T, envs []events.Envelope) map[string]models.Participant {
	t.Helper()
	out := map[string]models.Participant{}
	for _, env := range envs {
		decoded, err := events.Decode(env)
		require.NoError(t, err)
		switch p := decoded.(type) {
		case *events.ParticipantJoinedPayload:
			out[p.UserID] = models.Participant{UserID: p.UserID, Role: models.Role(p.Role)}
		case *events.RoleAssignedPayload:
			if p.DisplacedUserID != "" {
				out[p.DisplacedUserID] = models.Participant{UserID: p.DisplacedUserID, Role: models.RoleAuctionViewer}
			}
			next := models.Participant{UserID: p.UserID, Role: models.Role(p.Role)}
			if p.TeamID != "" {
				id, err := uuid.Parse(p.TeamID)
				require.NoError(t, err)
				next.TeamID = &id
			}
			out[p.UserID] = next
		}
	}
	return out
}

func TestAssignRole_EventsReplayToSnapshot(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))
	a := f.team(created, "alice", "Team A", 0)
	b := f.team(created, "bob", "Team B", 0)
	for _, user := range []string{"carol", "pat", "quinn"} {
		_, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: user})
		require.NoError(t, err)
	}

	steps := []AssignRoleRequest{
		{UserID: "carol", Role: models.RoleTeamCoach, TeamID: a},
		{UserID: "pat", Role: models.RoleProxyCoach, TeamID: a},
		{UserID: "quinn", Role: models.RoleProxyCoach, TeamID: a},
		{UserID: "carol", Role: models.RoleTeamCoach, TeamID: b},
		{UserID: "quinn", Role: models.RoleAuctionViewer},
	}
	for _, step := range steps {
		_, err := f.engine.AssignRole(f.ctx, created.AuctionID, step)
		require.NoError(t, err)
	}

	replayed := replayParticipants(t, f.pub.all())
	snap := f.state(created.AuctionID)
	require.Len(t, replayed, len(snap.Participants))
	for _, p := range snap.Participants {
		got := replayed[p.UserID]
		assert.Equal(t, p.Role, got.Role, p.UserID)
		assert.Equal(t, p.TeamID, got.TeamID, p.UserID)
	}

	envs := f.pub.all()
	decoded, err := events.Decode(envs[len(envs)-2])
	require.NoError(t, err)
	moved := decoded.(*events.RoleAssignedPayload)
	assert.Equal(t, "carol", moved.UserID)
	assert.Equal(t, a.String(), moved.PreviousTeamID)
	assert.Equal(t, "bob", moved.DisplacedUserID)

	decoded, err = events.Decode(envs[len(envs)-1])
	require.NoError(t, err)
	left := decoded.(*events.RoleAssignedPayload)
	assert.Equal(t, a.String(), left.PreviousTeamID)
	assert.Empty(t, left.DisplacedUserID)
}

func TestEmit_UnencodablePayloadKeepsSequence(t *testing.T) {
	f := newFixture(t, secAndFlex)
	created := f.create(school("Georgia", "SEC"))
	_, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: "alice"})
	require.NoError(t, err)

	st, err := f.engine.lookup(created.AuctionID)
	require.NoError(t, err)
	st.mu.Lock()
	f.engine.emit(f.ctx, st, events.TypeRoleAssigned, map[string]any{"bad": make(chan int)})
	st.mu.Unlock()

	_, err = f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: "bob"})
	require.NoError(t, err)

	var seqs []uint64
	for _, env := range f.pub.all() {
		seqs = append(seqs, env.Sequence)
	}
	assert.Equal(t, []uint64{1, 2}, seqs)
	assert.Equal(t, uint64(2), f.state(created.AuctionID).Sequence)
}
