package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recordingPublisher keeps every published envelope in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) all() []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Envelope(nil), p.events...)
}

func (p *recordingPublisher) types() []events.Type {
	var out []events.Type
	for _, e := range p.all() {
		out = append(out, e.EventType)
	}
	return out
}

// fakeTimer records countdown requests instead of running them.
type fakeTimer struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]uint64
	cancels   int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{scheduled: make(map[uuid.UUID]uint64)}
}

func (f *fakeTimer) Schedule(id uuid.UUID, epoch uint64, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[id] = epoch
}

func (f *fakeTimer) Cancel(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, id)
	f.cancels++
}

func (f *fakeTimer) epoch(id uuid.UUID) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.scheduled[id]
	return e, ok
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	engine  *Engine
	pub     *recordingPublisher
	timer   *fakeTimer
	clock   *clockwork.FakeClock
	schools map[string]models.School
}

func newFixture(t *testing.T, slots []roster.SlotSpec, mutate ...func(*Config)) *fixture {
	t.Helper()
	design, err := roster.NewDesign("test roster", slots)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC))
	cfg := Config{
		DefaultBudget: 200,
		BidTimeout:    30 * time.Second,
		RosterDesign:  design,
		TokenCost:     bcrypt.MinCost,
		Clock:         clock,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	pub := &recordingPublisher{}
	timer := newFakeTimer()
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		engine:  NewEngine(cfg, pub, timer),
		pub:     pub,
		timer:   timer,
		clock:   clock,
		schools: make(map[string]models.School),
	}
}

func (f *fixture) catalog(schools ...models.School) *catalog.Catalog {
	cat := catalog.New(schools)
	for _, s := range cat.Schools() {
		f.schools[s.Name] = s
	}
	return cat
}

func school(name, position string) models.School {
	return models.School{Name: name, Conference: position, Position: position}
}

func (f *fixture) create(schools ...models.School) *CreateAuctionResult {
	f.t.Helper()
	res, err := f.engine.CreateAuction(f.ctx, CreateAuctionRequest{Name: "Test Auction", Catalog: f.catalog(schools...)})
	require.NoError(f.t, err)
	return res
}

// team joins userID and makes them coach of a new team.
func (f *fixture) team(created *CreateAuctionResult, userID, name string, budget int64) uuid.UUID {
	f.t.Helper()
	_, err := f.engine.JoinAuction(f.ctx, created.JoinCode, Identity{UserID: userID, DisplayName: userID})
	require.NoError(f.t, err)
	res, err := f.engine.AssignRole(f.ctx, created.AuctionID, AssignRoleRequest{
		UserID:   userID,
		Role:     models.RoleTeamCoach,
		TeamName: name,
		Budget:   budget,
	})
	require.NoError(f.t, err)
	require.NotNil(f.t, res.Team)
	return res.Team.ID
}

func (f *fixture) state(id uuid.UUID) *models.AuctionSnapshot {
	f.t.Helper()
	snap, err := f.engine.GetAuctionState(f.ctx, id)
	require.NoError(f.t, err)
	return snap
}

func teamSnapshot(t *testing.T, snap *models.AuctionSnapshot, id uuid.UUID) models.TeamSnapshot {
	t.Helper()
	for _, ts := range snap.Teams {
		if ts.ID == id {
			return ts
		}
	}
	t.Fatalf("team %s not in snapshot", id)
	return models.TeamSnapshot{}
}

func available(snap *models.AuctionSnapshot, schoolID uuid.UUID) bool {
	for _, s := range snap.AvailableSchools {
		if s.ID == schoolID {
			return true
		}
	}
	return false
}
