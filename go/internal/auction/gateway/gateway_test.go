package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/leagify/go/internal/access"
	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/auction/broadcast"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*models.AuctionSnapshot
	err       error
}

func newFakeProvider(snaps ...*models.AuctionSnapshot) *fakeProvider {
	p := &fakeProvider{snapshots: make(map[uuid.UUID]*models.AuctionSnapshot)}
	for _, snap := range snaps {
		p.snapshots[snap.ID] = snap
	}
	return p
}

func (p *fakeProvider) set(snap *models.AuctionSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[snap.ID] = snap
}

func (p *fakeProvider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProvider) GetAuctionState(_ context.Context, id uuid.UUID) (*models.AuctionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	snap, ok := p.snapshots[id]
	if !ok {
		return nil, &auction.NotFoundError{Kind: "auction", ID: id.String()}
	}
	return snap, nil
}

func (p *fakeProvider) GetActiveAuctions(context.Context) ([]models.AuctionSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.AuctionSummary
	for _, snap := range p.snapshots {
		out = append(out, models.AuctionSummary{ID: snap.ID, Name: snap.Name, Status: snap.Status})
	}
	return out, p.err
}

func snapshot(id uuid.UUID, seq uint64) *models.AuctionSnapshot {
	return &models.AuctionSnapshot{
		Auction:  models.Auction{ID: id, Name: "Saturday Auction", Status: models.AuctionStatusInProgress},
		Sequence: seq,
	}
}

func envelope(t *testing.T, id uuid.UUID, seq uint64) events.Envelope {
	t.Helper()
	env, err := events.New(id, seq, events.TypeParticipantJoined, time.Now(),
		events.ParticipantJoinedPayload{UserID: "alice", DisplayName: "Alice", Role: string(models.RoleAuctionViewer)})
	require.NoError(t, err)
	return env
}

func TestExtractAuctionIDFromPath(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		path string
		want string
	}{
		{"/api/auctions/" + id + "/state", id},
		{"/api/auctions//state", ""},
		{"/api/auctions/" + id, ""},
		{"/api/auctions/a/b/state", ""},
		{"/api/drafts/" + id + "/state", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractAuctionIDFromPath(tt.path), tt.path)
	}
}

func TestStateHandler(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 18, 0, 0, 0, time.UTC))
	id := uuid.New()
	snap := snapshot(id, 9)
	deadline := clock.Now().Add(12 * time.Second)
	snap.Block = &models.BlockSnapshot{School: models.School{Name: "Georgia"}, HighBid: 5, Deadline: &deadline}
	provider := newFakeProvider(snap)

	mux := http.NewServeMux()
	NewStateHandler(provider, clock).RegisterStateRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/auctions/" + id.String() + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		ID            uuid.UUID `json:"id"`
		Sequence      uint64    `json:"sequence"`
		TimeRemaining *int      `json:"time_remaining_sec"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id, body.ID)
	assert.Equal(t, uint64(9), body.Sequence)
	require.NotNil(t, body.TimeRemaining)
	assert.Equal(t, 12, *body.TimeRemaining)

	for path, want := range map[string]int{
		"/api/auctions/" + uuid.NewString() + "/state": http.StatusNotFound,
		"/api/auctions/not-a-uuid/state":               http.StatusBadRequest,
		"/api/auctions/" + id.String():                 http.StatusNotFound,
	} {
		r, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, want, r.StatusCode, path)
	}

	list, err := http.Get(srv.URL + "/api/auctions/active")
	require.NoError(t, err)
	defer list.Body.Close()
	var summaries []models.AuctionSummary
	require.NoError(t, json.NewDecoder(list.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)

	provider.fail(errors.New("boom"))
	r, err := http.Get(srv.URL + "/api/auctions/active")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
}

type wsFixture struct {
	srv      *httptest.Server
	cm       *ConnectionManager
	provider *fakeProvider
	issuer   *access.Issuer
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	provider := newFakeProvider()
	issuer, err := access.NewIssuer("gateway-secret", time.Hour, nil)
	require.NoError(t, err)

	svc, err := NewService(DefaultConfig(), provider, issuer)
	require.NoError(t, err)
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.connectionManager.Start(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &wsFixture{srv: srv, cm: svc.connectionManager, provider: provider, issuer: issuer}
}

func (f *wsFixture) dial(t *testing.T, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/auction?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestWebSocket_SnapshotThenEvents(t *testing.T) {
	f := newWSFixture(t)
	id := uuid.New()
	f.provider.set(snapshot(id, 4))

	token, _, err := f.issuer.Issue("alice", "Alice")
	require.NoError(t, err)
	conn, _, err := f.dial(t, "auction_id="+id.String()+"&token="+token)
	require.NoError(t, err)
	defer conn.Close()

	var state StateMessage
	readJSON(t, conn, &state)
	assert.Equal(t, MessageTypeAuctionState, state.Type)
	assert.Equal(t, uint64(4), state.Sequence)
	require.NotNil(t, state.State)
	assert.Equal(t, id, state.State.ID)

	stats := f.cm.GetConnectionStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.AuctionConnections[id.String()])

	// events for other auctions are not delivered
	require.NoError(t, f.cm.Publish(context.Background(), events.Topic(uuid.New()), envelope(t, uuid.New(), 1)))
	require.NoError(t, f.cm.Publish(context.Background(), events.Topic(id), envelope(t, id, 5)))

	var env events.Envelope
	readJSON(t, conn, &env)
	assert.Equal(t, id, env.AuctionID)
	assert.Equal(t, uint64(5), env.Sequence)
	assert.Equal(t, events.TypeParticipantJoined, env.EventType)

	f.provider.set(snapshot(id, 5))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessageResync}))
	readJSON(t, conn, &state)
	assert.Equal(t, uint64(5), state.Sequence)

	conn.Close()
	require.Eventually(t, func() bool { return f.cm.GetConnectionStats().TotalConnections == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_Rejections(t *testing.T) {
	f := newWSFixture(t)
	id := uuid.New()
	f.provider.set(snapshot(id, 1))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing auction", "", http.StatusBadRequest},
		{"malformed auction", "auction_id=nope", http.StatusBadRequest},
		{"unknown auction", "auction_id=" + uuid.NewString(), http.StatusNotFound},
		{"bad token", "auction_id=" + id.String() + "&token=garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := f.dial(t, tt.query)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestConnectionManager_PublishRejectsBadTopic(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	assert.Error(t, cm.Publish(context.Background(), "draft.123", events.Envelope{}))
}

func TestEventConsumer_Handle(t *testing.T) {
	var got []events.Envelope
	var failNext bool
	sink := broadcast.GatewayFunc(func(_ context.Context, topic string, env events.Envelope) error {
		if failNext {
			failNext = false
			return ErrBroadcastQueueFull
		}
		assert.Equal(t, events.Topic(env.AuctionID), topic)
		got = append(got, env)
		return nil
	})
	ec := newEventConsumer(sink, DefaultJetStreamConsumerConfig())
	ctx := context.Background()
	id := uuid.New()

	encode := func(env events.Envelope) []byte {
		data, err := json.Marshal(env)
		require.NoError(t, err)
		return data
	}

	require.NoError(t, ec.handle(ctx, events.Subject(id), encode(envelope(t, id, 1))))
	require.NoError(t, ec.handle(ctx, events.Subject(id), encode(envelope(t, id, 1))))
	assert.Len(t, got, 1, "redelivered event is skipped")

	failNext = true
	err := ec.handle(ctx, events.Subject(id), encode(envelope(t, id, 2)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errPoison)
	require.NoError(t, ec.handle(ctx, events.Subject(id), encode(envelope(t, id, 2))))
	assert.Len(t, got, 2, "failed delivery is retried")

	assert.ErrorIs(t, ec.handle(ctx, "x", []byte("{")), errPoison)
	assert.ErrorIs(t, ec.handle(ctx, "x", encode(events.Envelope{Sequence: 3})), errPoison)
	unknown := envelope(t, id, 3)
	unknown.EventType = "Mystery"
	assert.ErrorIs(t, ec.handle(ctx, "x", encode(unknown)), errPoison)
}
