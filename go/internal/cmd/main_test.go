package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schoolsCSV = `Name,Conference,ProjectedPoints,NumberOfProspects,SchoolURL,SuggestedAuctionValue,LeagifyPosition,ProjectedPointsAboveAverage,ProjectedPointsAboveReplacement,AveragePointsForPosition,ReplacementValueAverageForPosition
Georgia,SEC,140.5,15,https://example.com/uga,50,SEC,30.1,41.0,90.3,80.4
Ohio State,Big Ten,131.0,12,https://example.com/osu,44,Big Ten,22.4,33.0,88.1,79.2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(200), cfg.Auction.Budget)
	assert.Equal(t, 30, cfg.Auction.BidTimeoutSeconds)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: "9000"
auction:
  budget: 150
  opening_bid: 1
  bid_timeout_sec: 20
  unsold_policy: withdraw
  roster_design: Conferences
  roster_slots:
    - position: SEC
      color_code: "#112233"
    - position: Flex
rate_limit:
  per_second: 2
  burst: 3
`)
	t.Setenv("PORT", "9100")
	t.Setenv("AUCTION_BID_TIMEOUT_SEC", "45")
	t.Setenv("DB_ENABLED", "true")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, int64(150), cfg.Auction.Budget)
	assert.Equal(t, 45, cfg.Auction.BidTimeoutSeconds)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	require.Len(t, cfg.Auction.RosterSlots, 2)

	engineCfg, err := cfg.engineConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(150), engineCfg.DefaultBudget)
	assert.Equal(t, int64(1), engineCfg.OpeningBid)
	assert.Equal(t, 45*time.Second, engineCfg.BidTimeout)
	assert.Equal(t, "Conferences", engineCfg.RosterDesign.Name)
	require.Len(t, engineCfg.RosterDesign.Slots, 2)
	assert.Equal(t, "SEC", engineCfg.RosterDesign.Slots[0].PositionName)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestEngineConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero budget", func(c *Config) { c.Auction.Budget = 0 }},
		{"negative opening bid", func(c *Config) { c.Auction.OpeningBid = -1 }},
		{"unknown policy", func(c *Config) { c.Auction.UnsoldPolicy = "burn" }},
		{"blank slot", func(c *Config) { c.Auction.RosterSlots = []roster.SlotSpec{{Position: " "}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			_, err := cfg.engineConfig()
			assert.Error(t, err)
		})
	}
}

func newTestServer(t *testing.T, perSecond float64) (*httptest.Server, *Services) {
	t.Helper()
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auction.CatalogPath = writeFile(t, dir, "schools.csv", schoolsCSV)
	cfg.Auction.RosterSlots = []roster.SlotSpec{{Position: "SEC"}, {Position: "Flex"}}
	cfg.RateLimit.PerSecond = perSecond
	cfg.RateLimit.Burst = 1

	services, err := setupServices(cfg, nil, "")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		services.Shutdown(ctx)
	})

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(srv.Close)
	return srv, services
}

func postJSON(t *testing.T, srv *httptest.Server, procedure, body string) *http.Response {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+procedure, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_CreateAuctionWithDefaultCatalog(t *testing.T) {
	srv, services := newTestServer(t, 0)

	resp := postJSON(t, srv, auction.CreateAuctionProcedure, `{"name":"Saturday Auction"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created auction.CreateAuctionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.JoinCode)

	state, err := srv.Client().Get(srv.URL + "/api/auctions/" + created.AuctionID.String() + "/state")
	require.NoError(t, err)
	defer state.Body.Close()
	require.Equal(t, http.StatusOK, state.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(state.Body).Decode(&body))
	assert.Equal(t, "Saturday Auction", body["name"])
	assert.Len(t, body["available_schools"], 2)

	snap, err := services.Engine.GetAuctionState(context.Background(), created.AuctionID)
	require.NoError(t, err)
	assert.Len(t, snap.AvailableSchools, 2)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestServer_RateLimitsBids(t *testing.T) {
	srv, _ := newTestServer(t, 0.001)

	first := postJSON(t, srv, auction.PlaceBidProcedure, `{}`)
	assert.NotEqual(t, http.StatusTooManyRequests, first.StatusCode)

	second := postJSON(t, srv, auction.PlaceBidProcedure, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "1", second.Header.Get("Retry-After"))

	// other procedures are not limited
	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv, auction.ListAuctionsProcedure, `{}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
