package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/roster"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Auction struct {
		Budget            int64             `yaml:"budget"`
		OpeningBid        int64             `yaml:"opening_bid"`
		BidTimeoutSeconds int               `yaml:"bid_timeout_sec"`
		UnsoldPolicy      string            `yaml:"unsold_policy"`
		RosterDesign      string            `yaml:"roster_design"`
		RosterSlots       []roster.SlotSpec `yaml:"roster_slots"`
		CatalogPath       string            `yaml:"catalog_path"`
		TimerWorkers      int               `yaml:"timer_workers"`
	} `yaml:"auction"`

	Database struct {
		Enabled       bool   `yaml:"enabled"`
		NotifyChannel string `yaml:"notify_channel"`
	} `yaml:"database"`

	NATS struct {
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
		// RelayInProcess runs the outbox relay inside the API server.
		RelayInProcess bool `yaml:"relay_in_process"`
	} `yaml:"nats"`

	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_min"`
	} `yaml:"auth"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Auction.Budget = 200
	cfg.Auction.BidTimeoutSeconds = 30
	cfg.Auction.UnsoldPolicy = "return_to_pool"
	cfg.Auction.RosterDesign = roster.DefaultDesignName
	cfg.Auction.TimerWorkers = 4
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.Stream = "AUCTION_EVENTS"
	cfg.Auth.TokenTTLMinutes = 12 * 60
	cfg.RateLimit.PerSecond = 5
	cfg.RateLimit.Burst = 10
	return &cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Auction.BidTimeoutSeconds = getEnvAsInt("AUCTION_BID_TIMEOUT_SEC", c.Auction.BidTimeoutSeconds)
	c.Auction.UnsoldPolicy = getEnv("AUCTION_UNSOLD_POLICY", c.Auction.UnsoldPolicy)
	c.Auction.CatalogPath = getEnv("AUCTION_CATALOG_PATH", c.Auction.CatalogPath)
	c.Database.Enabled = getEnvAsBool("DB_ENABLED", c.Database.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)
	c.NATS.RelayInProcess = getEnvAsBool("NATS_RELAY_IN_PROCESS", c.NATS.RelayInProcess)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTLMinutes = getEnvAsInt("JWT_TTL_MIN", c.Auth.TokenTTLMinutes)
}

// engineConfig turns the auction section into engine defaults.
func (c *Config) engineConfig() (auction.Config, error) {
	engineCfg := auction.DefaultConfig()

	if c.Auction.Budget <= 0 {
		return engineCfg, fmt.Errorf("auction budget must be positive, got %d", c.Auction.Budget)
	}
	if c.Auction.OpeningBid < 0 {
		return engineCfg, fmt.Errorf("opening bid must not be negative, got %d", c.Auction.OpeningBid)
	}
	engineCfg.DefaultBudget = c.Auction.Budget
	engineCfg.OpeningBid = c.Auction.OpeningBid
	engineCfg.BidTimeout = time.Duration(c.Auction.BidTimeoutSeconds) * time.Second

	policy, err := auction.UnsoldPolicyByName(c.Auction.UnsoldPolicy)
	if err != nil {
		return engineCfg, fmt.Errorf("failed to resolve unsold policy: %w", err)
	}
	engineCfg.UnsoldPolicy = policy

	if len(c.Auction.RosterSlots) > 0 {
		design, err := roster.NewDesign(c.Auction.RosterDesign, c.Auction.RosterSlots)
		if err != nil {
			return engineCfg, fmt.Errorf("failed to build default roster design: %w", err)
		}
		engineCfg.RosterDesign = design
	}
	return engineCfg, nil
}

func (c *Config) tokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}
