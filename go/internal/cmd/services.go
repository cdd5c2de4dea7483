package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/mcdev12/leagify/go/internal/access"
	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/auction/broadcast"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/auction/gateway"
	"github.com/mcdev12/leagify/go/internal/auction/orchestrator"
	"github.com/mcdev12/leagify/go/internal/auction/outbox"
	"github.com/mcdev12/leagify/go/internal/catalog"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Engine    *auction.Engine
	Auction   *auction.Service
	Gateway   *gateway.Service
	Scheduler *orchestrator.Scheduler

	// Relay and Publisher are set when the outbox relay runs in process.
	Relay     *outbox.Relay
	Publisher *outbox.JetStreamPublisher

	dispatchers []*broadcast.Dispatcher
}

// fanout forwards engine events to sinks that are built after the engine,
// since both the gateway and the journal read state back from it.
type fanout struct {
	sinks broadcast.Gateway
}

func (f *fanout) Publish(ctx context.Context, topic string, event events.Envelope) error {
	if f.sinks == nil {
		return nil
	}
	return f.sinks.Publish(ctx, topic, event)
}

func setupServices(cfg *Config, database *sql.DB, dsn string) (*Services, error) {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return nil, err
	}

	var defaultCatalog *catalog.Catalog
	if cfg.Auction.CatalogPath != "" {
		cat, summary, err := catalog.LoadFile(cfg.Auction.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load default catalog: %w", err)
		}
		log.Info().
			Str("path", cfg.Auction.CatalogPath).
			Int("parsed", summary.Parsed).
			Int("malformed", summary.MalformedLines).
			Int("blank_lines", summary.BlankLines).
			Msg("loaded default school catalog")
		defaultCatalog = cat
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("JWT_SECRET not set, issuing tokens with an ephemeral secret")
	}
	issuer, err := access.NewIssuer(secret, cfg.tokenTTL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	scheduler := orchestrator.NewScheduler(orchestrator.Config{Workers: cfg.Auction.TimerWorkers})
	out := &fanout{}
	engine := auction.NewEngine(engineCfg, out, scheduler)

	gwCfg := gateway.DefaultConfig()
	gw, err := gateway.NewService(gwCfg, gateway.NewEngineStateProvider(engine), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	services := &Services{
		Engine:    engine,
		Auction:   auction.NewService(engine, access.NewVerifier(engine), issuer, defaultCatalog),
		Gateway:   gw,
		Scheduler: scheduler,
	}

	live := broadcast.NewDispatcher(gw.Publisher(), broadcast.DispatcherConfig{Name: "websocket"})
	services.dispatchers = append(services.dispatchers, live)
	sinks := broadcast.Multi{live}

	if database != nil {
		journal := outbox.NewJournal(database, engine, cfg.Database.NotifyChannel)
		durable := broadcast.NewDispatcher(journal, broadcast.DispatcherConfig{Name: "journal", BufferSize: 4096})
		services.dispatchers = append(services.dispatchers, durable)
		sinks = append(sinks, durable)

		if cfg.NATS.RelayInProcess {
			if err := services.setupRelay(cfg, database, dsn); err != nil {
				return nil, err
			}
		}
	}
	out.sinks = sinks

	return services, nil
}

func (s *Services) setupRelay(cfg *Config, database *sql.DB, dsn string) error {
	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	jsCfg.StreamName = cfg.NATS.Stream
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return fmt.Errorf("failed to create JetStream publisher: %w", err)
	}

	relayCfg := outbox.DefaultRelayConfig()
	relayCfg.DatabaseURL = dsn
	if cfg.Database.NotifyChannel != "" {
		relayCfg.NotifyChannel = cfg.Database.NotifyChannel
	}
	relay, err := outbox.NewRelay(database, publisher, relayCfg)
	if err != nil {
		publisher.Close()
		return fmt.Errorf("failed to create outbox relay: %w", err)
	}
	s.Publisher = publisher
	s.Relay = relay
	return nil
}

// Start launches the background workers. They stop when ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	go func() {
		if err := s.Scheduler.Run(ctx, s.Engine); err != nil {
			log.Error().Err(err).Msg("bid countdown scheduler stopped")
		}
	}()

	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("auction gateway stopped")
		}
	}()

	if s.Relay != nil {
		go func() {
			if err := s.Relay.Start(ctx); err != nil {
				log.Error().Err(err).Msg("outbox relay stopped")
			}
		}()
	}
}

// Shutdown flushes queued events. Call it after the context passed to Start
// is cancelled.
func (s *Services) Shutdown(ctx context.Context) {
	for _, d := range s.dispatchers {
		if err := d.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("event dispatcher did not drain before shutdown")
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
