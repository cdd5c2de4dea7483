// Command outbox relays journaled auction events to JetStream.
//
//	outbox                       run the relay
//	outbox snapshot <auction-id> print the stored snapshot of an auction
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mcdev12/leagify/go/internal/auction/outbox"
	"github.com/mcdev12/leagify/go/internal/auction/outbox/db"
	"github.com/mcdev12/leagify/go/internal/dbconfig"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	obs.SetupLogger(getEnv("LOG_LEVEL", "debug"), getEnv("LOG_FORMAT", "console"))

	cfg := dbconfig.NewConfigFromEnv()
	dsn := cfg.DSN()
	database, err := dbconfig.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	if err := outbox.Migrate(context.Background(), database); err != nil {
		log.Fatal().Err(err).Msg("migrate outbox schema")
	}

	if len(os.Args) > 1 && os.Args[1] == "snapshot" {
		if err := printSnapshot(database, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		return
	}

	backlog, err := outbox.NewRepository(db.New(database)).CountUnsent(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("count unsent events")
	}

	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = getEnv("NATS_URL", jsCfg.URL)
	jsCfg.StreamName = getEnv("NATS_STREAM", jsCfg.StreamName)
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	relayCfg := outbox.DefaultRelayConfig()
	relayCfg.DatabaseURL = dsn
	if iv := os.Getenv("FALLBACK_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			relayCfg.FallbackInterval = d
		}
	}

	relay, err := outbox.NewRelay(database, publisher, relayCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox relay")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs.Init()
	mux := http.NewServeMux()
	mux.Handle("/health", outbox.NewHealthChecker(relay, database, publisher, 5*time.Minute))
	mux.Handle("/metrics", obs.Handler())
	healthServer := &http.Server{
		Addr:              ":" + getEnv("RELAY_HEALTH_PORT", "8082"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", healthServer.Addr).Msg("relay health endpoint listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("health server shutdown")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int64("backlog", backlog).Msg("starting relay")
		errCh <- relay.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("relay stopped with error")
		}
		log.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		log.Error().Err(err).Msg("relay exited unexpectedly")
	}
}

func printSnapshot(database *sql.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: outbox snapshot <auction-id>")
	}
	auctionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid auction id: %w", err)
	}
	snap, err := outbox.NewRepository(db.New(database)).GetSnapshot(context.Background(), auctionID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
