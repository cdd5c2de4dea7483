// Command leagify serves the auction API, the WebSocket gateway and the
// state endpoints from one process.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	obs.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	obs.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var database *sql.DB
	var dsn string
	if cfg.Database.Enabled {
		db, dbConfig, err := setupDatabase(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up database")
		}
		defer db.Close()
		database, dsn = db, dbConfig.DSN()
	} else {
		log.Warn().Msg("database disabled, auction events will not be journaled")
	}

	services, err := setupServices(cfg, database, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	services.Start(ctx)

	server := setupServer(cfg, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("auction server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	cancel()
	services.Shutdown(shutdownCtx)
	log.Info().Msg("auction server stopped")
}
