// Command gateway runs the auction WebSocket gateway on its own, fed by the
// JetStream relay and reading state from the auction service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/leagify/go/internal/access"
	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/auction/gateway"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	obs.SetupLogger(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "console"))
	obs.Init()

	port := getEnv("GATEWAY_PORT", "8081")
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	apiURL := getEnv("AUCTION_API_URL", "http://localhost:8080")

	log.Info().
		Str("nats_url", natsURL).
		Str("auction_api", apiURL).
		Str("port", port).
		Msg("starting auction gateway")

	var tokens gateway.TokenParser
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		issuer, err := access.NewIssuer(secret, 24*time.Hour, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create token issuer")
		}
		tokens = issuer
	}

	client := auction.NewAuctionServiceClient(&http.Client{Timeout: 10 * time.Second}, apiURL)
	stateProvider := gateway.NewRemoteStateProvider(client)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConsumeJetStream = true
	gatewayConfig.JetStreamConfig.URL = natsURL
	gatewayConfig.JetStreamConfig.StreamName = getEnv("NATS_STREAM", gatewayConfig.JetStreamConfig.StreamName)
	gatewayConfig.JetStreamConfig.ConsumerName = getEnv("NATS_CONSUMER", gatewayConfig.JetStreamConfig.ConsumerName)

	gatewayService, err := gateway.NewService(gatewayConfig, stateProvider, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.Handle("/metrics", obs.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// WriteTimeout stays zero so long-lived sockets are not cut off.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     obs.Instrument(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	<-done
	log.Info().Msg("auction gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
