package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/leagify/go/internal/auction"
	"github.com/mcdev12/leagify/go/internal/httpmw"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Retry-After"},
	})

	registerServices(mux, services)
	services.Gateway.RegisterRoutes(mux)
	setupHealthCheck(mux)
	mux.Handle("/metrics", obs.Handler())

	// Bids and nominations are the hot paths a single client can flood.
	limiter := httpmw.NewRateLimiter(httpmw.RateLimitConfig{
		PerSecond: cfg.RateLimit.PerSecond,
		Burst:     cfg.RateLimit.Burst,
		Paths:     []string{auction.PlaceBidProcedure, auction.NominateProcedure},
	})

	handler := obs.Instrument(c.Handler(limiter.Middleware(mux)))

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	path, handler := auction.NewAuctionServiceHandler(services.Auction)
	mux.Handle(path, handler)
	log.Info().Str("path", path).Msg("auction service registered")
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
