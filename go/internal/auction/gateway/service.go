// Package gateway pushes auction events to WebSocket subscribers and serves
// auction state over plain HTTP. It runs inside the auction server, fed by
// the engine, or standalone, fed by the JetStream relay.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/leagify/go/internal/auction/broadcast"
	"github.com/rs/zerolog/log"
)

// Service bundles the connection manager, HTTP handlers and, when enabled,
// the JetStream consumer.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// ConsumeJetStream feeds the gateway from the relayed stream instead of
	// an in-process publisher.
	ConsumeJetStream bool
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates the gateway. tokens may be nil.
func NewService(config Config, provider StateProvider, tokens TokenParser) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig, provider)
	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, provider, tokens),
		stateHandler:      NewStateHandler(provider, nil),
	}

	if config.ConsumeJetStream {
		consumer, err := NewEventConsumer(cm, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Publisher is the sink an in-process engine publishes to.
func (s *Service) Publisher() broadcast.Gateway {
	return s.connectionManager
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting auction gateway")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("auction gateway shutting down")
	return s.Stop()
}

// Stop releases the NATS connection, if any.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("auction gateway stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state routes on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("auction gateway routes registered")
}

// Stats reports the open sockets.
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
