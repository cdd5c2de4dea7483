package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/broadcast"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer.
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
	RetryDelay    time.Duration
}

// DefaultJetStreamConsumerConfig returns the default consumer configuration.
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "AUCTION_EVENTS",
		ConsumerName:  "auction-gateway",
		SubjectFilter: events.SubjectPrefix + ".>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		RetryDelay:    500 * time.Millisecond,
	}
}

// errPoison marks a message that can never be processed.
var errPoison = errors.New("unprocessable message")

// EventConsumer relays auction events from JetStream to a local sink,
// normally the ConnectionManager.
type EventConsumer struct {
	sink     broadcast.Gateway
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConsumerConfig

	// lastSeq is only touched by the Start goroutine
	lastSeq map[uuid.UUID]uint64
}

// NewEventConsumer connects to NATS and binds the durable consumer.
func NewEventConsumer(sink broadcast.Gateway, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.Name(config.ConsumerName),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := newEventConsumer(sink, config)
	ec.nc = nc
	ec.js = js

	if err := ec.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func newEventConsumer(sink broadcast.Gateway, config JetStreamConsumerConfig) *EventConsumer {
	return &EventConsumer{
		sink:    sink,
		config:  config,
		lastSeq: make(map[uuid.UUID]uint64),
	}
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, ec.config.ConsumerName)
	if err == nil {
		log.Info().
			Str("consumer", ec.config.ConsumerName).
			Str("stream", ec.config.StreamName).
			Msg("using existing JetStream consumer")
		ec.consumer = consumer
		return nil
	}

	consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ec.config.ConsumerName,
		Durable:       ec.config.ConsumerName,
		Description:   "Auction gateway WebSocket consumer",
		FilterSubject: ec.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("created JetStream consumer")

	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.settle(msg, ec.handle(ctx, msg.Subject(), msg.Data()))
		}
	}
}

// settle acks, naks or terminates msg according to the processing result.
func (ec *EventConsumer) settle(msg jetstream.Msg, err error) {
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case errors.Is(err, errPoison):
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping unprocessable message")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to process message, retrying")
		if nakErr := msg.NakWithDelay(ec.config.RetryDelay); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

// handle decodes one relayed envelope and passes it to the sink. Redelivered
// events at or below the last seen sequence are dropped.
func (ec *EventConsumer) handle(ctx context.Context, subject string, data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: unmarshal event envelope: %v", errPoison, err)
	}
	if env.AuctionID == uuid.Nil {
		return fmt.Errorf("%w: envelope without auction id", errPoison)
	}
	if _, err := events.Decode(env); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}

	if env.Sequence <= ec.lastSeq[env.AuctionID] {
		log.Debug().
			Str("event_id", env.EventID).
			Str("auction_id", env.AuctionID.String()).
			Uint64("sequence", env.Sequence).
			Msg("skipping already relayed event")
		return nil
	}

	if err := ec.sink.Publish(ctx, events.Topic(env.AuctionID), env); err != nil {
		return fmt.Errorf("broadcast event: %w", err)
	}
	ec.lastSeq[env.AuctionID] = env.Sequence

	log.Debug().
		Str("event_id", env.EventID).
		Str("auction_id", env.AuctionID.String()).
		Str("event_type", string(env.EventType)).
		Uint64("sequence", env.Sequence).
		Str("subject", subject).
		Msg("event relayed to WebSocket clients")
	return nil
}

// Stop closes the NATS connection.
func (ec *EventConsumer) Stop() error {
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
