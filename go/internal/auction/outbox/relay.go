package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/leagify/go/internal/auction/outbox/db"
	"github.com/mcdev12/leagify/go/internal/obs"
	"github.com/rs/zerolog/log"
)

// RelayConfig tunes the relay.
type RelayConfig struct {
	DatabaseURL      string // DSN for LISTEN/NOTIFY
	NotifyChannel    string
	FallbackInterval time.Duration // poll for rows whose notification was missed
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32
}

// DefaultRelayConfig returns the default relay configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel:    DefaultNotifyChannel,
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Relay publishes journaled events as they are announced, with a periodic
// sweep for anything still unsent.
type Relay struct {
	repo      *Repository
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig

	mu            sync.Mutex
	running       bool
	published     uint64
	lastPublished time.Time
}

// RelayStats reports relay progress since start.
type RelayStats struct {
	Running       bool
	Published     uint64
	LastPublished time.Time
}

// Stats returns a copy of the relay counters.
func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RelayStats{Running: r.running, Published: r.published, LastPublished: r.lastPublished}
}

func (r *Relay) setRunning(running bool) {
	r.mu.Lock()
	r.running = running
	r.mu.Unlock()
}

func (r *Relay) recordPublished() {
	r.mu.Lock()
	r.published++
	r.lastPublished = time.Now()
	r.mu.Unlock()
}

// NewRelay creates a relay listening on cfg.NotifyChannel.
func NewRelay(database *sql.DB, publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")

	r := newRelay(db.New(database), publisher, cfg)
	r.listener = l
	return r, nil
}

func newRelay(querier Querier, publisher Publisher, cfg RelayConfig) *Relay {
	return &Relay{
		repo:      NewRepository(querier),
		publisher: publisher,
		cfg:       cfg,
	}
}

// Start relays until ctx is cancelled. Unsent rows are swept once at start.
func (r *Relay) Start(ctx context.Context) error {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("ping_interval", r.cfg.PingInterval).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Msg("relay started")
	r.setRunning(true)
	defer r.setRunning(false)

	if err := r.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed initial sweep of unsent events")
	}

	pingTicker := time.NewTicker(r.cfg.PingInterval)
	fallbackTicker := time.NewTicker(r.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutting down")
			return r.Stop()
		case note := <-r.listener.Notify:
			if note == nil {
				// connection was re-established; notifications may have been lost
				if err := r.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events after reconnect")
				}
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := r.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the listener.
func (r *Relay) Stop() error {
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// handleNotification publishes the event named in the notification payload.
// A row that is already sent was handled by a sweep and is skipped.
func (r *Relay) handleNotification(ctx context.Context, eventID string) error {
	event, err := r.repo.FetchUnsentByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug().Str("event_id", eventID).Msg("notified event already sent")
			return nil
		}
		return err
	}
	return r.publishWithRetry(ctx, *event)
}

// processUnsent publishes a batch of unsent events. After a failure the rest
// of that auction's events wait for the next sweep so they stay in order.
func (r *Relay) processUnsent(ctx context.Context) error {
	unsent, err := r.repo.FetchUnsent(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	obs.SetOutboxBatch(len(unsent))
	if len(unsent) == 0 {
		return nil
	}

	blocked := make(map[uuid.UUID]bool)
	var sent int
	for _, event := range unsent {
		if blocked[event.AuctionID] {
			continue
		}
		if err := r.publishWithRetry(ctx, event); err != nil {
			log.Error().Err(err).Str("event_id", event.EventID).Msg("failed to publish event")
			blocked[event.AuctionID] = true
			continue
		}
		sent++
	}

	log.Info().Int("total", len(unsent)).Int("sent", sent).Msg("processed unsent events")
	return nil
}

// publishWithRetry publishes the event with linear backoff and marks it sent.
func (r *Relay) publishWithRetry(ctx context.Context, event Event) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.EventID).
				Msg("failed to publish, retrying")
			continue
		}

		if err := r.repo.MarkSent(ctx, event.EventID); err != nil {
			return err
		}
		r.recordPublished()
		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.EventID).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
