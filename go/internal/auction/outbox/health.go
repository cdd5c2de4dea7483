package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// HealthStatus is the relay's view of itself and its dependencies.
type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	Running           bool      `json:"running"`
	EventsPublished   uint64    `json:"events_published"`
	LastPublished     time.Time `json:"last_published"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	Errors            []string  `json:"errors"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ConnectionReporter is satisfied by *JetStreamPublisher.
type ConnectionReporter interface {
	Connected() bool
}

// HealthChecker reports relay health over HTTP.
type HealthChecker struct {
	relay      *Relay
	db         Pinger
	nats       ConnectionReporter
	maxPending int64
	// stall marks the relay unhealthy when events are pending and nothing
	// was published for this long.
	stall time.Duration
	now   func() time.Time
}

// NewHealthChecker creates a checker. nats may be nil.
func NewHealthChecker(relay *Relay, db Pinger, nats ConnectionReporter, stall time.Duration) *HealthChecker {
	return &HealthChecker{
		relay:      relay,
		db:         db,
		nats:       nats,
		maxPending: 1000,
		stall:      stall,
		now:        time.Now,
	}
}

// Check probes the database and NATS and reads the relay counters.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	stats := h.relay.Stats()
	status := HealthStatus{
		Healthy:         true,
		Running:         stats.Running,
		EventsPublished: stats.Published,
		LastPublished:   stats.LastPublished,
		Errors:          []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if !status.Running {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not running")
	}

	if status.DatabaseConnected {
		pending, err := h.relay.repo.CountUnsent(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > h.maxPending {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	if status.PendingEvents > 0 && !status.LastPublished.IsZero() && h.stall > 0 {
		if idle := h.now().Sub(status.LastPublished); idle > h.stall {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events published for %s", idle.Round(time.Second)))
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health status")
	}
}
