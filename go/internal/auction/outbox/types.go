// Package outbox journals accepted auction events to Postgres and relays them
// to JetStream. The journal keeps one row per event and the latest snapshot
// per auction; the relay publishes unsent rows in sequence order.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
)

// Event is a journaled auction event.
type Event struct {
	EventID    string
	AuctionID  uuid.UUID
	Sequence   uint64
	EventType  string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// Envelope rebuilds the broadcast envelope the event was journaled from.
func (e Event) Envelope() events.Envelope {
	return events.Envelope{
		EventID:   e.EventID,
		EventType: events.Type(e.EventType),
		AuctionID: e.AuctionID,
		Sequence:  e.Sequence,
		Timestamp: e.OccurredAt.UTC(),
		Payload:   e.Payload,
	}
}

// Publisher delivers a journaled event downstream.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// StoredSnapshot is the latest persisted view of an auction.
type StoredSnapshot struct {
	AuctionID   uuid.UUID       `json:"auction_id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Sequence    uint64          `json:"sequence"`
	State       json.RawMessage `json:"state"`
	Block       json.RawMessage `json:"block,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
