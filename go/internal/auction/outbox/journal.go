package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/auction/outbox/db"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/mcdev12/leagify/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// DefaultNotifyChannel is the LISTEN/NOTIFY channel new events are announced on.
const DefaultNotifyChannel = "auction_events"

// SnapshotSource reads the current state of an auction.
type SnapshotSource interface {
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*models.AuctionSnapshot, error)
}

// Journal is a broadcast sink that persists every event and the latest
// snapshot of its auction. It is slow, so it belongs behind a Dispatcher.
type Journal struct {
	db        *sql.DB
	snapshots SnapshotSource
	channel   string
}

// NewJournal creates a journal. snapshots may be nil to journal events only.
func NewJournal(database *sql.DB, snapshots SnapshotSource, channel string) *Journal {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &Journal{db: database, snapshots: snapshots, channel: channel}
}

// Publish inserts the event and announces it to the relay in one
// transaction, then refreshes the stored snapshot.
func (j *Journal) Publish(ctx context.Context, _ string, event events.Envelope) error {
	if err := j.appendEvent(ctx, event); err != nil {
		return err
	}
	if j.snapshots == nil {
		return nil
	}
	if err := j.saveSnapshot(ctx, event.AuctionID); err != nil {
		// the event row is durable; the next event refreshes the snapshot
		log.Error().Err(err).Str("auction_id", event.AuctionID.String()).Msg("failed to store auction snapshot")
	}
	return nil
}

func (j *Journal) appendEvent(ctx context.Context, event events.Envelope) error {
	err := sqlutil.Run(ctx, j.db, newTxQueries, func(q *db.Queries) error {
		inserted, err := q.InsertEvent(ctx, db.InsertEventParams{
			EventID:    event.EventID,
			AuctionID:  event.AuctionID,
			Sequence:   int64(event.Sequence),
			EventType:  string(event.EventType),
			Payload:    event.Payload,
			OccurredAt: event.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		if inserted == 0 {
			log.Debug().Str("event_id", event.EventID).Msg("event already journaled")
			return nil
		}
		if err := q.NotifyEvent(ctx, db.NotifyEventParams{Channel: j.channel, EventID: event.EventID}); err != nil {
			return fmt.Errorf("failed to notify relay: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to journal %s event: %w", event.EventType, err)
	}

	log.Debug().
		Str("event_id", event.EventID).
		Str("auction_id", event.AuctionID.String()).
		Uint64("sequence", event.Sequence).
		Msg("journaled auction event")
	return nil
}

func (j *Journal) saveSnapshot(ctx context.Context, auctionID uuid.UUID) error {
	snap, err := j.snapshots.GetAuctionState(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to read auction state: %w", err)
	}
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal auction state: %w", err)
	}
	block, err := sqlutil.ToNullRawMessage(snap.Block)
	if err != nil {
		return err
	}

	updated, err := db.New(j.db).UpsertSnapshot(ctx, db.UpsertSnapshotParams{
		AuctionID:   snap.ID,
		Name:        snap.Name,
		Status:      string(snap.Status),
		Sequence:    int64(snap.Sequence),
		State:       state,
		Block:       block,
		CompletedAt: sqlutil.ToSqlTime(snap.CompletedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	if updated == 0 {
		log.Debug().
			Str("auction_id", auctionID.String()).
			Uint64("sequence", snap.Sequence).
			Msg("stored snapshot is newer, skipped")
	}
	return nil
}

func newTxQueries(tx *sql.Tx) *db.Queries {
	return db.New(tx)
}
