package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/auction/outbox/db"
	"github.com/mcdev12/leagify/go/internal/sqlutil"
)

// ErrNotFound is returned when a row does not exist or was already sent.
var ErrNotFound = errors.New("outbox row not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	FetchUnsentEvents(ctx context.Context, limit int32) ([]db.FetchUnsentEventsRow, error)
	FetchUnsentEventByID(ctx context.Context, eventID string) (db.FetchUnsentEventByIDRow, error)
	MarkEventSent(ctx context.Context, eventID string) error
	CountUnsentEvents(ctx context.Context) (int64, error)
	GetSnapshot(ctx context.Context, auctionID uuid.UUID) (db.AuctionSnapshot, error)
}

// Repository reads the journal for the relay.
type Repository struct {
	queries Querier
}

// NewRepository creates a repository over querier.
func NewRepository(querier Querier) *Repository {
	return &Repository{queries: querier}
}

// FetchUnsent returns up to limit unsent events ordered by auction and sequence.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.queries.FetchUnsentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}
	out := make([]Event, len(rows))
	for i, row := range rows {
		out[i] = Event{
			EventID:    row.EventID,
			AuctionID:  row.AuctionID,
			Sequence:   uint64(row.Sequence),
			EventType:  row.EventType,
			Payload:    row.Payload,
			OccurredAt: row.OccurredAt,
		}
	}
	return out, nil
}

// FetchUnsentByID returns one unsent event.
func (r *Repository) FetchUnsentByID(ctx context.Context, eventID string) (*Event, error) {
	row, err := r.queries.FetchUnsentEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch event by ID: %w", err)
	}
	return &Event{
		EventID:    row.EventID,
		AuctionID:  row.AuctionID,
		Sequence:   uint64(row.Sequence),
		EventType:  row.EventType,
		Payload:    row.Payload,
		OccurredAt: row.OccurredAt,
	}, nil
}

// MarkSent stamps the event as delivered.
func (r *Repository) MarkSent(ctx context.Context, eventID string) error {
	if err := r.queries.MarkEventSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// CountUnsent returns how many events wait for delivery.
func (r *Repository) CountUnsent(ctx context.Context) (int64, error) {
	n, err := r.queries.CountUnsentEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsent events: %w", err)
	}
	return n, nil
}

// GetSnapshot returns the latest stored snapshot of an auction.
func (r *Repository) GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*StoredSnapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, auctionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &StoredSnapshot{
		AuctionID:   row.AuctionID,
		Name:        row.Name,
		Status:      row.Status,
		Sequence:    uint64(row.Sequence),
		State:       row.State,
		Block:       sqlutil.FromNullRawMessage(row.Block),
		CompletedAt: sqlutil.FromSqlTime(row.CompletedAt),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
