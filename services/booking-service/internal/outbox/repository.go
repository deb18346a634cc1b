package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/chairbook/libs/db"
	otelx "github.com/md-rashed-zaman/chairbook/libs/otel"
)

// ErrInvalidEvent is returned by Insert for events the invalidation consumer could not act on.
var ErrInvalidEvent = errors.New("invalid outbox event")

// Repository persists booking events in outbox_events until the publisher relays them.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pending is one unpublished row, in column order of claimSQL.
type Pending struct {
	Seq         int64
	EventID     string
	Aggregate   string
	AggregateID string
	EventType   string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

const insertSQL = `
	INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Insert stores evt in the caller's transaction so it commits or rolls back with the booking.
// The row carries the caller's trace context for the publisher to forward.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	evt, err := prepare(evt)
	if err != nil {
		return err
	}
	tc := otelx.CurrentTraceContext(ctx)
	if _, err := tx.Exec(ctx, insertSQL, evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, tc.Parent, tc.State); err != nil {
		return fmt.Errorf("insert %s event: %w", evt.EventType, err)
	}
	return nil
}

// prepare assigns a missing event id and checks that booking events name the provider day
// they change.
func prepare(evt Event) (Event, error) {
	if !slices.Contains(BookingEventTypes, evt.EventType) {
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, evt.EventType)
	}
	var body BookingChanged
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if body.BookingID == "" || body.ProviderID == "" || body.Date == "" {
		return Event{}, fmt.Errorf("%w: booking_id, provider_id and date are required", ErrInvalidEvent)
	}
	if evt.AggregateID == "" {
		evt.AggregateID = body.BookingID
	}
	if evt.AggregateType == "" {
		evt.AggregateType = aggregateBooking
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	return evt, nil
}

const claimSQL = `
	SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
	FROM outbox_events
	WHERE published_at IS NULL
	ORDER BY id
	LIMIT $1
	FOR UPDATE SKIP LOCKED`

// Claim locks up to limit unpublished rows for the life of tx. Rows held by another
// publisher are skipped.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit int) ([]Pending, error) {
	rows, err := tx.Query(ctx, claimSQL, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Pending])
}

// MarkPublished stamps the claimed rows once Kafka has acknowledged them.
func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, batch []Pending) error {
	if len(batch) == 0 {
		return nil
	}
	seqs := make([]int64, len(batch))
	for i, p := range batch {
		seqs[i] = p.Seq
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, seqs)
	return err
}
