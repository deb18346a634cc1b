package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/chairbook/libs/db"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	id::text, provider_id, date::text, start_time::text, COALESCE(end_time::text, ''),
	status, client_name, client_phone, created_at, cancelled_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	if err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.ClientName,
		&b.ClientPhone,
		&b.CreatedAt,
		&b.CancelledAt,
	); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// GetBookings returns every booking of the day regardless of status.
func (r *BookingRepository) GetBookings(ctx context.Context, providerID, date string) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND date = $2::date
		ORDER BY start_time ASC
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListUpcoming returns active bookings on or after from, ordered by date and start.
func (r *BookingRepository) ListUpcoming(ctx context.Context, providerID, from string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND date >= $2::date AND status = 'booked'
		ORDER BY date ASC, start_time ASC
		LIMIT $3
	`, providerID, from, limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// LockDay serializes writers for one provider and date until tx ends.
func (r *BookingRepository) LockDay(ctx context.Context, tx pgx.Tx, providerID, date string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`, providerID, date)
	return err
}

func (r *BookingRepository) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, providerID, date string) ([]model.Booking, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND date = $2::date AND status = 'booked'
		ORDER BY start_time ASC
		FOR UPDATE
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// Create inserts b and fills in its ID and CreatedAt.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	return tx.QueryRow(ctx, `
		INSERT INTO bookings (provider_id, date, start_time, end_time, status, client_name, client_phone)
		VALUES ($1, $2::date, $3::time, NULLIF($4, '')::time, $5, $6, $7)
		RETURNING id::text, created_at
	`, b.ProviderID, b.Date, b.StartTime, b.EndTime, string(b.Status), b.ClientName, b.ClientPhone).
		Scan(&b.ID, &b.CreatedAt)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, providerID, bookingID string) (model.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id::text = $1 AND provider_id = $2
		FOR UPDATE
	`, bookingID, providerID))
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, bookingID string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE id::text = $1
		RETURNING cancelled_at
	`, bookingID).Scan(&cancelledAt)
	return cancelledAt, err
}
