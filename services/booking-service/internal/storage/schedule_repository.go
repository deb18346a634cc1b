package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/chairbook/libs/db"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

// DefaultSlotDuration is used for providers without a configured slot length.
const DefaultSlotDuration = 60

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// Clock columns are read as text so that one parser handles every stored value.
func (r *ScheduleRepository) GetWeeklyRules(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider_id, weekday, COALESCE(start_time::text, ''), COALESCE(end_time::text, ''), is_closed
		FROM weekly_hours
		WHERE provider_id = $1
		ORDER BY array_position(ARRAY['mon','tue','wed','thu','fri','sat','sun'], weekday)
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.WeeklyHourRule
	for rows.Next() {
		var rule model.WeeklyHourRule
		var weekday string
		if err := rows.Scan(&rule.ProviderID, &weekday, &rule.StartTime, &rule.EndTime, &rule.IsClosed); err != nil {
			return nil, err
		}
		rule.Weekday = model.Weekday(weekday)
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

func (r *ScheduleRepository) GetOverrides(ctx context.Context, providerID, date string) ([]model.ScheduleOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider_id, date::text, COALESCE(start_time::text, ''), COALESCE(end_time::text, ''), is_closed
		FROM schedule_overrides
		WHERE provider_id = $1 AND date = $2::date
		ORDER BY updated_at DESC
	`, providerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []model.ScheduleOverride
	for rows.Next() {
		var o model.ScheduleOverride
		if err := rows.Scan(&o.ProviderID, &o.Date, &o.StartTime, &o.EndTime, &o.IsClosed); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return overrides, nil
}

// UpsertWeeklyRules replaces the given weekdays' rules in one transaction.
func (r *ScheduleRepository) UpsertWeeklyRules(ctx context.Context, rules []model.WeeklyHourRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, rule := range rules {
		if err := upsertWeeklyRule(ctx, tx, rule, true); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// EnsureDefaultWeeklyHours seeds 09:00-17:00 for every weekday that has no rule yet.
func (r *ScheduleRepository) EnsureDefaultWeeklyHours(ctx context.Context, providerID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO providers (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, providerID); err != nil {
		return err
	}
	for _, rule := range model.DefaultWeeklyHours(providerID) {
		if err := upsertWeeklyRule(ctx, tx, rule, false); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func upsertWeeklyRule(ctx context.Context, tx pgx.Tx, rule model.WeeklyHourRule, overwrite bool) error {
	conflict := `ON CONFLICT (provider_id, weekday) DO NOTHING`
	if overwrite {
		conflict = `ON CONFLICT (provider_id, weekday) DO UPDATE
			SET start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				is_closed = EXCLUDED.is_closed,
				updated_at = now()`
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO weekly_hours (provider_id, weekday, start_time, end_time, is_closed)
		VALUES ($1, $2, NULLIF($3, '')::time, NULLIF($4, '')::time, $5)
		`+conflict,
		rule.ProviderID, string(rule.Weekday), rule.StartTime, rule.EndTime, rule.IsClosed)
	return err
}

func (r *ScheduleRepository) UpsertOverride(ctx context.Context, o model.ScheduleOverride) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_overrides (provider_id, date, start_time, end_time, is_closed)
		VALUES ($1, $2::date, NULLIF($3, '')::time, NULLIF($4, '')::time, $5)
		ON CONFLICT (provider_id, date) DO UPDATE
		SET start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_closed = EXCLUDED.is_closed,
			updated_at = now()
	`, o.ProviderID, o.Date, o.StartTime, o.EndTime, o.IsClosed)
	return err
}

// GetSlotDuration returns the provider's default service length in minutes.
func (r *ScheduleRepository) GetSlotDuration(ctx context.Context, providerID string) (int, error) {
	var minutes int
	err := r.pool.QueryRow(ctx, `
		SELECT slot_duration_minutes FROM providers WHERE id = $1
	`, providerID).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSlotDuration, nil
	}
	if err != nil {
		return 0, err
	}
	if minutes <= 0 {
		return DefaultSlotDuration, nil
	}
	return minutes, nil
}
