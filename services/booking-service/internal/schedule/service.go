// Package schedule manages a provider's weekly hours and per-date overrides.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/timeofday"
)

var ErrInvalidInput = errors.New("invalid schedule")

type Repository interface {
	GetWeeklyRules(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error)
	UpsertWeeklyRules(ctx context.Context, rules []model.WeeklyHourRule) error
	UpsertOverride(ctx context.Context, o model.ScheduleOverride) error
	EnsureDefaultWeeklyHours(ctx context.Context, providerID string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, providerID, date string) error
}

type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *slog.Logger
}

func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// WeeklyHours returns the stored rules; days without a rule are closed.
func (s *Service) WeeklyHours(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider_id is required", ErrInvalidInput)
	}
	return s.repo.GetWeeklyRules(ctx, providerID)
}

// UpdateWeeklyHours upserts one rule per weekday. Weekday names are normalized, so "Monday"
// and "MON" both address "mon". Cached availability picks the change up when entries expire.
func (s *Service) UpdateWeeklyHours(ctx context.Context, providerID string, rules []model.WeeklyHourRule) ([]model.WeeklyHourRule, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider_id is required", ErrInvalidInput)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no weekly hours given", ErrInvalidInput)
	}

	normalized := make([]model.WeeklyHourRule, 0, len(rules))
	seen := make(map[model.Weekday]bool, len(rules))
	for _, r := range rules {
		day, err := model.ParseWeekday(string(r.Weekday))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if seen[day] {
			return nil, fmt.Errorf("%w: weekday %s given twice", ErrInvalidInput, day)
		}
		seen[day] = true

		start, end, err := normalizeHours(r.StartTime, r.EndTime, r.IsClosed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, day, err)
		}
		normalized = append(normalized, model.WeeklyHourRule{
			ProviderID: providerID,
			Weekday:    day,
			StartTime:  start,
			EndTime:    end,
			IsClosed:   r.IsClosed,
		})
	}

	if err := s.repo.UpsertWeeklyRules(ctx, normalized); err != nil {
		return nil, fmt.Errorf("save weekly hours: %w", err)
	}
	return normalized, nil
}

// SetOverride replaces the hours of one date and drops that date's cached availability.
func (s *Service) SetOverride(ctx context.Context, o model.ScheduleOverride) (model.ScheduleOverride, error) {
	o.ProviderID = strings.TrimSpace(o.ProviderID)
	if o.ProviderID == "" {
		return model.ScheduleOverride{}, fmt.Errorf("%w: provider_id is required", ErrInvalidInput)
	}
	day, err := availability.ParseDate(o.Date)
	if err != nil {
		return model.ScheduleOverride{}, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrInvalidInput)
	}
	o.Date = day.Format(availability.DateLayout)

	o.StartTime, o.EndTime, err = normalizeHours(o.StartTime, o.EndTime, o.IsClosed)
	if err != nil {
		return model.ScheduleOverride{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.repo.UpsertOverride(ctx, o); err != nil {
		return model.ScheduleOverride{}, fmt.Errorf("save override: %w", err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, o.ProviderID, o.Date); err != nil {
			s.logger.Error("cache invalidation failed", "err", err, "provider_id", o.ProviderID, "date", o.Date)
		}
	}
	return o, nil
}

// EnsureDefaults seeds 09:00-17:00 on every weekday the provider has not configured.
func (s *Service) EnsureDefaults(ctx context.Context, providerID string) error {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return fmt.Errorf("%w: provider_id is required", ErrInvalidInput)
	}
	return s.repo.EnsureDefaultWeeklyHours(ctx, providerID)
}

// normalizeHours validates an open window and renders it as "HH:MM". Closed days keep no hours.
func normalizeHours(startRaw, endRaw string, closed bool) (string, string, error) {
	if closed {
		return "", "", nil
	}
	start, err := timeofday.Parse(startRaw)
	if err != nil {
		return "", "", fmt.Errorf("invalid start_time %q", startRaw)
	}
	end, err := timeofday.Parse(endRaw)
	if err != nil {
		return "", "", fmt.Errorf("invalid end_time %q", endRaw)
	}
	if end <= start {
		return "", "", errors.New("end_time must be after start_time")
	}
	return timeofday.Format(start), timeofday.Format(end), nil
}
