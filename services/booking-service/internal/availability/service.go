package availability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/timeofday"
)

// Store is the read side of the persistence layer. GetBookings returns bookings of every status.
type Store interface {
	GetWeeklyRules(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error)
	GetOverrides(ctx context.Context, providerID, date string) ([]model.ScheduleOverride, error)
	GetBookings(ctx context.Context, providerID, date string) ([]model.Booking, error)
}

type Config struct {
	// TTL of cached slot lists. Defaults to DefaultCacheTTL.
	TTL time.Duration
	// InvalidationDurations defaults to DefaultInvalidationDurations.
	InvalidationDurations []int
	// Location decides which calendar date is "today". Defaults to UTC.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// ComputeTimeout bounds one shared cache-miss computation. Defaults to DefaultComputeTimeout.
	ComputeTimeout time.Duration
}

const DefaultComputeTimeout = 10 * time.Second

type Result struct {
	Slots  []string
	Cached bool
}

// Service answers availability queries through a read-through cache.
// A nil cache disables caching.
type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
	norm   Normalizer
	cfg    Config
	tracer trace.Tracer
	group  singleflight.Group
}

func NewService(store Store, cache Cache, logger *slog.Logger, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if len(cfg.InvalidationDurations) == 0 {
		cfg.InvalidationDurations = DefaultInvalidationDurations
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = DefaultComputeTimeout
	}
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		norm:   NewNormalizer(logger),
		cfg:    cfg,
		tracer: otel.Tracer("availability"),
	}
}

// GetAvailability returns the bookable "HH:MM" starts for providerID on date for a service of
// duration minutes. Cached results are served as-is until their TTL expires.
func (s *Service) GetAvailability(ctx context.Context, providerID, date string, duration int) (Result, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return Result{}, ErrMissingProvider
	}
	if duration <= 0 || duration > timeofday.MinutesPerDay {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidDuration, duration)
	}
	day, err := ParseDate(date)
	if err != nil {
		return Result{}, err
	}
	key := Key{ProviderID: providerID, Date: day.Format(DateLayout), Duration: duration}

	ctx, span := s.tracer.Start(ctx, "availability.get", trace.WithAttributes(
		attribute.String("provider.id", key.ProviderID),
		attribute.String("availability.date", key.Date),
		attribute.Int("availability.duration_minutes", duration),
	))
	defer span.End()

	useCache := s.cache != nil
	if useCache {
		slots, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("availability cache read failed; computing directly", "err", err, "key", key.String())
			useCache = false
		case ok:
			span.SetAttributes(attribute.Bool("availability.cached", true))
			return Result{Slots: slots, Cached: true}, nil
		}
	}
	span.SetAttributes(attribute.Bool("availability.cached", false))

	// The miss is shared by every caller waiting on key, so it must not die with the
	// context of whichever caller started it. Each caller still stops waiting on its own ctx.
	ch := s.group.DoChan(key.String(), func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ComputeTimeout)
		defer cancel()
		slots, err := s.compute(sctx, key, day)
		if err != nil {
			return nil, err
		}
		if useCache {
			if err := s.cache.Set(sctx, key, slots, s.cfg.TTL); err != nil {
				s.logger.Warn("availability cache write failed", "err", err, "key", key.String())
			}
		}
		return slots, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		return Result{}, res.Err
	}
	return Result{Slots: slices.Clone(res.Val.([]string))}, nil
}

// Invalidate drops every cached slot list for providerID on date. Call it after any booking
// for that day is created or cancelled.
func (s *Service) Invalidate(ctx context.Context, providerID, date string) error {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return ErrMissingProvider
	}
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateDay(ctx, providerID, day.Format(DateLayout), s.cfg.InvalidationDurations); err != nil {
		s.logger.Warn("availability cache invalidation failed", "err", err, "provider_id", providerID, "date", date)
		return err
	}
	return nil
}

func (s *Service) compute(ctx context.Context, key Key, day time.Time) ([]string, error) {
	rules, err := s.store.GetWeeklyRules(ctx, key.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load weekly rules: %w", err)
	}
	overrides, err := s.store.GetOverrides(ctx, key.ProviderID, key.Date)
	if err != nil {
		return nil, fmt.Errorf("load schedule overrides: %w", err)
	}
	bookings, err := s.store.GetBookings(ctx, key.ProviderID, key.Date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	win, open := ResolveWindow(day, overrides, rules, s.norm)
	if !open {
		return []string{}, nil
	}
	busy := s.norm.BusyIntervals(bookings, key.Duration)
	earliest := EarliestStart(day, s.cfg.Now(), s.cfg.Location)
	return ComputeSlots(win, key.Duration, busy, earliest), nil
}
