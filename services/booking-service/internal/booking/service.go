// Package booking creates and cancels bookings. It owns the authoritative overlap check and
// invalidates cached availability after every committed change.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nyaruka/phonenumbers"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/timeofday"
)

var (
	ErrInvalidInput = errors.New("invalid booking request")
	ErrConflict     = errors.New("slot unavailable due to overlap")
	ErrNotFound     = errors.New("booking not found")
)

// Repository is the transactional booking store.
type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockDay(ctx context.Context, tx pgx.Tx, providerID, date string) error
	ListActiveForUpdate(ctx context.Context, tx pgx.Tx, providerID, date string) ([]model.Booking, error)
	Create(ctx context.Context, tx pgx.Tx, b *model.Booking) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, providerID, bookingID string) (model.Booking, error)
	Cancel(ctx context.Context, tx pgx.Tx, bookingID string) (time.Time, error)
}

type SlotDurations interface {
	GetSlotDuration(ctx context.Context, providerID string) (int, error)
}

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, providerID, date string) error
}

type Service struct {
	repo        Repository
	durations   SlotDurations
	events      EventWriter
	invalidator Invalidator
	logger      *slog.Logger
	norm        availability.Normalizer
	isConflict  func(error) bool
	isNotFound  func(error) bool
	region      string
}

// Options maps storage errors onto ErrConflict and ErrNotFound. Nil funcs match nothing,
// except that pgx.ErrNoRows is always treated as not found.
//
// PhoneRegion is the CLDR region used for client phone numbers written without a
// country code. Defaults to DefaultPhoneRegion.
type Options struct {
	IsConflict  func(error) bool
	IsNotFound  func(error) bool
	PhoneRegion string
}

const DefaultPhoneRegion = "US"

func NewService(repo Repository, durations SlotDurations, events EventWriter, invalidator Invalidator, logger *slog.Logger, opts Options) *Service {
	isConflict := opts.IsConflict
	if isConflict == nil {
		isConflict = func(error) bool { return false }
	}
	isNotFound := opts.IsNotFound
	if isNotFound == nil {
		isNotFound = func(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
	}
	region := strings.ToUpper(strings.TrimSpace(opts.PhoneRegion))
	if region == "" {
		region = DefaultPhoneRegion
	}
	return &Service{
		repo:        repo,
		durations:   durations,
		events:      events,
		invalidator: invalidator,
		logger:      logger,
		norm:        availability.NewNormalizer(logger),
		isConflict:  isConflict,
		isNotFound:  isNotFound,
		region:      region,
	}
}

type CreateRequest struct {
	ProviderID  string
	Date        string
	StartTime   string
	ClientName  string
	ClientPhone string
}

// Conflict describes the booking a rejected request overlapped.
type Conflict struct {
	StartTime string
	EndTime   string
}

// ConflictError is returned by Create when the requested interval overlaps an active booking.
// It matches ErrConflict.
type ConflictError struct {
	With Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (existing %s-%s)", ErrConflict.Error(), e.With.StartTime, e.With.EndTime)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Create books the provider's default slot length starting at req.StartTime.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if req.ProviderID == "" || req.ClientName == "" || req.ClientPhone == "" {
		return model.Booking{}, fmt.Errorf("%w: provider_id, client_name and client_phone are required", ErrInvalidInput)
	}
	phone, err := s.normalizePhone(req.ClientPhone)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: invalid client_phone", ErrInvalidInput)
	}
	day, err := availability.ParseDate(req.Date)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD", ErrInvalidInput)
	}
	start, err := timeofday.Parse(req.StartTime)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: invalid time format, use HH:MM", ErrInvalidInput)
	}

	duration, err := s.durations.GetSlotDuration(ctx, req.ProviderID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("load slot duration: %w", err)
	}
	end := start + duration
	if end > timeofday.MinutesPerDay {
		return model.Booking{}, fmt.Errorf("%w: booking must end by 24:00", ErrInvalidInput)
	}

	b := model.Booking{
		ProviderID:  req.ProviderID,
		Date:        day.Format(availability.DateLayout),
		StartTime:   timeofday.Format(start),
		EndTime:     timeofday.Format(end),
		Status:      model.StatusBooked,
		ClientName:  req.ClientName,
		ClientPhone: phone,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.repo.LockDay(ctx, tx, b.ProviderID, b.Date); err != nil {
		return model.Booking{}, fmt.Errorf("lock day: %w", err)
	}
	existing, err := s.repo.ListActiveForUpdate(ctx, tx, b.ProviderID, b.Date)
	if err != nil {
		return model.Booking{}, fmt.Errorf("load bookings: %w", err)
	}
	for _, iv := range s.norm.BusyIntervals(existing, duration) {
		if start < iv.End && end > iv.Start {
			return model.Booking{}, &ConflictError{With: Conflict{
				StartTime: timeofday.Format(iv.Start),
				EndTime:   timeofday.Format(iv.End),
			}}
		}
	}

	if err := s.repo.Create(ctx, tx, &b); err != nil {
		if s.isConflict(err) {
			return model.Booking{}, &ConflictError{With: Conflict{StartTime: b.StartTime, EndTime: b.EndTime}}
		}
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	if err := s.writeEvent(ctx, tx, outbox.EventBookingBooked, b); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, fmt.Errorf("commit booking: %w", err)
	}

	s.invalidate(ctx, b.ProviderID, b.Date)
	return b, nil
}

// Cancel marks a booking cancelled. Cancelling twice succeeds and returns the existing record.
func (s *Service) Cancel(ctx context.Context, providerID, bookingID string) (model.Booking, error) {
	providerID = strings.TrimSpace(providerID)
	bookingID = strings.TrimSpace(bookingID)
	if providerID == "" || bookingID == "" {
		return model.Booking{}, fmt.Errorf("%w: provider_id and booking_id are required", ErrInvalidInput)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := s.repo.GetForUpdate(ctx, tx, providerID, bookingID)
	if err != nil {
		if s.isNotFound(err) {
			return model.Booking{}, ErrNotFound
		}
		return model.Booking{}, fmt.Errorf("load booking: %w", err)
	}
	if b.IsCancelled() {
		return b, nil
	}

	cancelledAt, err := s.repo.Cancel(ctx, tx, b.ID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}
	b.Status = model.StatusCancelled
	b.CancelledAt = &cancelledAt

	if err := s.writeEvent(ctx, tx, outbox.EventBookingCancelled, b); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, fmt.Errorf("commit cancellation: %w", err)
	}

	s.invalidate(ctx, b.ProviderID, b.Date)
	return b, nil
}

func (s *Service) writeEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking) error {
	payload := outbox.BookingChanged{
		BookingID:  b.ID,
		ProviderID: b.ProviderID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
	}
	if b.CancelledAt != nil {
		payload.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	evt, err := outbox.NewBookingEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if err := s.events.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

// The booking is committed at this point; a failed invalidation only leaves a stale entry
// until its TTL expires.
func (s *Service) invalidate(ctx context.Context, providerID, date string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, providerID, date); err != nil {
		s.logger.Error("cache invalidation failed", "err", err, "provider_id", providerID, "date", date)
	}
}

// normalizePhone returns raw in E.164 form.
func (s *Service) normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, s.region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", errors.New("not a possible phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
