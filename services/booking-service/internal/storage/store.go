package storage

import (
	"context"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

// Store is the read view the availability engine computes from.
type Store struct {
	schedules *ScheduleRepository
	bookings  *BookingRepository
}

func NewStore(schedules *ScheduleRepository, bookings *BookingRepository) *Store {
	return &Store{schedules: schedules, bookings: bookings}
}

func (s *Store) GetWeeklyRules(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error) {
	return s.schedules.GetWeeklyRules(ctx, providerID)
}

func (s *Store) GetOverrides(ctx context.Context, providerID, date string) ([]model.ScheduleOverride, error) {
	return s.schedules.GetOverrides(ctx, providerID, date)
}

func (s *Store) GetBookings(ctx context.Context, providerID, date string) ([]model.Booking, error) {
	return s.bookings.GetBookings(ctx, providerID, date)
}
