package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

type AvailabilityService interface {
	GetAvailability(ctx context.Context, providerID, date string, duration int) (availability.Result, error)
}

type SlotDurations interface {
	GetSlotDuration(ctx context.Context, providerID string) (int, error)
}

type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (model.Booking, error)
	Cancel(ctx context.Context, providerID, bookingID string) (model.Booking, error)
}

type BookingLister interface {
	ListUpcoming(ctx context.Context, providerID, from string, limit int) ([]model.Booking, error)
}

type ScheduleService interface {
	WeeklyHours(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error)
	UpdateWeeklyHours(ctx context.Context, providerID string, rules []model.WeeklyHourRule) ([]model.WeeklyHourRule, error)
	SetOverride(ctx context.Context, o model.ScheduleOverride) (model.ScheduleOverride, error)
	EnsureDefaults(ctx context.Context, providerID string) error
}

// Register mounts every API route on mux.
func Register(mux *http.ServeMux, a *AvailabilityHandler, b *BookingHandler, s *ScheduleHandler) {
	mux.HandleFunc("/api/v1/availability", a.Get)
	mux.HandleFunc("/api/v1/public/slots/{providerID}", a.PublicSlots)

	mux.HandleFunc("/api/v1/bookings", b.Create)
	mux.HandleFunc("/api/v1/bookings/cancel", b.Cancel)
	mux.HandleFunc("/api/v1/providers/{providerID}/bookings", b.ListUpcoming)

	mux.HandleFunc("/api/v1/providers/{providerID}/weekly-hours", s.WeeklyHours)
	mux.HandleFunc("/api/v1/providers/{providerID}/weekly-hours/defaults", s.EnsureDefaults)
	mux.HandleFunc("/api/v1/providers/{providerID}/overrides", s.SetOverride)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Warn("response encode failed", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, errorResponse{Error: msg})
}
