package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
)

type AvailabilityHandler struct {
	svc       AvailabilityService
	durations SlotDurations
	logger    *slog.Logger
}

func NewAvailabilityHandler(svc AvailabilityService, durations SlotDurations, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, durations: durations, logger: logger}
}

// Get serves GET /api/v1/availability?provider_id=&date=[&duration_minutes=].
// Without duration_minutes the provider's default slot length is used.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	providerID := strings.TrimSpace(q.Get("provider_id"))
	if providerID == "" {
		providerID = strings.TrimSpace(q.Get("barber_id"))
	}
	date := strings.TrimSpace(q.Get("date"))
	if providerID == "" || date == "" {
		writeError(w, h.logger, http.StatusBadRequest, "provider_id and date are required")
		return
	}

	duration := 0
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "duration_minutes must be a positive integer")
			return
		}
		duration = d
	}
	h.serveSlots(w, r, providerID, date, duration)
}

// PublicSlots serves GET /api/v1/public/slots/{providerID}?date=. A missing date yields [].
func (h *AvailabilityHandler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeJSON(w, h.logger, http.StatusOK, []string{})
		return
	}
	h.serveSlots(w, r, r.PathValue("providerID"), date, 0)
}

func (h *AvailabilityHandler) serveSlots(w http.ResponseWriter, r *http.Request, providerID, date string, duration int) {
	ctx := r.Context()
	if duration == 0 {
		d, err := h.durations.GetSlotDuration(ctx, providerID)
		if err != nil {
			h.logger.Error("slot duration lookup failed", "err", err, "provider_id", providerID)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to load provider")
			return
		}
		duration = d
	}

	res, err := h.svc.GetAvailability(ctx, providerID, date, duration)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidDateFormat):
			writeError(w, h.logger, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		case errors.Is(err, availability.ErrInvalidDuration), errors.Is(err, availability.ErrMissingProvider):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("availability lookup failed", "err", err, "provider_id", providerID, "date", date)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to compute availability")
		}
		return
	}

	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	slots := res.Slots
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, slots)
}
