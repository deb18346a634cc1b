package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

type BookingHandler struct {
	svc    BookingService
	list   BookingLister
	logger *slog.Logger
	today  func() string
}

// NewBookingHandler builds the booking endpoints. loc decides the default "from" date when
// listing upcoming bookings.
func NewBookingHandler(svc BookingService, list BookingLister, logger *slog.Logger, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{
		svc:    svc,
		list:   list,
		logger: logger,
		today:  func() string { return time.Now().In(loc).Format(availability.DateLayout) },
	}
}

type createBookingRequest struct {
	ProviderID  string `json:"provider_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

type cancelBookingRequest struct {
	ProviderID string `json:"provider_id"`
	BookingID  string `json:"booking_id"`
}

type bookingResponse struct {
	BookingID   string `json:"booking_id"`
	ProviderID  string `json:"provider_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Status      string `json:"status"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`
}

type conflictResponse struct {
	Error    string `json:"error"`
	Conflict struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"conflict"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		BookingID:   b.ID,
		ProviderID:  b.ProviderID,
		Date:        b.Date,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      string(b.Status),
		ClientName:  b.ClientName,
		ClientPhone: b.ClientPhone,
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid json body")
		return
	}

	b, err := h.svc.Create(r.Context(), booking.CreateRequest{
		ProviderID:  req.ProviderID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
	})
	if err != nil {
		var ce *booking.ConflictError
		switch {
		case errors.As(err, &ce):
			resp := conflictResponse{Error: booking.ErrConflict.Error()}
			resp.Conflict.Start = ce.With.StartTime
			resp.Conflict.End = ce.With.EndTime
			writeJSON(w, h.logger, http.StatusConflict, resp)
		case errors.Is(err, booking.ErrInvalidInput):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("create booking failed", "err", err, "provider_id", req.ProviderID)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to create booking")
		}
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid json body")
		return
	}

	b, err := h.svc.Cancel(r.Context(), req.ProviderID, req.BookingID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidInput):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, booking.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, "booking not found")
		default:
			h.logger.Error("cancel booking failed", "err", err, "booking_id", req.BookingID)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to cancel booking")
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toBookingResponse(b))
}

// ListUpcoming serves GET /api/v1/providers/{providerID}/bookings[?from=YYYY-MM-DD&limit=N].
func (h *BookingHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	providerID := strings.TrimSpace(r.PathValue("providerID"))
	q := r.URL.Query()

	from := strings.TrimSpace(q.Get("from"))
	if from == "" {
		from = h.today()
	} else if _, err := availability.ParseDate(from); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD")
		return
	}
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	bookings, err := h.list.ListUpcoming(r.Context(), providerID, from, limit)
	if err != nil {
		h.logger.Error("list bookings failed", "err", err, "provider_id", providerID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingResponse(b))
	}
	writeJSON(w, h.logger, http.StatusOK, items)
}
