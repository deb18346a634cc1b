package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/schedule"
)

type ScheduleHandler struct {
	svc    ScheduleService
	logger *slog.Logger
}

func NewScheduleHandler(svc ScheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

type weeklyHourItem struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsClosed  bool   `json:"is_closed"`
}

type overrideRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsClosed  bool   `json:"is_closed"`
}

func toWeeklyItems(rules []model.WeeklyHourRule) []weeklyHourItem {
	items := make([]weeklyHourItem, 0, len(rules))
	for _, r := range rules {
		items = append(items, weeklyHourItem{
			Weekday:   string(r.Weekday),
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			IsClosed:  r.IsClosed,
		})
	}
	return items
}

// WeeklyHours serves GET (read) and POST (upsert a list of weekdays).
func (h *ScheduleHandler) WeeklyHours(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	switch r.Method {
	case http.MethodGet:
		rules, err := h.svc.WeeklyHours(r.Context(), providerID)
		if err != nil {
			h.fail(w, err, "load weekly hours failed", providerID)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, toWeeklyItems(rules))
	case http.MethodPost:
		var items []weeklyHourItem
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid json body")
			return
		}
		rules := make([]model.WeeklyHourRule, 0, len(items))
		for _, it := range items {
			rules = append(rules, model.WeeklyHourRule{
				Weekday:   model.Weekday(it.Weekday),
				StartTime: it.StartTime,
				EndTime:   it.EndTime,
				IsClosed:  it.IsClosed,
			})
		}
		saved, err := h.svc.UpdateWeeklyHours(r.Context(), providerID, rules)
		if err != nil {
			h.fail(w, err, "update weekly hours failed", providerID)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, toWeeklyItems(saved))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// EnsureDefaults seeds the onboarding hours without touching configured days.
func (h *ScheduleHandler) EnsureDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	providerID := r.PathValue("providerID")
	if err := h.svc.EnsureDefaults(r.Context(), providerID); err != nil {
		h.fail(w, err, "seed weekly hours failed", providerID)
		return
	}
	rules, err := h.svc.WeeklyHours(r.Context(), providerID)
	if err != nil {
		h.fail(w, err, "load weekly hours failed", providerID)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toWeeklyItems(rules))
}

func (h *ScheduleHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	providerID := r.PathValue("providerID")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid json body")
		return
	}
	o, err := h.svc.SetOverride(r.Context(), model.ScheduleOverride{
		ProviderID: providerID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		IsClosed:   req.IsClosed,
	})
	if err != nil {
		h.fail(w, err, "save override failed", providerID)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, overrideRequest{
		Date:      o.Date,
		StartTime: o.StartTime,
		EndTime:   o.EndTime,
		IsClosed:  o.IsClosed,
	})
}

func (h *ScheduleHandler) fail(w http.ResponseWriter, err error, msg, providerID string) {
	if errors.Is(err, schedule.ErrInvalidInput) {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(msg, "err", err, "provider_id", providerID)
	writeError(w, h.logger, http.StatusInternalServerError, msg)
}
