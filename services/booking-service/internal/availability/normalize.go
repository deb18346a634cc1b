package availability

import (
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/timeofday"
)

// Normalizer turns persisted clock strings into minutes. It never fails: a value it cannot
// parse counts as 00:00 and is logged, so one corrupt row cannot block a whole day.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) Normalizer {
	return Normalizer{logger: logger}
}

func (n Normalizer) Minutes(field, raw string) int {
	m, err := timeofday.Parse(raw)
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("unparsable clock value treated as 00:00", "field", field, "value", raw)
		}
		return 0
	}
	return m
}

// BusyIntervals returns the occupied intervals of all non-cancelled bookings.
// A booking without an end time occupies duration minutes from its start.
func (n Normalizer) BusyIntervals(bookings []model.Booking, duration int) []Interval {
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.IsCancelled() {
			continue
		}
		start := n.Minutes("booking.start_time", b.StartTime)
		end := start + duration
		if strings.TrimSpace(b.EndTime) != "" {
			end = n.Minutes("booking.end_time", b.EndTime)
		}
		busy = append(busy, Interval{Start: start, End: end})
	}
	return busy
}
