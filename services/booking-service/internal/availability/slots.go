package availability

import (
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/timeofday"
)

// PastSlotBuffer is how far ahead of the current clock a same-day slot must start.
const PastSlotBuffer = 15

// Interval is a half-open [Start, End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// AvailableSlots returns slot starts within win for back-to-back slots of length duration,
// skipping starts before earliest and any slot that overlaps a busy interval.
func AvailableSlots(win Window, duration int, busy []Interval, earliest int) []int {
	if duration <= 0 || win.Close <= win.Open {
		return nil
	}

	var slots []int
	for t := win.Open; t+duration <= win.Close; t += duration {
		if t < earliest {
			continue
		}
		if !overlapsAny(t, t+duration, busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

// ComputeSlots is AvailableSlots formatted as "HH:MM". It never returns nil.
func ComputeSlots(win Window, duration int, busy []Interval, earliest int) []string {
	starts := AvailableSlots(win, duration, busy, earliest)
	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, timeofday.Format(s))
	}
	return out
}

// EarliestStart is the first permissible slot start on date given the current time.
// Only "today" in loc is restricted; other dates return 0.
func EarliestStart(date, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if !sameDate(date, local) {
		return 0
	}
	return timeofday.OfTime(local) + PastSlotBuffer
}

func overlapsAny(start, end int, busy []Interval) bool {
	for _, b := range busy {
		// Touching intervals do not overlap.
		if start < b.End && end > b.Start {
			return true
		}
	}
	return false
}
