// Package timeofday converts wall-clock strings to minutes since midnight and back.
//
// Every clock value that reaches slot arithmetic goes through Parse, whatever
// shape it was stored in: "HH:MM", "HH:MM:SS", "HH:MM:SS.ffffff" or a full
// timestamp such as "2024-03-04T10:30:00+00:00". Only the wall-clock part is
// kept; zone offsets are ignored.
package timeofday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrInvalidClock = errors.New("invalid clock value")

// Parse returns the minutes since midnight for raw.
func Parse(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "Tt "); i >= 0 && i+1 < len(s) && strings.Count(s[:i], "-") == 2 {
		s = s[i+1:]
	}
	s = stripZone(s)

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hh, err := twoDigits(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	mm, err := twoDigits(parts[1])
	if err != nil || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	if len(parts) == 3 {
		sec, _, _ := strings.Cut(parts[2], ".")
		ss, err := twoDigits(sec)
		if err != nil || ss > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
		if hh == 24 && ss != 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
	}
	if hh > 24 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return hh*60 + mm, nil
}

// Format renders minutes as zero-padded "HH:MM".
func Format(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// OfTime returns the wall-clock minutes of t in its own location.
func OfTime(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// stripZone drops a trailing "Z" or "+hh:mm"/"-hh:mm" offset.
func stripZone(s string) string {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "Z"), "z")
	if i := strings.LastIndexAny(s, "+-"); i > 0 {
		return s[:i]
	}
	return s
}

func twoDigits(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, ErrInvalidClock
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidClock
		}
	}
	return strconv.Atoi(s)
}
