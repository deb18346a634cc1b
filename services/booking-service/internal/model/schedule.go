package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the three-letter lowercase day name used in persisted weekly rules.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf derives the weekday from a calendar date.
func WeekdayOf(date time.Time) Weekday {
	switch date.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ParseWeekday accepts "mon", "Monday", "MONDAY" and similar.
func ParseWeekday(raw string) (Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) >= 3 {
		s = s[:3]
	}
	for _, d := range Weekdays {
		if Weekday(s) == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// WeeklyHourRule is the default recurring schedule for one weekday.
// Times are kept exactly as persisted; see the timeofday package.
type WeeklyHourRule struct {
	ProviderID string
	Weekday    Weekday
	StartTime  string
	EndTime    string
	IsClosed   bool
}

// ScheduleOverride replaces the weekly rule for a single date (YYYY-MM-DD).
type ScheduleOverride struct {
	ProviderID string
	Date       string
	StartTime  string
	EndTime    string
	IsClosed   bool
}

const (
	DefaultOpenTime  = "09:00"
	DefaultCloseTime = "17:00"
)

// DefaultWeeklyHours is the schedule seeded when a provider is onboarded.
func DefaultWeeklyHours(providerID string) []WeeklyHourRule {
	rules := make([]WeeklyHourRule, 0, len(Weekdays))
	for _, d := range Weekdays {
		rules = append(rules, WeeklyHourRule{
			ProviderID: providerID,
			Weekday:    d,
			StartTime:  DefaultOpenTime,
			EndTime:    DefaultCloseTime,
		})
	}
	return rules
}
