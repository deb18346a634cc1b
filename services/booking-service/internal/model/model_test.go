package model

import (
	"testing"
	"time"
)

func TestWeekdayOf(t *testing.T) {
	// 2023-12-25 was a Monday.
	day := time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)
	for i, want := range Weekdays {
		if got := WeekdayOf(day.AddDate(0, 0, i)); got != want {
			t.Fatalf("day %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	for raw, want := range map[string]Weekday{"mon": Monday, "Monday": Monday, " SUNDAY ": Sunday, "thu": Thursday} {
		got, err := ParseWeekday(raw)
		if err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %q, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "mo", "holiday"} {
		if _, err := ParseWeekday(raw); err == nil {
			t.Fatalf("ParseWeekday(%q) expected error", raw)
		}
	}
}

func TestDefaultWeeklyHours(t *testing.T) {
	rules := DefaultWeeklyHours("p1")
	if len(rules) != 7 {
		t.Fatalf("expected 7 rules, got %d", len(rules))
	}
	for _, r := range rules {
		if r.ProviderID != "p1" || r.IsClosed || r.StartTime != "09:00" || r.EndTime != "17:00" {
			t.Fatalf("unexpected default rule %+v", r)
		}
	}
}
