package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

// 2023-12-25 was a Monday.
var monday = time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)

func mondayRule(start, end string, closed bool) []model.WeeklyHourRule {
	return []model.WeeklyHourRule{
		{Weekday: model.Sunday, StartTime: "10:00", EndTime: "14:00"},
		{Weekday: model.Monday, StartTime: start, EndTime: end, IsClosed: closed},
	}
}

func TestResolveWindow_WeeklyRule(t *testing.T) {
	win, ok := ResolveWindow(monday, nil, mondayRule("09:00", "12:00:00", false), Normalizer{})
	if !ok || win != (Window{Open: 540, Close: 720}) {
		t.Fatalf("expected 09:00-12:00, got %+v ok=%v", win, ok)
	}
}

func TestResolveWindow_OverrideWins(t *testing.T) {
	overrides := []model.ScheduleOverride{
		{Date: "2023-12-25", StartTime: "10:00", EndTime: "11:00"},
		{Date: "2023-12-25", StartTime: "06:00", EndTime: "23:00"},
	}
	win, ok := ResolveWindow(monday, overrides, mondayRule("09:00", "12:00", false), Normalizer{})
	if !ok || win != (Window{Open: 600, Close: 660}) {
		t.Fatalf("expected override 10:00-11:00, got %+v ok=%v", win, ok)
	}

	// An open override applies even when the weekly rule is closed.
	win, ok = ResolveWindow(monday, overrides[:1], mondayRule("", "", true), Normalizer{})
	if !ok || win.Open != 600 {
		t.Fatalf("expected override to open a closed day, got %+v ok=%v", win, ok)
	}
}

func TestResolveWindow_Closed(t *testing.T) {
	cases := []struct {
		name      string
		overrides []model.ScheduleOverride
		rules     []model.WeeklyHourRule
	}{
		{"closed override", []model.ScheduleOverride{{IsClosed: true, StartTime: "09:00", EndTime: "17:00"}}, mondayRule("09:00", "17:00", false)},
		{"closed weekly", nil, mondayRule("09:00", "17:00", true)},
		{"no rule for weekday", nil, []model.WeeklyHourRule{{Weekday: model.Tuesday, StartTime: "09:00", EndTime: "17:00"}}},
		{"no rules", nil, nil},
		{"blank start", nil, mondayRule("", "17:00", false)},
		{"blank override end", []model.ScheduleOverride{{StartTime: "09:00", EndTime: "  "}}, mondayRule("09:00", "17:00", false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ResolveWindow(monday, tc.overrides, tc.rules, Normalizer{}); ok {
				t.Fatal("expected closed")
			}
		})
	}
}

func TestResolveWindow_WeekdayNamesAreLenient(t *testing.T) {
	rules := []model.WeeklyHourRule{{Weekday: "Monday", StartTime: "08:00", EndTime: "09:00"}}
	if win, ok := ResolveWindow(monday, nil, rules, Normalizer{}); !ok || win.Open != 480 {
		t.Fatalf("expected rule stored as Monday to match, got %+v ok=%v", win, ok)
	}
}
