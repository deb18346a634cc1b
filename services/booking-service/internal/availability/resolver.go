package availability

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

// Window is a day's opening hours in minutes since midnight.
type Window struct {
	Open  int
	Close int
}

// ResolveWindow returns the effective opening hours for date, or false when the provider is closed.
//
// An override for the date replaces the weekly rule entirely; if several are present the
// first one wins. Without an override the weekly rule for the date's weekday applies, and a
// missing rule means closed. Blank start or end times also mean closed.
func ResolveWindow(date time.Time, overrides []model.ScheduleOverride, rules []model.WeeklyHourRule, n Normalizer) (Window, bool) {
	var start, end string
	if len(overrides) > 0 {
		ov := overrides[0]
		if ov.IsClosed {
			return Window{}, false
		}
		start, end = ov.StartTime, ov.EndTime
	} else {
		rule, ok := ruleForWeekday(model.WeekdayOf(date), rules)
		if !ok || rule.IsClosed {
			return Window{}, false
		}
		start, end = rule.StartTime, rule.EndTime
	}

	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return Window{}, false
	}
	return Window{
		Open:  n.Minutes("schedule.start_time", start),
		Close: n.Minutes("schedule.end_time", end),
	}, true
}

func ruleForWeekday(day model.Weekday, rules []model.WeeklyHourRule) (model.WeeklyHourRule, bool) {
	for _, r := range rules {
		wd, err := model.ParseWeekday(string(r.Weekday))
		if err != nil {
			continue
		}
		if wd == day {
			return r, true
		}
	}
	return model.WeeklyHourRule{}, false
}
