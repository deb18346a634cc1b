package availability

import "errors"

var (
	// ErrInvalidDateFormat is returned when a date is not a YYYY-MM-DD calendar date.
	ErrInvalidDateFormat = errors.New("availability: invalid date format, expected YYYY-MM-DD")

	// ErrInvalidDuration is returned for non-positive or longer-than-a-day durations.
	ErrInvalidDuration = errors.New("availability: invalid service duration")

	// ErrMissingProvider is returned when no provider id is supplied.
	ErrMissingProvider = errors.New("availability: provider id is required")
)
