package availability

import (
	"context"
	"fmt"
	"time"
)

const DefaultCacheTTL = 60 * time.Second

// DefaultInvalidationDurations are the service durations always cleared on invalidation,
// in addition to whatever durations a cache backend has recorded for the day.
var DefaultInvalidationDurations = []int{15, 30, 45, 60, 90}

// Key identifies one cached slot list.
type Key struct {
	ProviderID string
	Date       string
	Duration   int
}

func (k Key) String() string {
	return fmt.Sprintf("availability:%s:%d:%s", k.ProviderID, k.Duration, k.Date)
}

// DayIndexKey names the set of durations cached for one provider and date.
func DayIndexKey(providerID, date string) string {
	return fmt.Sprintf("availability:durations:%s:%s", providerID, date)
}

// Cache stores computed slot lists. Implementations must be safe for concurrent use.
//
// InvalidateDay removes the entries for every duration in durations plus every duration the
// backend has seen stored for (providerID, date).
type Cache interface {
	Get(ctx context.Context, key Key) (slots []string, ok bool, err error)
	Set(ctx context.Context, key Key, slots []string, ttl time.Duration) error
	InvalidateDay(ctx context.Context, providerID, date string, durations []int) error
}
