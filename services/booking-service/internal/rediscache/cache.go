// Package rediscache stores availability slot lists in Redis so every instance shares them.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
)

// Cache keeps one JSON string per availability key plus a set per (provider, date) recording
// which durations were stored, so invalidation can reach durations outside the enumerated list.
type Cache struct {
	rdb redis.UniversalClient
}

func New(rdb redis.UniversalClient) *Cache {
	return &Cache{rdb: rdb}
}

// NewClient builds a client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *Cache) Get(ctx context.Context, key availability.Key) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("decode cached slots: %w", err)
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, true, nil
}

func (c *Cache) Set(ctx context.Context, key availability.Key, slots []string, ttl time.Duration) error {
	if slots == nil {
		slots = []string{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	index := availability.DayIndexKey(key.ProviderID, key.Date)

	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key.String(), raw, ttl)
		p.SAdd(ctx, index, key.Duration)
		// The index outlives its newest entry by one TTL at most.
		p.Expire(ctx, index, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// invalidateDayScript reads the day index and deletes it together with every entry it names
// and every duration passed in ARGV[3..]. Running it as one script means a Set landing
// mid-invalidation either precedes it entirely or survives with its index intact.
var invalidateDayScript = redis.NewScript(`
local keys = {KEYS[1]}
local seen = {}
local function add(d)
  if not seen[d] then
    seen[d] = true
    keys[#keys + 1] = ARGV[1] .. d .. ARGV[2]
  end
end
for i = 3, #ARGV do
  add(ARGV[i])
end
for _, d in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  add(d)
end
return redis.call("DEL", unpack(keys))
`)

func (c *Cache) InvalidateDay(ctx context.Context, providerID, date string, durations []int) error {
	// Entry keys are availability.Key strings: prefix + duration + suffix.
	args := make([]any, 0, len(durations)+2)
	args = append(args, "availability:"+providerID+":", ":"+date)
	for _, d := range durations {
		args = append(args, strconv.Itoa(d))
	}
	index := availability.DayIndexKey(providerID, date)
	if err := invalidateDayScript.Run(ctx, c.rdb, []string{index}, args...).Err(); err != nil {
		return fmt.Errorf("redis invalidate day: %w", err)
	}
	return nil
}

// Ping is a readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
