// Package memorycache is a process-local availability cache. Peer instances are kept coherent
// by the invalidation consumer.
package memorycache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
)

type entry struct {
	slots     []string
	expiresAt time.Time
}

type dayKey struct {
	providerID string
	date       string
}

type Cache struct {
	mu      sync.Mutex
	entries map[availability.Key]entry
	days    map[dayKey]map[int]struct{}
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[availability.Key]entry),
		days:    make(map[dayKey]map[int]struct{}),
		now:     time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key availability.Key) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(key)
		return nil, false, nil
	}
	return slices.Clone(e.slots), true, nil
}

func (c *Cache) Set(_ context.Context, key availability.Key, slots []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{slots: slices.Clone(slots), expiresAt: c.now().Add(ttl)}
	dk := dayKey{providerID: key.ProviderID, date: key.Date}
	if c.days[dk] == nil {
		c.days[dk] = make(map[int]struct{})
	}
	c.days[dk][key.Duration] = struct{}{}
	return nil
}

func (c *Cache) InvalidateDay(_ context.Context, providerID, date string, durations []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dk := dayKey{providerID: providerID, date: date}
	for d := range c.days[dk] {
		delete(c.entries, availability.Key{ProviderID: providerID, Date: date, Duration: d})
	}
	for _, d := range durations {
		delete(c.entries, availability.Key{ProviderID: providerID, Date: date, Duration: d})
	}
	delete(c.days, dk)
	return nil
}

// Sweep drops expired entries. Get already ignores them; this only bounds memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(k)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(key availability.Key) {
	delete(c.entries, key)
	dk := dayKey{providerID: key.ProviderID, date: key.Date}
	if set, ok := c.days[dk]; ok {
		delete(set, key.Duration)
		if len(set) == 0 {
			delete(c.days, dk)
		}
	}
}
