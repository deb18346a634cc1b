// Package cachemetrics counts availability cache outcomes.
package cachemetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
)

// Cache wraps an availability.Cache and records lookups, writes and invalidations.
type Cache struct {
	next          availability.Cache
	lookups       *prometheus.CounterVec
	writes        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func Wrap(next availability.Cache, reg prometheus.Registerer, backend string) *Cache {
	labels := prometheus.Labels{"backend": backend}
	c := &Cache{
		next: next,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "availability_cache_lookups_total",
			Help:        "Availability cache lookups by result (hit, miss, error).",
			ConstLabels: labels,
		}, []string{"result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "availability_cache_writes_total",
			Help:        "Availability cache writes by result (ok, error).",
			ConstLabels: labels,
		}, []string{"result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "availability_cache_invalidations_total",
			Help:        "Per-day availability invalidations by result (ok, error).",
			ConstLabels: labels,
		}, []string{"result"}),
	}
	reg.MustRegister(c.lookups, c.writes, c.invalidations)
	return c
}

func (c *Cache) Get(ctx context.Context, key availability.Key) ([]string, bool, error) {
	slots, ok, err := c.next.Get(ctx, key)
	switch {
	case err != nil:
		c.lookups.WithLabelValues("error").Inc()
	case ok:
		c.lookups.WithLabelValues("hit").Inc()
	default:
		c.lookups.WithLabelValues("miss").Inc()
	}
	return slots, ok, err
}

func (c *Cache) Set(ctx context.Context, key availability.Key, slots []string, ttl time.Duration) error {
	err := c.next.Set(ctx, key, slots, ttl)
	c.writes.WithLabelValues(result(err)).Inc()
	return err
}

func (c *Cache) InvalidateDay(ctx context.Context, providerID, date string, durations []int) error {
	err := c.next.InvalidateDay(ctx, providerID, date, durations)
	c.invalidations.WithLabelValues(result(err)).Inc()
	return err
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
