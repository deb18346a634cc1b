package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/chairbook/libs/config"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
)

const (
	cacheBackendMemory = "memory"
	cacheBackendRedis  = "redis"
)

type settings struct {
	Service     string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	AutoMigrate bool

	RedisURL     string
	CacheBackend string
	CacheTTL     time.Duration
	Invalidate   []int
	Location     *time.Location

	KafkaBrokers string
	KafkaGroupID string

	RateLimitPerMinute int
	MetricsEnabled     bool
	PhoneRegion        string

	CORSOrigins []string
	CORSMaxAge  time.Duration
}

func loadSettings() (settings, error) {
	s := settings{
		Service:        config.String("SERVICE_NAME", "booking-service"),
		RedisURL:       config.String("REDIS_URL", ""),
		KafkaBrokers:   config.String("KAFKA_BROKERS", ""),
		AutoMigrate:    config.Bool("DB_AUTO_MIGRATE", true),
		MetricsEnabled: config.Bool("METRICS_ENABLED", true),
		PhoneRegion:    strings.ToUpper(config.String("PHONE_DEFAULT_REGION", "US")),
		CORSOrigins:    config.List("CORS_ALLOWED_ORIGINS", nil),
	}
	var err error
	if s.Port, err = config.Port("PORT", "8083"); err != nil {
		return settings{}, err
	}
	if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return settings{}, err
	}
	if s.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		return settings{}, err
	}

	s.CacheBackend = strings.ToLower(config.String("CACHE_BACKEND", ""))
	switch s.CacheBackend {
	case "":
		s.CacheBackend = cacheBackendMemory
		if s.RedisURL != "" {
			s.CacheBackend = cacheBackendRedis
		}
	case cacheBackendMemory:
	case cacheBackendRedis:
		if s.RedisURL == "" {
			return settings{}, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return settings{}, fmt.Errorf("CACHE_BACKEND must be %q or %q (got %q)", cacheBackendMemory, cacheBackendRedis, s.CacheBackend)
	}

	if s.CacheTTL, err = config.Duration("AVAILABILITY_CACHE_TTL", availability.DefaultCacheTTL); err != nil {
		return settings{}, err
	}
	if s.CacheTTL <= 0 {
		return settings{}, fmt.Errorf("AVAILABILITY_CACHE_TTL must be positive")
	}
	if s.Invalidate, err = config.IntList("AVAILABILITY_INVALIDATE_DURATIONS", availability.DefaultInvalidationDurations); err != nil {
		return settings{}, err
	}
	tz := config.String("AVAILABILITY_TIMEZONE", "UTC")
	if s.Location, err = time.LoadLocation(tz); err != nil {
		return settings{}, fmt.Errorf("AVAILABILITY_TIMEZONE: %w", err)
	}

	// Each instance keeps its own cache, so each needs its own consumer group.
	host, _ := os.Hostname()
	s.KafkaGroupID = config.String("KAFKA_GROUP_ID", s.Service+"-cache-"+host)

	if s.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return settings{}, err
	}
	if s.CORSMaxAge, err = config.Duration("CORS_MAX_AGE", 10*time.Minute); err != nil {
		return settings{}, err
	}
	return s, nil
}
