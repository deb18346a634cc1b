package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/chairbook/libs/config"
	"github.com/md-rashed-zaman/chairbook/libs/db"
	"github.com/md-rashed-zaman/chairbook/libs/httpx"
	"github.com/md-rashed-zaman/chairbook/libs/kafkax"
	"github.com/md-rashed-zaman/chairbook/libs/metrics"
	otelx "github.com/md-rashed-zaman/chairbook/libs/otel"
	"github.com/md-rashed-zaman/chairbook/libs/runtime"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/cachemetrics"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/memorycache"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/rediscache"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/migrations"
)

func main() {
	if err := config.LoadDotEnv(config.String("ENV_FILE", ".env")); err != nil {
		panic(err)
	}
	cfg, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(pool, migrations.FS, "."); err != nil {
			logger.Error("db migration failed", "err", err)
			panic(err)
		}
		logger.Info("db schema up to date")
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
	}

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = rediscache.NewClient(cfg.RedisURL)
		if err != nil {
			panic(err)
		}
		defer func() { _ = rdb.Close() }()
	}

	var cache availability.Cache
	switch cfg.CacheBackend {
	case cacheBackendRedis:
		rc := rediscache.New(rdb)
		cache = rc
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: rc.Ping})
	default:
		mc := memorycache.New()
		go mc.RunSweeper(ctx, time.Minute)
		cache = mc
	}
	if reg != nil {
		cache = cachemetrics.Wrap(cache, reg, cfg.CacheBackend)
	}
	logger.Info("availability cache configured", "backend", cfg.CacheBackend, "ttl", cfg.CacheTTL.String(), "timezone", cfg.Location.String())

	scheduleRepo := storage.NewScheduleRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	availabilitySvc := availability.NewService(storage.NewStore(scheduleRepo, bookingRepo), cache, logger, availability.Config{
		TTL:                   cfg.CacheTTL,
		InvalidationDurations: cfg.Invalidate,
		Location:              cfg.Location,
	})
	bookingSvc := booking.NewService(bookingRepo, scheduleRepo, outboxRepo, availabilitySvc, logger, booking.Options{
		IsConflict:  storage.IsConflict,
		IsNotFound:  storage.IsNotFound,
		PhoneRegion: cfg.PhoneRegion,
	})
	scheduleSvc := schedule.NewService(scheduleRepo, availabilitySvc, logger)

	if cfg.KafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		go consumer.New(logger, availabilitySvc, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		}).Run(ctx)
	}
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	mux := runtime.NewBaseMux(readyChecks...)
	handlers.Register(mux,
		handlers.NewAvailabilityHandler(availabilitySvc, scheduleRepo, logger),
		handlers.NewBookingHandler(bookingSvc, bookingRepo, logger, cfg.Location),
		handlers.NewScheduleHandler(scheduleSvc, logger),
	)

	var routed http.Handler = mux
	if reg != nil {
		mux.Handle("GET /metrics", metrics.Handler(reg))
		routed = metrics.NewHTTP(reg, cfg.Service).Middleware(mux)
	}

	middleware := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(10 * time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSOrigins,
			PathPrefixes:   []string{"/api/v1/public/", "/api/v1/availability"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
			MaxAge:         cfg.CORSMaxAge,
		}),
	}
	if cfg.RateLimitPerMinute > 0 {
		var limiter httpx.Limiter
		if rdb != nil {
			limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "rl:"+cfg.Service)
			logger.Info("rate limiting enabled (redis)", "per_minute", cfg.RateLimitPerMinute)
		} else {
			limiter = httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
			logger.Info("rate limiting enabled (in-memory)", "per_minute", cfg.RateLimitPerMinute)
		}
		middleware = append(middleware, httpx.RateLimit(limiter, logger))
	}

	httpHandler := httpx.Chain(routed, middleware...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		logger.Error("booking service exiting", "err", err)
	}
}
