package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/adapter/forecast"
	httpAdapter "github.com/iho/kpidash/internal/adapter/http"
	"github.com/iho/kpidash/internal/adapter/http/handler"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/kpidash/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/kpidash/internal/adapter/repository/redis"
	"github.com/iho/kpidash/internal/infrastructure/auth"
	"github.com/iho/kpidash/internal/infrastructure/config"
	"github.com/iho/kpidash/internal/infrastructure/logger"
	"github.com/iho/kpidash/internal/infrastructure/metrics"
	"github.com/iho/kpidash/internal/infrastructure/postgres"
	"github.com/iho/kpidash/internal/infrastructure/redis"
	"github.com/iho/kpidash/internal/usecase"
)

const poolStatsSchedule = "@every 15s"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "kpidash"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Apply migrations before accepting traffic
	if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewOptionalClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("redis disabled: running without idempotency and forecast cache")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	snapshotRepo := postgresRepo.NewSnapshotRepository(pool)
	retrier := postgresRepo.NewRetrier(log)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	snapshotUC := usecase.NewSnapshotUseCase(snapshotRepo, idGen, retrier, usecase.SystemClock)
	uploadUC := usecase.NewUploadUseCase(csvledger.NewParser(), newForecastGateway(cfg, redisClient, log), snapshotUC, m, log)

	// Rate limiting with periodic cleanup of idle clients
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
	scheduler, err := newScheduler(cfg, rateLimiter, pool, m, log)
	if err != nil {
		return fmt.Errorf("failed to schedule background jobs: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	routerCfg := httpAdapter.RouterConfig{
		UploadHandler:   handler.NewUploadHandler(uploadUC, cfg.MaxUploadBytes, log),
		SnapshotHandler: handler.NewSnapshotHandler(snapshotUC, log),
		HealthHandler:   handler.NewHealthHandler(healthChecks(pool, redisClient)),
		IdempotencyTTL:  cfg.IdempotencyTTL,
		RateLimiter:     rateLimiter,
		DevOwnerID:      cfg.DevOwnerID,
		Metrics:         m,
		MetricsGatherer: registry,
		Logger:          log,
	}
	if redisClient != nil {
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}
	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, 0)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// newForecastGateway returns nil when no forecast service is configured.
func newForecastGateway(cfg *config.Config, redisClient *goredis.Client, log zerolog.Logger) usecase.ForecastGateway {
	if cfg.ForecastURL == "" {
		log.Warn().Msg("FORECAST_URL not set: uploads are stored without forecasts")
		return nil
	}

	var gateway usecase.ForecastGateway = forecast.NewClient(forecast.Config{
		URL:        cfg.ForecastURL,
		Timeout:    cfg.ForecastTimeout,
		MaxRetries: cfg.ForecastMaxRetries,
	}, nil, log)

	if redisClient != nil && cfg.ForecastCacheTTL > 0 {
		gateway = forecast.NewCachedGateway(gateway, redisRepo.NewCache(redisClient, "forecast"), cfg.ForecastCacheTTL, log)
	}

	return gateway
}

// newScheduler registers the periodic maintenance jobs.
func newScheduler(cfg *config.Config, rl *middleware.RateLimiter, pool *pgxpool.Pool, m *metrics.Metrics, log zerolog.Logger) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(cfg.RateLimitCleanupSchedule, func() {
		if removed := rl.CleanupLimiters(cfg.RateLimitIdle); removed > 0 {
			log.Debug().Int("removed", removed).Msg("rate limiter cleanup")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_CLEANUP_SCHEDULE %q: %w", cfg.RateLimitCleanupSchedule, err)
	}

	if pool != nil {
		if _, err := c.AddFunc(poolStatsSchedule, func() {
			m.DBConnections.Set(float64(pool.Stat().AcquiredConns()))
		}); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func healthChecks(pool *pgxpool.Pool, redisClient *goredis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"postgres": pool}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	return checks
}
