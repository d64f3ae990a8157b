package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/forecast"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	"github.com/iho/kpidash/internal/infrastructure/config"
	"github.com/iho/kpidash/internal/infrastructure/metrics"
)

func TestNewSchedulerRegistersCleanup(t *testing.T) {
	cfg := &config.Config{RateLimitCleanupSchedule: "@every 5m", RateLimitIdle: time.Minute}
	m := metrics.New(prometheus.NewRegistry())

	c, err := newScheduler(cfg, middleware.NewRateLimiter(1, 1), nil, m, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(c.Entries()); got != 1 {
		t.Fatalf("expected 1 job without a pool, got %d", got)
	}
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	cfg := &config.Config{RateLimitCleanupSchedule: "whenever"}
	m := metrics.New(prometheus.NewRegistry())

	if _, err := newScheduler(cfg, middleware.NewRateLimiter(1, 1), nil, m, zerolog.Nop()); err == nil {
		t.Fatalf("expected invalid schedule to fail")
	}
}

func TestNewForecastGateway(t *testing.T) {
	if gw := newForecastGateway(&config.Config{}, nil, zerolog.Nop()); gw != nil {
		t.Fatalf("expected no gateway without FORECAST_URL, got %T", gw)
	}

	gw := newForecastGateway(&config.Config{ForecastURL: "http://forecast:8000/forecast", ForecastCacheTTL: time.Hour}, nil, zerolog.Nop())
	if _, ok := gw.(*forecast.Client); !ok {
		t.Fatalf("expected uncached client without redis, got %T", gw)
	}
}

func TestHealthChecksWithoutRedis(t *testing.T) {
	checks := healthChecks(nil, nil)
	if _, ok := checks["redis"]; ok {
		t.Fatalf("expected redis check to be skipped")
	}
	if _, ok := checks["postgres"]; !ok {
		t.Fatalf("expected postgres check")
	}
}
