package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/http/handler"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	"github.com/iho/kpidash/internal/infrastructure/metrics"
	"github.com/iho/kpidash/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	UploadHandler   *handler.UploadHandler
	SnapshotHandler *handler.SnapshotHandler
	HealthHandler   *handler.HealthHandler

	// Optional
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	TokenVerifier    middleware.TokenVerifier
	DevOwnerID       string
	Metrics          *metrics.Metrics
	MetricsGatherer  prometheus.Gatherer
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.TokenVerifier, cfg.DevOwnerID))

		// Preview never stores, so it is not idempotency-tracked.
		r.Post("/insights", cfg.UploadHandler.Preview)

		r.Group(func(r chi.Router) {
			// Idempotency middleware for creating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
				r.Use(idempotencyMiddleware.Wrap)
			}

			r.Post("/uploads", cfg.UploadHandler.Upload)

			r.Route("/snapshots", func(r chi.Router) {
				r.Post("/", cfg.SnapshotHandler.Create)
				r.Get("/", cfg.SnapshotHandler.List)
				r.Get("/latest", cfg.SnapshotHandler.Latest)
				r.Post("/duplicate", cfg.SnapshotHandler.Duplicate)
				r.Get("/{id}", cfg.SnapshotHandler.Get)
				r.Patch("/{id}", cfg.SnapshotHandler.Rename)
				r.Delete("/{id}", cfg.SnapshotHandler.Delete)
				r.Post("/{id}/duplicate", cfg.SnapshotHandler.DuplicateByID)
				r.Get("/{id}/insights", cfg.SnapshotHandler.Insights)
				r.Get("/{id}/export.csv", cfg.SnapshotHandler.Export)
			})
		})
	})

	return r
}
