package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Upload pipeline metrics
	Uploads         *prometheus.CounterVec
	UploadRows      prometheus.Histogram
	Forecasts       *prometheus.CounterVec
	ForecastLatency prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBConnections prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits     prometheus.Counter
	RateLimitVisitors prometheus.Gauge
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpidash_uploads_total",
				Help: "Total ledger uploads by outcome",
			},
			[]string{"outcome"},
		),
		UploadRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kpidash_upload_rows",
			Help:    "Rows per stored upload",
			Buckets: []float64{1, 6, 12, 24, 60, 120, 500, 1000},
		}),
		Forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpidash_forecasts_total",
				Help: "Total forecast requests by outcome",
			},
			[]string{"outcome"},
		),
		ForecastLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kpidash_forecast_duration_seconds",
			Help:    "Duration of forecast requests",
			Buckets: prometheus.DefBuckets,
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpidash_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kpidash_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kpidash_db_connections",
			Help: "Current number of acquired database connections",
		}),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "kpidash_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		RateLimitVisitors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kpidash_rate_limit_visitors",
			Help: "Clients currently tracked by the rate limiter",
		}),
	}
}

// ObserveUpload records the outcome of an upload. rows is ignored unless
// the upload was stored.
func (m *Metrics) ObserveUpload(outcome string, rows int) {
	m.Uploads.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.UploadRows.Observe(float64(rows))
	}
}

// ObserveForecast records the outcome and latency of a forecast request.
func (m *Metrics) ObserveForecast(outcome string, d time.Duration) {
	m.Forecasts.WithLabelValues(outcome).Inc()
	m.ForecastLatency.Observe(d.Seconds())
}
