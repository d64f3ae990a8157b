package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/kpidash/internal/infrastructure/metrics"
)

// Metrics returns a middleware recording request counts and latency.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)

			m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// routePattern prefers chi's matched pattern and falls back to normalizing
// the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath normalizes URL paths to avoid high cardinality.
// /api/v1/snapshots/snap_01ABC/insights -> /api/v1/snapshots/{id}/insights
func normalizePath(path string) string {
	const prefix = "/api/v1/snapshots/"

	if !strings.HasPrefix(path, prefix) {
		return path
	}

	rest := path[len(prefix):]
	id, suffix, _ := strings.Cut(rest, "/")
	switch id {
	case "", "latest", "duplicate":
		return path
	}

	if suffix != "" {
		return prefix + "{id}/" + suffix
	}
	return prefix + "{id}"
}
