package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
)

// CachedGateway serves repeated forecasts of the same ledger from a cache.
// Only successful forecasts are cached; cache failures fall through to the
// wrapped gateway.
type CachedGateway struct {
	next   usecase.ForecastGateway
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedGateway wraps next with cache.
func NewCachedGateway(next usecase.ForecastGateway, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedGateway {
	return &CachedGateway{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "forecast_cache").Logger(),
	}
}

type cachedPoint struct {
	Date              string  `json:"date"`
	ForecastedRevenue float64 `json:"forecasted_revenue"`
}

// Forecast implements usecase.ForecastGateway.
func (g *CachedGateway) Forecast(ctx context.Context, rows domain.Ledger) ([]domain.ForecastPoint, error) {
	key, err := CacheKey(rows)
	if err != nil {
		return g.next.Forecast(ctx, rows)
	}

	if points, ok := g.lookup(ctx, key); ok {
		return points, nil
	}

	points, err := g.next.Forecast(ctx, rows)
	if err != nil {
		return nil, err
	}

	g.store(ctx, key, points)

	return points, nil
}

// CacheKey is the hex SHA-256 of the ledger's CSV form.
func CacheKey(rows domain.Ledger) (string, error) {
	payload, err := csvledger.MarshalLedger(rows)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func (g *CachedGateway) lookup(ctx context.Context, key string) ([]domain.ForecastPoint, bool) {
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, usecase.ErrCacheMiss) {
			g.logger.Warn().Err(err).Msg("forecast cache read failed")
		}
		return nil, false
	}

	var cached []cachedPoint
	if err := json.Unmarshal(raw, &cached); err != nil {
		g.logger.Warn().Err(err).Msg("discarding corrupt forecast cache entry")
		return nil, false
	}

	if cached == nil {
		return nil, true
	}

	points := make([]domain.ForecastPoint, len(cached))
	for i, p := range cached {
		points[i] = domain.ForecastPoint{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
	}

	return points, true
}

func (g *CachedGateway) store(ctx context.Context, key string, points []domain.ForecastPoint) {
	var cached []cachedPoint
	if points != nil {
		cached = make([]cachedPoint, len(points))
		for i, p := range points {
			cached[i] = cachedPoint{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
		}
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}

	if err := g.cache.Set(ctx, key, raw, g.ttl); err != nil {
		g.logger.Warn().Err(err).Msg("forecast cache write failed")
	}
}
