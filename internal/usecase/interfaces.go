package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/iho/kpidash/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// SnapshotRepository defines data access for snapshots. Every method is
// scoped to an owner; rows of other owners behave as if they did not exist.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.Snapshot) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Snapshot, error)
	// GetLatest returns domain.ErrSnapshotNotFound when the owner has none.
	GetLatest(ctx context.Context, ownerID string) (*domain.Snapshot, error)
	ListSummaries(ctx context.Context, ownerID string, limit, offset int) ([]domain.SnapshotSummary, error)
	UpdateName(ctx context.Context, ownerID, id, name string) error
	Delete(ctx context.Context, ownerID, id string) error
}

// ForecastGateway obtains revenue predictions for a ledger.
type ForecastGateway interface {
	Forecast(ctx context.Context, rows domain.Ledger) ([]domain.ForecastPoint, error)
}

// LedgerParser turns uploaded CSV bytes into a ledger.
type LedgerParser interface {
	Parse(r io.Reader) (*domain.ParseResult, error)
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock in UTC.
var SystemClock Clock = systemClock{}
