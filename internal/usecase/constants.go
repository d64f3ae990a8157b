package usecase

import "time"

const (
	// DefaultStoreTimeout bounds a single snapshot store call.
	DefaultStoreTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
