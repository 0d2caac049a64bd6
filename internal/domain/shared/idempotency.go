package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed change-batch keys to prevent duplicate
// re-application when the ERP resubmits the same batch.
type IdempotencyStore interface {
	// MarkProcessed marks a batch key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, batchKey string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a batch key has already been processed
	IsProcessed(ctx context.Context, batchKey string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for change-batch idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed batch keys.
	// After this duration, the same batch key is processed again; the pipeline
	// itself stays idempotent, the store only saves redundant work.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
