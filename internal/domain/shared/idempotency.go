package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which result a client-supplied key produced
type IdempotencyStore interface {
	// Reserve binds key to value if the key is free and returns ("", true).
	// If the key is already bound it returns the existing value and false.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)

	// Release forgets a key, used when the work it guarded failed
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
