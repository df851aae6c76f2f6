// Package cache provides the in-memory store used for provider bearer
// tokens. Cached state is process-memory only: a restart costs one fresh
// token exchange per credential, which is the intended trade-off.
package cache

import (
	"context"
)

// Store defines the interface for token caching implementations.
// The generic type T represents the value type being cached.
type Store[T any] interface {
	// Get retrieves a value from the cache.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value T) error

	// Invalidate removes a value from the cache.
	Invalidate(ctx context.Context, key string) error
}
