// Package cache provides the key-value cache used for suggestion lookups.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the minimal contract for a string key-value cache.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ErrMiss when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the backend.
	Ping(ctx context.Context) error

	Close() error
}

// ErrMiss signals a cache miss. Callers distinguish it from transport errors
// with errors.Is.
var ErrMiss = errors.New("cache: miss")
