package ratelimit

import (
	"context"
	"time"
)

// Store is an atomic fixed-window counter.
// IncrementWithTTL increments key and starts its TTL on the first hit of a window,
// returning the new count and the time left in the window.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (count int64, ttlLeft time.Duration, err error)
}
