package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// store is the consumer interface for window counters (ISP).
type store interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}

// Store implements usecase/ratelimit.Store on top of DB (INCR + EXPIRE NX + PTTL).
type Store struct {
	store store
}

// New creates a rate limit counter store.
func New(s store) *Store {
	return &Store{store: s}
}

// IncrementWithTTL atomically increments the window counter for key.
// The window starts on the first hit; later hits never extend it.
func (s *Store) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	count, left, err := s.store.IncrWithTTL(ctx, key, ttl)
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit INCR %s: %w", key, err)
	}
	// PTTL can race with expiry; report a full window rather than zero.
	if left <= 0 || left > ttl {
		left = ttl
	}
	return count, left, nil
}
