package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragsearch/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrWithTTL pipelines INCR, EXPIRE NX and PTTL in one round-trip.
// INCR is atomic, so concurrent callers always observe distinct counts.
// EXPIRE NX only arms the window on a key without expiry, which also heals
// a key whose first EXPIRE was lost.
func (s *Store) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}

	results := s.client.DoMulti(ctx,
		s.b().Incr().Key(key).Build(),
		s.b().Expire().Key(key).Seconds(secs).Nx().Build(),
		s.b().Pttl().Key(key).Build(),
	)

	count, err := results[0].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpIncr, Err: err}
	}
	if err := results[1].Error(); err != nil {
		return 0, 0, &db.Error{Op: db.OpExpire, Err: err}
	}
	ms, err := results[2].AsInt64()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpPTTL, Err: err}
	}

	left := time.Duration(ms) * time.Millisecond
	if ms < 0 {
		left = 0 // -1: no expiry, -2: key gone
	}
	return count, left, nil
}
