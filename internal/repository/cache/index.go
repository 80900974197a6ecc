package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

// CachedIndex caches vector query results in the hot class.
// The key covers the vector, top_k and the filter, so tenants never share entries.
type CachedIndex struct {
	inner domain.VectorIndex
	cache *Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewIndex wraps inner with a hot cache. A non-positive ttl uses DefaultHotTTL.
func NewIndex(inner domain.VectorIndex, c *Cache, ttl time.Duration) *CachedIndex {
	if ttl <= 0 {
		ttl = DefaultHotTTL
	}
	return &CachedIndex{inner: inner, cache: c, ttl: ttl}
}

// Configured forwards the inner index's readiness when it reports one.
func (c *CachedIndex) Configured() bool {
	if r, ok := c.inner.(interface{ Configured() bool }); ok {
		return r.Configured()
	}
	return true
}

// Query returns cached matches or queries the inner index.
func (c *CachedIndex) Query(
	ctx context.Context, vector []float32, topK int, filters filter.Expression,
) ([]match.Match, error) {
	key := Key("query", vectorToBytes(vector), []byte(strconv.Itoa(topK)), []byte(filters.String()))

	if data, ok := c.cache.Get(ctx, ClassHot, key); ok {
		var cached []match.Match
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := detach(ctx)
		defer cancel()

		matches, err := c.inner.Query(callCtx, vector, topK, filters)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(matches); err == nil {
			c.cache.Set(callCtx, ClassHot, key, data, c.ttl)
		}
		return matches, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("query index: %w", ctx.Err())
	case r = <-ch:
	}
	if r.Err != nil {
		return nil, fmt.Errorf("query index: %w", r.Err)
	}

	// Callers may reorder the slice; shared singleflight results must stay intact.
	shared := r.Val.([]match.Match) //nolint:forcetypeassert // only []match.Match is stored
	out := make([]match.Match, len(shared))
	for i := range shared {
		out[i] = shared[i].Clone()
	}
	return out, nil
}
