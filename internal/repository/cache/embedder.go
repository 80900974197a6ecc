package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/ragsearch/internal/domain"
)

// CachedEmbedder caches query embeddings in the warm class.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewEmbedder wraps inner with a warm cache. A non-positive ttl uses DefaultWarmTTL.
func NewEmbedder(inner domain.Embedder, c *Cache, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultWarmTTL
	}
	return &CachedEmbedder{inner: inner, cache: c, ttl: ttl}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Concurrent misses for the same text share one provider call.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := Key("emb", []byte(strings.TrimSpace(text)))

	if data, ok := c.cache.Get(ctx, ClassWarm, key); ok {
		if vec, err := bytesToVector(data); err == nil {
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := detach(ctx)
		defer cancel()

		res, err := c.inner.Embed(callCtx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.cache.Set(callCtx, ClassWarm, key, vectorToBytes(res.Embedding), c.ttl)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", r.Err)
		}
		return r.Val.(domain.EmbeddingResult), nil //nolint:forcetypeassert // only EmbeddingResult is stored
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
