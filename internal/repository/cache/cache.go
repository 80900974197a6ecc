package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/db"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Class names a TTL class. Entries are immutable once written.
type Class string

const (
	// ClassWarm holds embeddings, which only change meaning with the model.
	ClassWarm Class = "warm"
	// ClassHot holds query results, which must follow content updates.
	ClassHot Class = "hot"
)

// Default TTLs.
const (
	DefaultWarmTTL = time.Hour
	DefaultHotTTL  = 15 * time.Minute
)

// SharedCallTimeout bounds a coalesced miss once it is detached from its caller.
const SharedCallTimeout = 60 * time.Second

// detach keeps ctx values but not its cancellation, so one caller going away
// does not fail the others waiting on the same miss.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), SharedCallTimeout)
}

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a best-effort byte cache over a key-value store.
// Store failures are logged and reported as misses; they never fail the caller.
type Cache struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a cache. Every key is namespaced under prefix.
func New(s store, prefix string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, prefix: prefix, logger: logger}
}

// Get returns the cached value for key.
func (c *Cache) Get(ctx context.Context, class Class, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cache", zap.String("class", string(class)), zap.Error(err))
		}
		metrics.CacheTotal.WithLabelValues(string(class), "miss").Inc()
		return nil, false
	}
	if len(data) == 0 {
		metrics.CacheTotal.WithLabelValues(string(class), "miss").Inc()
		return nil, false
	}
	metrics.CacheTotal.WithLabelValues(string(class), "hit").Inc()
	return data, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, class Class, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, c.prefix+key, value, ttl); err != nil {
		c.logger.Warn("Failed to write cache", zap.String("class", string(class)), zap.Error(err))
	}
}

// Key hashes the semantic key parts into a fixed-length key under namespace.
// Parts are length-prefixed so ("ab","c") and ("a","bc") never collide.
func Key(namespace string, parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write(p)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
