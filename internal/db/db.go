package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	CounterStore
	IndexManager
	Searcher
	StreamWriter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides expiring key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore provides fixed-window counters.
type CounterStore interface {
	// IncrWithTTL increments key, starts ttl if the key has no expiry yet,
	// and returns the new value with the remaining time to live.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides vector search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// StreamWriter appends entries to capped streams.
type StreamWriter interface {
	// StreamAppend adds an entry and trims the stream to roughly maxLen entries.
	// A non-positive maxLen disables trimming.
	StreamAppend(ctx context.Context, stream string, maxLen int64, fields map[string]string) (string, error)
}
