package query

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	domrel "github.com/kailas-cloud/ragsearch/internal/domain/relevance"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex returns the nearest matches for a vector within the given filter.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filters filter.Expression) ([]match.Match, error)
}

// ChatCompleter generates text grounded on a context.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.ChatRequest) (string, error)
}

// RateLimiter admits or rejects a client. A rejection is a *domain.RateLimitError.
type RateLimiter interface {
	Check(ctx context.Context, clientID string) error
}

// EventRecorder stores an interaction event. Must not block the caller.
type EventRecorder interface {
	Record(event string, fields map[string]any)
}

// Booster re-ranks matches.
type Booster interface {
	Boost(matches []match.Match, query string, cfg domrel.Config) []match.Match
}
