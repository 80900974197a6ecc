package domain

import "context"

type usageKey struct{}

// Usage collects provider usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the pipeline;
// the pipeline writes after each provider step; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens int
	Embedded        bool // true if the embedding step ran, even on a cache hit with 0 tokens
	Completed       bool // true if a chat completion was requested
}

// NewContextWithUsage returns a context with a usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Embedded = true
	}
}

// MarkCompleted records that a chat completion was requested.
func (u *Usage) MarkCompleted() {
	if u != nil {
		u.Completed = true
	}
}
