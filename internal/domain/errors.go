package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyQuery signals a query that is blank after trimming.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrQueryTooLong signals a query over the configured length limit.
	ErrQueryTooLong = errors.New("query is too long")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNotConfigured signals missing provider credentials or index settings.
	ErrNotConfigured = errors.New("service is not configured")
	// ErrUpstreamFailure signals a failed retrieval step (embedding or vector query).
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrVectorIndexError signals a vector index failure.
	ErrVectorIndexError = errors.New("vector index error")
)

// Stable error codes returned to API clients.
const (
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeNotConfigured     = "not_configured"
	CodeEmptyQuery        = "empty_query"
	CodeQueryTooLong      = "query_too_long"
	CodeUpstreamFailure   = "upstream_failure"
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeInternalError     = "internal_error"
)

// RateLimitError wraps ErrRateLimited with retry guidance.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimited creates a rate limit error.
func NewRateLimited(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}
