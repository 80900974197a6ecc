package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Defaults.
const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// Limiter admits at most limit requests per client per fixed window.
// Windows reset on expiry, so bursts across a boundary may briefly reach twice the limit.
type Limiter struct {
	store   Store
	profile string
	limit   int64
	window  time.Duration
	logger  *zap.Logger
}

// NewLimiter creates a limiter for one profile. Non-positive values fall back to defaults.
func NewLimiter(store Store, profile string, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:   store,
		profile: profile,
		limit:   int64(limit),
		window:  window,
		logger:  logger,
	}
}

// Allow counts the request against the client's window.
// Store failures admit the request: rate limiting is abuse mitigation, not a hard dependency.
func (l *Limiter) Allow(ctx context.Context, clientID string) Decision {
	count, ttl, err := l.store.IncrementWithTTL(ctx, l.key(clientID), l.window)
	if err != nil {
		l.logger.Warn("Rate limit store unavailable, allowing request",
			zap.String("profile", l.profile),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: l.limit}
	}

	d := Decision{Allowed: count <= l.limit, Count: count, Limit: l.limit}
	if !d.Allowed {
		d.RetryAfter = ttl
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.window
		}
	}
	return d
}

// Check returns a *domain.RateLimitError when the client is over its limit.
func (l *Limiter) Check(ctx context.Context, clientID string) error {
	d := l.Allow(ctx, clientID)
	if d.Allowed {
		return nil
	}
	metrics.RateLimitedTotal.WithLabelValues(l.profile).Inc()
	l.logger.Info("Rate limit exceeded",
		zap.String("profile", l.profile),
		zap.Int64("count", d.Count),
		zap.Int64("limit", d.Limit),
	)
	return domain.NewRateLimited(d.RetryAfter)
}

// key hashes the identity so raw IPs never land in the store.
func (l *Limiter) key(clientID string) string {
	sum := sha256.Sum256([]byte(clientID))
	return domain.KeyPrefix + "ratelimit:" + l.profile + ":" + hex.EncodeToString(sum[:])
}
