package query

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/usecase/relevance"
)

// Request is one inbound query.
type Request struct {
	Query    string
	TopK     int
	ClientID string
}

// Response is the pipeline output. Search fills Summary and Results, chat fills Answer and Sources.
type Response struct {
	Query   string
	Summary *string
	Results []result.Result
	Total   int
	Answer  string
	Sources []result.Source
}

// Pipeline runs a query through retrieval, re-ranking and generation.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	embedder  Embedder
	index     VectorIndex
	completer ChatCompleter
	limiter   RateLimiter
	recorder  EventRecorder
	booster   Booster
	hooks     *Hooks
	summary   *SummaryGenerator
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLimiter enables per-client admission control.
func WithLimiter(l RateLimiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithRecorder enables interaction logging.
func WithRecorder(r EventRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithBooster replaces the default booster.
func WithBooster(b Booster) Option {
	return func(p *Pipeline) { p.booster = b }
}

// WithHooks installs mutation hooks.
func WithHooks(h Hooks) Option {
	return func(p *Pipeline) { p.hooks = &h }
}

// New creates a pipeline. Nil embedder or index make every request fail as not configured.
func New(
	cfg Config, embedder Embedder, index VectorIndex, completer ChatCompleter,
	logger *zap.Logger, opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		index:     index,
		completer: completer,
		booster:   relevance.NewBooster(),
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	p.summary = NewSummaryGenerator(completer, p.hooks, logger)
	return p
}

// Profile returns the pipeline profile.
func (p *Pipeline) Profile() Profile { return p.cfg.Profile }

// Execute runs the pipeline. Only admission, configuration, validation and
// retrieval errors reach the caller; summary and logging degrade silently.
func (p *Pipeline) Execute(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	if p.limiter != nil {
		if err := p.limiter.Check(ctx, req.ClientID); err != nil {
			return Response{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	if !p.configured() {
		return Response{}, domain.ErrNotConfigured
	}

	q, err := p.validate(req.Query)
	if err != nil {
		return Response{}, err
	}
	// Hooked text goes through the same length and emptiness checks.
	if q, err = p.validate(p.hooks.queryText(q)); err != nil {
		return Response{}, err
	}

	topK := p.resolveTopK(req.TopK, q)

	matches, err := p.retrieve(ctx, q, topK)
	if err != nil {
		return Response{}, err
	}
	matches = p.hooks.matches(matches, q)

	minScore := p.hooks.minScore(p.cfg.MinScore, q)
	matches = FilterByScore(matches, minScore)

	relCfg := p.hooks.relevanceConfig(p.cfg.Relevance, q)
	matches = p.booster.Boost(matches, q, relCfg)

	var resp Response
	if p.cfg.Profile == ProfileChat {
		resp, err = p.answer(ctx, q, matches)
		if err != nil {
			return Response{}, err
		}
	} else {
		resp = p.search(ctx, q, matches)
	}

	elapsed := time.Since(start)
	metrics.QueryResultsCount.WithLabelValues(string(p.cfg.Profile)).Observe(float64(resp.Total))
	p.record(q, req.ClientID, resp, elapsed)

	p.logger.Debug("Query completed",
		zap.String("profile", string(p.cfg.Profile)),
		zap.String("query", q),
		zap.Int("top_k", topK),
		zap.Int("matches", len(matches)),
		zap.Int("total", resp.Total),
		zap.Bool("summary", resp.Summary != nil),
		zap.Duration("duration", elapsed),
	)

	return resp, nil
}

// readiness is implemented by providers that can report missing credentials.
type readiness interface {
	Configured() bool
}

func (p *Pipeline) configured() bool {
	if p.embedder == nil || p.index == nil || p.cfg.Domain == "" {
		return false
	}
	for _, dep := range []any{p.embedder, p.index} {
		if r, ok := dep.(readiness); ok && !r.Configured() {
			return false
		}
	}
	return p.cfg.Profile != ProfileChat || p.completer != nil
}

func (p *Pipeline) validate(raw string) (string, error) {
	limit := p.cfg.MaxQueryLength
	if limit <= 0 {
		limit = DefaultMaxQueryLength
	}
	if utf8.RuneCountInString(raw) > limit {
		return "", fmt.Errorf("%w: limit is %d characters", domain.ErrQueryTooLong, limit)
	}
	q := strings.TrimSpace(raw)
	if q == "" {
		return "", domain.ErrEmptyQuery
	}
	return q, nil
}

func (p *Pipeline) resolveTopK(requested int, q string) int {
	topK := requested
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}
	topK = p.hooks.topK(topK, q)
	if topK <= 0 {
		topK = DefaultSearchTopK
	}
	if p.cfg.MaxTopK > 0 && topK > p.cfg.MaxTopK {
		topK = p.cfg.MaxTopK
	}
	return topK
}

// retrieve embeds the query and runs the tenant-scoped vector query.
func (p *Pipeline) retrieve(ctx context.Context, q string, topK int) ([]match.Match, error) {
	emb, err := p.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrUpstreamFailure, err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	scope, err := filter.Equals(domain.DomainField, p.cfg.Domain)
	if err != nil {
		return nil, fmt.Errorf("domain filter: %w", err)
	}

	matches, err := p.index.Query(ctx, emb.Embedding, topK, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %w", domain.ErrUpstreamFailure, err)
	}
	return matches, nil
}

func (p *Pipeline) search(ctx context.Context, q string, matches []match.Match) Response {
	results := format(matches, p.hooks)
	results = p.hooks.results(results, q, matches)

	cfg := p.cfg.Summary
	cfg.Enabled = p.hooks.summaryEnabled(cfg.Enabled, q)
	summary := p.summary.Generate(ctx, q, results, matches, cfg)

	return Response{
		Query:   q,
		Summary: summary,
		Results: results,
		Total:   len(results),
	}
}

func (p *Pipeline) answer(ctx context.Context, q string, matches []match.Match) (Response, error) {
	grounding := p.hooks.context(BuildChatContext(matches), q)

	prompt := p.cfg.Chat.SystemPrompt
	if prompt == "" {
		prompt = domain.DefaultChatSystemPrompt
	}
	prompt = p.hooks.systemPrompt(prompt, q)

	text, err := p.completer.Complete(ctx, domain.ChatRequest{
		Question:     q,
		Context:      grounding,
		SystemPrompt: prompt,
		Temperature:  p.cfg.Chat.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: chat completion: %w", domain.ErrUpstreamFailure, err)
	}
	domain.UsageFromContext(ctx).MarkCompleted()

	sources := p.hooks.sources(Sources(matches), q)
	return Response{
		Query:   q,
		Answer:  p.hooks.answer(text, q),
		Sources: sources,
		Total:   len(sources),
	}, nil
}

func (p *Pipeline) record(q, client string, resp Response, elapsed time.Duration) {
	if p.recorder == nil {
		return
	}
	fields := map[string]any{
		"query":        q,
		"client":       client,
		"domain":       p.cfg.Domain,
		"result_count": resp.Total,
		"response_ms":  elapsed.Milliseconds(),
	}
	if p.cfg.Profile == ProfileChat {
		fields["answer_len"] = utf8.RuneCountInString(resp.Answer)
	} else {
		ids := make([]int64, 0, len(resp.Results))
		for _, r := range resp.Results {
			ids = append(ids, r.PostID)
		}
		fields["post_ids"] = ids
		fields["summary"] = resp.Summary != nil
	}
	p.recorder.Record(string(p.cfg.Profile), fields)
}

// FilterByScore drops matches below minScore. A threshold of zero or less keeps everything.
func FilterByScore(matches []match.Match, minScore float64) []match.Match {
	if minScore <= 0 {
		return matches
	}
	out := make([]match.Match, 0, len(matches))
	for i := range matches {
		if matches[i].Score >= minScore {
			out = append(out, matches[i])
		}
	}
	return out
}
