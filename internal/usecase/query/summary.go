package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Summary outcomes.
const (
	summaryGenerated = "generated"
	summarySkipped   = "skipped"
	summaryFailed    = "failed"
)

// SummaryGenerator writes a short grounded overview of search results.
// It never fails: every problem degrades to "no summary".
type SummaryGenerator struct {
	completer ChatCompleter
	hooks     *Hooks
	logger    *zap.Logger
}

// NewSummaryGenerator creates a generator. A nil completer disables summaries.
func NewSummaryGenerator(completer ChatCompleter, hooks *Hooks, logger *zap.Logger) *SummaryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryGenerator{completer: completer, hooks: hooks, logger: logger}
}

// Generate returns the summary text, or nil when disabled, when there is nothing
// to summarize, or when the completion failed.
func (g *SummaryGenerator) Generate(
	ctx context.Context, query string,
	formatted []result.Result, matches []match.Match, cfg SummaryConfig,
) *string {
	if !cfg.Enabled || len(formatted) == 0 || g.completer == nil {
		metrics.SummaryTotal.WithLabelValues(summarySkipped).Inc()
		return nil
	}

	grounding, _ := BuildContext(matches, cfg.MaxChunks)
	if grounding == "" {
		metrics.SummaryTotal.WithLabelValues(summarySkipped).Inc()
		return nil
	}
	grounding = g.hooks.context(grounding, query)

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = domain.DefaultSearchSystemPrompt
	}
	prompt = g.hooks.systemPrompt(prompt, query)

	text, err := g.completer.Complete(ctx, domain.ChatRequest{
		Question:     query,
		Context:      grounding,
		SystemPrompt: prompt,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		metrics.SummaryTotal.WithLabelValues(summaryFailed).Inc()
		g.logger.Warn("Summary generation failed", zap.Error(err))
		return nil
	}
	domain.UsageFromContext(ctx).MarkCompleted()

	metrics.SummaryTotal.WithLabelValues(summaryGenerated).Inc()
	return &text
}
