package query

import (
	domrel "github.com/kailas-cloud/ragsearch/internal/domain/relevance"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

// Hooks are optional mutation points, fixed at construction. Nil fields are skipped.
type Hooks struct {
	QueryText       func(query string) string
	TopK            func(topK int, query string) int
	MinScore        func(minScore float64, query string) float64
	Matches         func(matches []match.Match, query string) []match.Match
	RelevanceConfig func(cfg domrel.Config, query string) domrel.Config
	ResultFormat    func(r result.Result, m match.Match) result.Result
	Results         func(results []result.Result, query string, matches []match.Match) []result.Result
	SummaryEnabled  func(enabled bool, query string) bool
	Context         func(context string, query string) string
	SystemPrompt    func(prompt string, query string) string
	Answer          func(answer string, query string) string
	Sources         func(sources []result.Source, query string) []result.Source
}

func (h *Hooks) queryText(q string) string {
	if h == nil || h.QueryText == nil {
		return q
	}
	return h.QueryText(q)
}

func (h *Hooks) topK(k int, q string) int {
	if h == nil || h.TopK == nil {
		return k
	}
	return h.TopK(k, q)
}

func (h *Hooks) minScore(s float64, q string) float64 {
	if h == nil || h.MinScore == nil {
		return s
	}
	return h.MinScore(s, q)
}

func (h *Hooks) matches(m []match.Match, q string) []match.Match {
	if h == nil || h.Matches == nil {
		return m
	}
	return h.Matches(m, q)
}

func (h *Hooks) relevanceConfig(cfg domrel.Config, q string) domrel.Config {
	if h == nil || h.RelevanceConfig == nil {
		return cfg
	}
	return h.RelevanceConfig(cfg.Clone(), q)
}

func (h *Hooks) resultFormat(r result.Result, m match.Match) result.Result {
	if h == nil || h.ResultFormat == nil {
		return r
	}
	return h.ResultFormat(r, m)
}

func (h *Hooks) results(r []result.Result, q string, m []match.Match) []result.Result {
	if h == nil || h.Results == nil {
		return r
	}
	return h.Results(r, q, m)
}

func (h *Hooks) summaryEnabled(enabled bool, q string) bool {
	if h == nil || h.SummaryEnabled == nil {
		return enabled
	}
	return h.SummaryEnabled(enabled, q)
}

func (h *Hooks) context(c, q string) string {
	if h == nil || h.Context == nil {
		return c
	}
	return h.Context(c, q)
}

func (h *Hooks) systemPrompt(p, q string) string {
	if h == nil || h.SystemPrompt == nil {
		return p
	}
	return h.SystemPrompt(p, q)
}

func (h *Hooks) answer(a, q string) string {
	if h == nil || h.Answer == nil {
		return a
	}
	return h.Answer(a, q)
}

func (h *Hooks) sources(s []result.Source, q string) []result.Source {
	if h == nil || h.Sources == nil {
		return s
	}
	return h.Sources(s, q)
}
