package relevance

import (
	"slices"
	"strings"

	domrel "github.com/kailas-cloud/ragsearch/internal/domain/relevance"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/match"
)

// Factor names one boosting contribution.
type Factor string

const (
	FactorURLSlug       Factor = "url_slug"
	FactorTitleExact    Factor = "title_exact"
	FactorTitleAllWords Factor = "title_all_words"
	FactorPostType      Factor = "post_type"
	FactorCustomRule    Factor = "custom_rule"
)

// FactorHook may replace a single contribution before it is summed.
// rule is the custom rule name for FactorCustomRule and empty otherwise.
type FactorHook func(f Factor, rule string, value float64, m *match.Match, query string) float64

// ScoreHook may replace the final score of one match. The result is clamped again.
type ScoreHook func(final float64, b match.BoostBreakdown, m *match.Match, query string) float64

// BoostMiddleware wraps the boosting step. Call next to continue the chain.
type BoostMiddleware func(matches []match.Match, query string, next func([]match.Match) []match.Match) []match.Match

// Booster re-ranks vector matches with lexical relevance signals.
type Booster struct {
	middleware []BoostMiddleware
	factorHook FactorHook
	scoreHook  ScoreHook
}

// Option configures a Booster.
type Option func(*Booster)

// WithMiddleware appends middleware; the first registered runs outermost.
func WithMiddleware(mw ...BoostMiddleware) Option {
	return func(b *Booster) { b.middleware = append(b.middleware, mw...) }
}

// WithFactorHook installs a per-factor hook.
func WithFactorHook(h FactorHook) Option {
	return func(b *Booster) { b.factorHook = h }
}

// WithScoreHook installs a final score hook.
func WithScoreHook(h ScoreHook) Option {
	return func(b *Booster) { b.scoreHook = h }
}

// NewBooster creates a Booster.
func NewBooster(opts ...Option) *Booster {
	b := &Booster{}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Boost returns a new slice sorted by final score, highest first.
// Equal scores keep their input order. A disabled config returns the input untouched.
func (b *Booster) Boost(matches []match.Match, query string, cfg domrel.Config) []match.Match {
	if !cfg.Enabled {
		return matches
	}

	core := func(in []match.Match) []match.Match {
		return b.score(in, query, cfg)
	}

	next := core
	for i := len(b.middleware) - 1; i >= 0; i-- {
		mw, inner := b.middleware[i], next
		next = func(in []match.Match) []match.Match {
			return mw(in, query, inner)
		}
	}

	return next(matches)
}

func (b *Booster) score(in []match.Match, query string, cfg domrel.Config) []match.Match {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(queryLower)

	out := make([]match.Match, len(in))
	for i := range in {
		m := in[i].Clone()
		base := m.OriginalScore()
		total := b.boostFor(&m, queryLower, words, query, cfg)

		final := clamp(base + total)
		breakdown := match.BoostBreakdown{OriginalScore: base, BoostTotal: total, FinalScore: final}
		if b.scoreHook != nil {
			final = clamp(b.scoreHook(final, breakdown, &m, query))
			breakdown.FinalScore = final
		}

		m.Score = final
		m.Boost = &breakdown
		out[i] = m
	}

	slices.SortStableFunc(out, func(a, c match.Match) int {
		switch {
		case a.Score > c.Score:
			return -1
		case a.Score < c.Score:
			return 1
		}
		return 0
	})
	return out
}

func (b *Booster) boostFor(m *match.Match, queryLower string, words []string, query string, cfg domrel.Config) float64 {
	url := strings.ToLower(m.Metadata.URL)
	title := strings.ToLower(m.Metadata.Title)

	var total float64

	if cfg.URLSlugMatch.Enabled {
		total += b.hook(FactorURLSlug, "", urlBoost(url, words, cfg.URLSlugMatch), m, query)
	}

	if cfg.TitleExactMatch.Enabled && title == queryLower && hasLongWord(words, cfg.TitleAllWords.MinWordLength) {
		total += b.hook(FactorTitleExact, "", cfg.TitleExactMatch.Boost, m, query)
	}

	if cfg.TitleAllWords.Enabled {
		total += b.hook(FactorTitleAllWords, "", titleWordsBoost(title, words, cfg.TitleAllWords), m, query)
	}

	if v := cfg.PostTypeBoosts[m.Metadata.PostType]; v != 0 {
		total += b.hook(FactorPostType, "", v, m, query)
	}

	for _, rule := range cfg.CustomRules {
		total += b.hook(FactorCustomRule, rule.Name, customRuleBoost(rule, url), m, query)
	}

	return total
}

func (b *Booster) hook(f Factor, rule string, v float64, m *match.Match, query string) float64 {
	if b.factorHook == nil {
		return v
	}
	return b.factorHook(f, rule, v, m, query)
}

// urlBoost adds the boost once per query word that appears as a full path segment.
func urlBoost(url string, words []string, cfg domrel.WordMatch) float64 {
	var boost float64
	for _, w := range words {
		if len(w) > cfg.MinWordLength && strings.Contains(url, "/"+w+"/") {
			boost += cfg.Boost
		}
	}
	return boost
}

// titleWordsBoost is all-or-nothing over the qualifying query words.
// A query without qualifying words earns nothing.
func titleWordsBoost(title string, words []string, cfg domrel.WordMatch) float64 {
	qualifying := 0
	for _, w := range words {
		if len(w) <= cfg.MinWordLength {
			continue
		}
		if !strings.Contains(title, w) {
			return 0
		}
		qualifying++
	}
	if qualifying == 0 {
		return 0
	}
	return cfg.Boost
}

// hasLongWord reports whether any word is longer than minLen.
func hasLongWord(words []string, minLen int) bool {
	for _, w := range words {
		if len(w) > minLen {
			return true
		}
	}
	return false
}

func customRuleBoost(rule domrel.CustomRule, url string) float64 {
	if rule.Match == "" || rule.Boost == 0 {
		return 0
	}
	if strings.Contains(url, strings.ToLower(rule.Match)) {
		return rule.Boost
	}
	return 0
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
