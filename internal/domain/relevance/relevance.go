package relevance

import (
	"fmt"
	"maps"
	"slices"
)

// Config controls score boosting. It is resolved once per query and treated as read-only;
// derive variants with Clone.
type Config struct {
	Enabled         bool
	URLSlugMatch    WordMatch
	TitleExactMatch Factor
	TitleAllWords   WordMatch
	PostTypeBoosts  map[string]float64
	CustomRules     []CustomRule
}

// Factor is a boost that is either applied in full or not at all.
type Factor struct {
	Enabled bool
	Boost   float64
}

// WordMatch is a boost driven by query words longer than MinWordLength bytes.
type WordMatch struct {
	Enabled       bool
	Boost         float64
	MinWordLength int
}

// CustomRule adds Boost when Match is a substring of the lowercased URL.
type CustomRule struct {
	Name  string
	Match string
	Boost float64
}

// Default returns the stock boosting configuration.
func Default() Config {
	return Config{
		Enabled:         true,
		URLSlugMatch:    WordMatch{Enabled: true, Boost: 0.15, MinWordLength: 3},
		TitleExactMatch: Factor{Enabled: true, Boost: 0.12},
		TitleAllWords:   WordMatch{Enabled: true, Boost: 0.08, MinWordLength: 2},
		PostTypeBoosts:  map[string]float64{"page": 0.05},
	}
}

// Disabled returns a configuration that bypasses boosting entirely.
func Disabled() Config {
	return Config{}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.PostTypeBoosts = maps.Clone(c.PostTypeBoosts)
	out.CustomRules = slices.Clone(c.CustomRules)
	return out
}

// Validate rejects negative word lengths and unnamed custom rules.
func (c Config) Validate() error {
	if c.URLSlugMatch.MinWordLength < 0 {
		return fmt.Errorf("url_slug_match.min_word_length must be >= 0")
	}
	if c.TitleAllWords.MinWordLength < 0 {
		return fmt.Errorf("title_all_words.min_word_length must be >= 0")
	}
	seen := make(map[string]struct{}, len(c.CustomRules))
	for i, r := range c.CustomRules {
		if r.Name == "" {
			return fmt.Errorf("custom_rules[%d].name is required", i)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate custom rule %q", r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}
