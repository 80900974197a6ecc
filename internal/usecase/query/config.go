package query

import (
	"fmt"

	domrel "github.com/kailas-cloud/ragsearch/internal/domain/relevance"
)

// Profile selects the response flavour of a pipeline.
type Profile string

const (
	// ProfileSearch returns formatted results with an optional summary.
	ProfileSearch Profile = "search"
	// ProfileChat returns a generated answer with its sources.
	ProfileChat Profile = "chat"
)

// Defaults.
const (
	DefaultSearchTopK       = 10
	DefaultChatTopK         = 5
	DefaultMaxQueryLength   = 1000
	DefaultSearchMinScore   = 0.5
	DefaultSummaryMaxChunks = 5
	// Default sampling temperatures for generated text.
	DefaultSummaryTemperature = 0.3
	DefaultChatTemperature    = 0.2
)

// Config is resolved once per pipeline instance and never mutated.
type Config struct {
	Profile        Profile
	Domain         string
	DefaultTopK    int
	MaxTopK        int
	MaxQueryLength int
	MinScore       float64
	Relevance      domrel.Config
	Summary        SummaryConfig
	Chat           ChatConfig
}

// SummaryConfig controls search summaries.
// Temperature is sent as is; 0 asks for deterministic output.
type SummaryConfig struct {
	Enabled      bool
	SystemPrompt string
	Temperature  float64
	MaxChunks    int
}

// ChatConfig controls chat answers. Temperature is sent as is.
type ChatConfig struct {
	SystemPrompt string
	Temperature  float64
}

// DefaultSearchConfig returns the search profile defaults for a domain.
func DefaultSearchConfig(site string) Config {
	return Config{
		Profile:        ProfileSearch,
		Domain:         site,
		DefaultTopK:    DefaultSearchTopK,
		MaxQueryLength: DefaultMaxQueryLength,
		MinScore:       DefaultSearchMinScore,
		Relevance:      domrel.Default(),
		Summary: SummaryConfig{
			Enabled:     true,
			Temperature: DefaultSummaryTemperature,
			MaxChunks:   DefaultSummaryMaxChunks,
		},
	}
}

// DefaultChatConfig returns the chat profile defaults for a domain.
// Chat keeps the raw similarity order: no score floor and no boosting.
func DefaultChatConfig(site string) Config {
	return Config{
		Profile:        ProfileChat,
		Domain:         site,
		DefaultTopK:    DefaultChatTopK,
		MaxQueryLength: DefaultMaxQueryLength,
		Relevance:      domrel.Disabled(),
		Chat:           ChatConfig{Temperature: DefaultChatTemperature},
	}
}

// Validate checks the profile and numeric bounds. An empty domain is allowed
// and reported per request as not configured.
func (c Config) Validate() error {
	switch c.Profile {
	case ProfileSearch, ProfileChat:
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("default top_k must be > 0")
	}
	if c.MaxTopK < 0 {
		return fmt.Errorf("max top_k must be >= 0")
	}
	if c.MaxQueryLength <= 0 {
		return fmt.Errorf("max query length must be > 0")
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min score must be within [0, 1]")
	}
	if c.Summary.Temperature < 0 || c.Chat.Temperature < 0 {
		return fmt.Errorf("temperature must be >= 0")
	}
	if c.Summary.MaxChunks < 0 {
		return fmt.Errorf("summary max chunks must be >= 0")
	}
	if err := c.Relevance.Validate(); err != nil {
		return fmt.Errorf("relevance: %w", err)
	}
	return nil
}
