package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	domrel "github.com/kailas-cloud/ragsearch/internal/domain/relevance"
	"github.com/kailas-cloud/ragsearch/internal/usecase/query"
)

// Config holds the ragsearch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Site        SiteConfig        `yaml:"site"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Search      SearchConfig      `yaml:"search"`
	Chat        ChatConfig        `yaml:"chat"`
	Cache       CacheConfig       `yaml:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	QueryLog    QueryLogConfig    `yaml:"query_log"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	MaskPII *bool  `yaml:"mask_pii"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SiteConfig identifies the tenant whose content is searched.
type SiteConfig struct {
	Domain string `yaml:"domain"`
}

// OpenAIConfig holds embedding and chat provider settings.
type OpenAIConfig struct {
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`
	ChatModel           string  `yaml:"chat_model"`
	ChatTemperature     *float64 `yaml:"chat_temperature"`
	TimeoutSec          int     `yaml:"timeout_sec"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
}

// VectorIndexConfig selects and configures the similarity index backend.
type VectorIndexConfig struct {
	Driver            string  `yaml:"driver"` // redis (default) or pinecone
	IndexName         string  `yaml:"index_name"`
	KeyPrefix         string  `yaml:"key_prefix"`
	HNSWM             int     `yaml:"hnsw_m"`
	HNSWEFConstruct   int     `yaml:"hnsw_ef_construction"`
	EFRuntime         int     `yaml:"ef_runtime"`
	PineconeHost      string  `yaml:"pinecone_host"`
	PineconeAPIKey    string  `yaml:"pinecone_api_key"`
	PineconeNamespace string  `yaml:"pinecone_namespace"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// SearchConfig holds the search profile settings.
type SearchConfig struct {
	TopK           int             `yaml:"top_k"`
	MaxTopK        int             `yaml:"max_top_k"`
	MinScore       *float64        `yaml:"min_score"`
	MaxQueryLength int             `yaml:"max_query_length"`
	Summary        SummaryConfig   `yaml:"summary"`
	Relevance      RelevanceConfig `yaml:"relevance"`
}

// SummaryConfig controls AI summaries of search results.
type SummaryConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxChunks    int      `yaml:"max_chunks"`
}

// RelevanceConfig maps onto relevance.Config. Nil pointers keep the defaults.
type RelevanceConfig struct {
	Enabled         *bool              `yaml:"enabled"`
	URLSlugMatch    *WordMatchConfig   `yaml:"url_slug_match"`
	TitleExactMatch *FactorConfig      `yaml:"title_exact_match"`
	TitleAllWords   *WordMatchConfig   `yaml:"title_all_words"`
	PostTypeBoosts  map[string]float64 `yaml:"post_type_boosts"`
	CustomRules     []CustomRuleConfig `yaml:"custom_rules"`
}

// FactorConfig is an all-or-nothing boost.
type FactorConfig struct {
	Enabled bool    `yaml:"enabled"`
	Boost   float64 `yaml:"boost"`
}

// WordMatchConfig is a word-driven boost.
type WordMatchConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Boost         float64 `yaml:"boost"`
	MinWordLength int     `yaml:"min_word_length"`
}

// CustomRuleConfig boosts results whose URL contains Match.
type CustomRuleConfig struct {
	Name  string  `yaml:"name"`
	Match string  `yaml:"match"`
	Boost float64 `yaml:"boost"`
}

// ChatConfig holds the chat profile settings.
type ChatConfig struct {
	Enabled      *bool   `yaml:"enabled"`
	TopK         int     `yaml:"top_k"`
	MaxTopK      int     `yaml:"max_top_k"`
	MinScore     float64 `yaml:"min_score"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	WarmTTL   int    `yaml:"warm_ttl_sec"` // embeddings
	HotTTL    int    `yaml:"hot_ttl_sec"`  // vector query results
	KeyPrefix string `yaml:"key_prefix"`
}

// RateLimitConfig holds per-client request limits per window.
type RateLimitConfig struct {
	Enabled        *bool    `yaml:"enabled"`
	Limit          int      `yaml:"limit"`
	WindowSec      int      `yaml:"window_sec"`
	ChatLimit      int      `yaml:"chat_limit"` // 0 inherits limit
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// QueryLogConfig holds query stream settings.
type QueryLogConfig struct {
	Enabled    bool `yaml:"enabled"`
	Buffer     int  `yaml:"buffer"`
	MaxEntries int  `yaml:"max_entries"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		c.OpenAI.EmbeddingDimensions = 1536
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.ChatTemperature == nil {
		c.OpenAI.ChatTemperature = ptr(0.2)
	}
	if c.OpenAI.TimeoutSec <= 0 {
		c.OpenAI.TimeoutSec = 30
	}
	if c.VectorIndex.Driver == "" {
		c.VectorIndex.Driver = "redis"
	}
	if c.VectorIndex.TimeoutSec <= 0 {
		c.VectorIndex.TimeoutSec = 20
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 10
	}
	if c.Search.MinScore == nil {
		c.Search.MinScore = ptr(0.5)
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 1000
	}
	if c.Search.Summary.Enabled == nil {
		c.Search.Summary.Enabled = ptr(true)
	}
	if c.Search.Summary.Temperature == nil {
		c.Search.Summary.Temperature = ptr(0.3)
	}
	if c.Search.Summary.MaxChunks <= 0 {
		c.Search.Summary.MaxChunks = 5
	}
	if c.Chat.Enabled == nil {
		c.Chat.Enabled = ptr(true)
	}
	if c.Chat.TopK <= 0 {
		c.Chat.TopK = 5
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = ptr(true)
	}
	if c.Cache.WarmTTL <= 0 {
		c.Cache.WarmTTL = 3600
	}
	if c.Cache.HotTTL <= 0 {
		c.Cache.HotTTL = 900
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = domain.KeyPrefix + "cache:"
	}
	if c.RateLimit.Enabled == nil {
		c.RateLimit.Enabled = ptr(true)
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 10
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.RateLimit.ChatLimit == 0 {
		c.RateLimit.ChatLimit = c.RateLimit.Limit
	}
	if c.QueryLog.Buffer <= 0 {
		c.QueryLog.Buffer = 256
	}
	if c.QueryLog.MaxEntries <= 0 {
		c.QueryLog.MaxEntries = 10000
	}
	if c.Logging.MaskPII == nil {
		c.Logging.MaskPII = ptr(true)
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.VectorIndex.Driver {
	case "redis":
	case "pinecone":
		if c.VectorIndex.PineconeHost == "" {
			return fmt.Errorf("vector_index.pinecone_host is required for the pinecone driver")
		}
	default:
		return fmt.Errorf("vector_index.driver must be \"redis\" or \"pinecone\", got %q", c.VectorIndex.Driver)
	}
	if t := *c.OpenAI.ChatTemperature; t < 0 || t > 2 {
		return fmt.Errorf("openai.chat_temperature must be within [0, 2], got %v", t)
	}
	if t := *c.Search.Summary.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("search.summary.temperature must be within [0, 2], got %v", t)
	}
	if ms := *c.Search.MinScore; ms < 0 || ms > 1 {
		return fmt.Errorf("search.min_score must be within [0, 1], got %v", ms)
	}
	if c.Chat.MinScore < 0 || c.Chat.MinScore > 1 {
		return fmt.Errorf("chat.min_score must be within [0, 1], got %v", c.Chat.MinScore)
	}
	if c.RateLimit.Limit < 0 || c.RateLimit.ChatLimit < 0 {
		return fmt.Errorf("rate_limit limits must be >= 0")
	}
	if err := c.Search.Relevance.Resolve().Validate(); err != nil {
		return fmt.Errorf("search.relevance: %w", err)
	}
	return nil
}

// Resolve merges the overrides onto the stock boosting configuration.
func (r RelevanceConfig) Resolve() domrel.Config {
	out := domrel.Default()
	if r.Enabled != nil {
		out.Enabled = *r.Enabled
	}
	if r.URLSlugMatch != nil {
		out.URLSlugMatch = domrel.WordMatch(*r.URLSlugMatch)
	}
	if r.TitleExactMatch != nil {
		out.TitleExactMatch = domrel.Factor(*r.TitleExactMatch)
	}
	if r.TitleAllWords != nil {
		out.TitleAllWords = domrel.WordMatch(*r.TitleAllWords)
	}
	if r.PostTypeBoosts != nil {
		out.PostTypeBoosts = maps.Clone(r.PostTypeBoosts)
	}
	for _, cr := range r.CustomRules {
		out.CustomRules = append(out.CustomRules, domrel.CustomRule(cr))
	}
	return out
}

// SearchPipeline resolves the search profile.
func (c *Config) SearchPipeline() query.Config {
	qc := query.DefaultSearchConfig(c.Site.Domain)
	qc.DefaultTopK = c.Search.TopK
	qc.MaxTopK = c.Search.MaxTopK
	qc.MaxQueryLength = c.Search.MaxQueryLength
	qc.MinScore = *c.Search.MinScore
	qc.Relevance = c.Search.Relevance.Resolve()
	qc.Summary = query.SummaryConfig{
		Enabled:      *c.Search.Summary.Enabled,
		SystemPrompt: c.Search.Summary.SystemPrompt,
		Temperature:  *c.Search.Summary.Temperature,
		MaxChunks:    c.Search.Summary.MaxChunks,
	}
	return qc
}

// ChatPipeline resolves the chat profile.
func (c *Config) ChatPipeline() query.Config {
	qc := query.DefaultChatConfig(c.Site.Domain)
	qc.DefaultTopK = c.Chat.TopK
	qc.MaxTopK = c.Chat.MaxTopK
	qc.MaxQueryLength = c.Search.MaxQueryLength
	qc.MinScore = c.Chat.MinScore
	qc.Chat = query.ChatConfig{
		SystemPrompt: c.Chat.SystemPrompt,
		Temperature:  *c.OpenAI.ChatTemperature,
	}
	return qc
}

// TrustedProxies merges configured proxies with RAGSEARCH_TRUSTED_PROXIES (comma separated).
func (c *Config) TrustedProxies() []string {
	out := slices.Clone(c.RateLimit.TrustedProxies)
	for _, p := range strings.Split(os.Getenv("RAGSEARCH_TRUSTED_PROXIES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Seconds converts a whole-second setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func ptr[T any](v T) *T { return &v }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
