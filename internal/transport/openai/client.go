package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultTimeout        = 30 * time.Second
	DefaultProvider       = "openai"
)

// Client calls an OpenAI-compatible API for embeddings and chat completions.
// It implements domain.Embedder, domain.ChatCompleter and domain.HealthChecker.
type Client struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
	dimensions     int
	user           string
	provider       string
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey            string
	BaseURL           string
	EmbeddingModel    string
	Dimensions        int
	ChatModel         string
	User              string
	Provider          string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables the outbound throttle
	Logger            *zap.Logger
}

// NewClient creates an OpenAI-compatible provider client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	c := &Client{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: openai.EmbeddingModel(orDefault(cfg.EmbeddingModel, DefaultEmbeddingModel)),
		chatModel:      orDefault(cfg.ChatModel, DefaultChatModel),
		dimensions:     cfg.Dimensions,
		user:           cfg.User,
		provider:       orDefault(cfg.Provider, DefaultProvider),
		logger:         cfg.Logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
