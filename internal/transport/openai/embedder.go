package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := c.wait(ctx); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           c.user,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		c.observeError(metrics.OpEmbed, "api_error")
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}

	if len(resp.Data) == 0 {
		c.observeError(metrics.OpEmbed, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	c.observeSuccess(metrics.OpEmbed, duration)

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues(c.provider, metrics.OpEmbed, "prompt").Add(float64(promptTokens))
		metrics.ProviderTokensTotal.WithLabelValues(c.provider, metrics.OpEmbed, "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

func (c *Client) observeSuccess(op string, d time.Duration) {
	metrics.ProviderRequestsTotal.WithLabelValues(c.provider, op, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(c.provider, op).Observe(d.Seconds())
}

func (c *Client) observeError(op, errType string) {
	metrics.ProviderRequestsTotal.WithLabelValues(c.provider, op, "error").Inc()
	metrics.ProviderErrorsTotal.WithLabelValues(c.provider, op, errType).Inc()
}
