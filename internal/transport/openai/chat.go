package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// Complete implements domain.ChatCompleter.
// Messages: system prompt, grounding context as a second system message, then the question.
func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrChatProviderError, err)
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = domain.DefaultChatSystemPrompt
	}

	creq := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleSystem, Content: "Context: " + req.Context},
			{Role: openai.ChatMessageRoleUser, Content: req.Question},
		},
		Temperature: float32(req.Temperature),
		User:        c.user,
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, creq)

	duration := time.Since(start)

	if err != nil {
		c.observeError(metrics.OpComplete, "api_error")
		return "", parseAPIError("chat", err, domain.ErrChatProviderError)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.observeError(metrics.OpComplete, "empty_response")
		return "", fmt.Errorf("no answer returned: %w", domain.ErrChatProviderError)
	}

	c.observeSuccess(metrics.OpComplete, duration)
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues(c.provider, metrics.OpComplete, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues(c.provider, metrics.OpComplete, "completion").
			Add(float64(resp.Usage.CompletionTokens))
		metrics.ProviderTokensTotal.WithLabelValues(c.provider, metrics.OpComplete, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	c.logger.Debug("Chat completion finished",
		zap.String("model", c.chatModel),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return resp.Choices[0].Message.Content, nil
}
