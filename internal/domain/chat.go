package domain

import "context"

// ChatCompleter produces a grounded answer for a question.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is a single completion call: one system prompt, one grounding context, one question.
type ChatRequest struct {
	Question     string
	Context      string
	SystemPrompt string
	Temperature  float64
}
