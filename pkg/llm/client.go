// Package llm provides chat-completion clients for the cleaning model
// boundary: a plain HTTP client for local OpenAI-compatible servers
// (llama.cpp, Ollama) and an Anthropic API backend.
package llm

import (
	"context"

	"github.com/rotisserie/eris"
)

// Client performs a single-turn chat completion against a model backend.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ChatCompletionRequest is a provider-neutral completion request.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// ChatCompletionResponse is a provider-neutral completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Text returns the first choice's message content, or "" for an empty reply.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// New creates a Client for the named provider. Options configure the
// OpenAI-compatible backend only; passing them with any other provider is an
// error, since they would be silently ignored.
func New(provider, apiKey string, opts ...Option) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, opts...), nil
	case ProviderAnthropic:
		if len(opts) > 0 {
			return nil, eris.Errorf("llm: provider %q does not take client options", provider)
		}
		return NewAnthropicClient(apiKey), nil
	}
	return nil, eris.Errorf("llm: unknown provider %q", provider)
}
