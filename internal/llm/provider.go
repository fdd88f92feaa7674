package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed to call a chat model. It mirrors the
// single CreateChatCompletion method used throughout the codebase so that any
// OpenAI-compatible backend, including the local stub, can stand in.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider adapts *openai.Client to the Client interface.
type OpenAIProvider struct {
	Inner *openai.Client
}

// NewOpenAI builds a provider for an OpenAI-compatible endpoint. An empty
// baseURL keeps the library default.
func NewOpenAI(baseURL, apiKey string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}
