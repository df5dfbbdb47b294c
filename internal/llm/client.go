// Package llm is the thin client for the external completion runtime. The
// core only forwards prompt payloads and passes model output through.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"reactor/backend/internal/prompt"
)

// ErrUnavailable wraps transport failures against the LLM runtime so callers
// can map them to a service-unavailable response.
var ErrUnavailable = errors.New("llm runtime unavailable")

type ModelInfo struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Client is the completion collaborator. Implementations never interpret the
// payload beyond sending it.
type Client interface {
	Complete(ctx context.Context, payload prompt.Payload) (string, error)
	Models(ctx context.Context) ([]ModelInfo, error)
}

// OpenAIClient talks to any OpenAI-compatible chat endpoint, including
// Ollama's /v1 API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, payload prompt.Payload) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: payload.System},
			{Role: openai.ChatMessageRoleUser, Content: payload.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Models(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	models := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, ModelInfo{ID: m.ID, Created: m.CreatedAt, OwnedBy: m.OwnedBy})
	}
	return models, nil
}
