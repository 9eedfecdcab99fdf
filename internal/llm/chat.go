package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient sends prompts to an OpenAI-compatible chat completions endpoint.
// Groq and Gemini both expose one.
type ChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewChatClient returns a client for the endpoint at baseURL.
func NewChatClient(baseURL, apiKey, model string, timeout time.Duration) *ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &ChatClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Model returns the default model name.
func (c *ChatClient) Model() string {
	return c.model
}

// Generate implements Generator with a single user message.
func (c *ChatClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion (%s): status %d: %s", model, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
