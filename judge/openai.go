package judge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is a Completer backed by an OpenAI-compatible chat API.
type OpenAIClient struct {
	client     *openai.Client
	httpClient *http.Client
}

// NewOpenAIClient creates an OpenAIClient from configuration.
func NewOpenAIClient(cfg *Config) (*OpenAIClient, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout()}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	slog.Debug("Initializing judge client", "base_url", clientCfg.BaseURL, "model", cfg.Model)
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
	}, nil
}

// Complete sends message as a single user turn and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, model, message string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	slog.Debug("Received judge response", "model", resp.Model, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
