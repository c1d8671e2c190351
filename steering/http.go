package steering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/steer/core/protocol"
	"github.com/tailored-agentic-units/steer/core/response"
)

// HTTPBackend talks to a steerable inference API over JSON/HTTP.
type HTTPBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// HTTPOption configures an HTTPBackend.
type HTTPOption func(*HTTPBackend)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) { b.httpClient = c }
}

// NewHTTPBackend creates an HTTPBackend from configuration. The API key is
// resolved once here.
func NewHTTPBackend(cfg *Config, opts ...HTTPOption) (*HTTPBackend, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	b := &HTTPBackend{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type searchResponse struct {
	Features []Feature `json:"features"`
}

type controller struct {
	Edits []Edit `json:"edits"`
}

type chatRequest struct {
	Model               string             `json:"model"`
	Messages            []protocol.Message `json:"messages"`
	MaxCompletionTokens int                `json:"max_completion_tokens,omitempty"`
	Stream              bool               `json:"stream"`
	Controller          *controller        `json:"controller,omitempty"`
}

func (b *HTTPBackend) SearchFeatures(ctx context.Context, query, model string, topK int) ([]Feature, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("model", model)
	if topK > 0 {
		params.Set("top_k", strconv.Itoa(topK))
	}

	req, err := b.newRequest(ctx, http.MethodGet, "/features/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, err := b.do(req)
	if err != nil {
		return nil, fmt.Errorf("feature search failed: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse feature search response: %w", err)
	}

	if topK > 0 && len(resp.Features) > topK {
		resp.Features = resp.Features[:topK]
	}
	return resp.Features, nil
}

func (b *HTTPBackend) Generate(ctx context.Context, variant *Variant, messages []protocol.Message, maxTokens int) (string, error) {
	payload := chatRequest{
		Model:               variant.Model(),
		Messages:            messages,
		MaxCompletionTokens: maxTokens,
	}
	if edits := variant.Edits(); len(edits) > 0 {
		payload.Controller = &controller{Edits: edits}
	}

	req, err := b.newRequest(ctx, http.MethodPost, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	body, err := b.do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	resp, err := response.ParseChat(body)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Content(), nil
}

// Close releases idle connections held by the HTTP client.
func (b *HTTPBackend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

func (b *HTTPBackend) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (b *HTTPBackend) do(req *http.Request) ([]byte, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
