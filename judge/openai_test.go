package judge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/steer/judge"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *judge.OpenAIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := judge.NewOpenAIClient(&judge.Config{
		BaseURL: server.URL + "/v1",
		APIKey:  "sk-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestOpenAIClient_Complete(t *testing.T) {
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "gpt-4.1-mini", body.Model)
			if assert.Len(t, body.Messages, 1) {
				assert.Equal(t, "user", body.Messages[0].Role)
				assert.Equal(t, "evaluate this", body.Messages[0].Content)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": " 0.4 "}, "finish_reason": "stop"}]
		}`))
	})

	got, err := client.Complete(context.Background(), "gpt-4.1-mini", "evaluate this")
	require.NoError(t, err)
	assert.Equal(t, " 0.4 ", got)
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "m", "hi")
	assert.ErrorIs(t, err, judge.ErrEmptyResponse)
}

func TestOpenAIClient_Complete_HTTPError(t *testing.T) {
	client := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	_, err := client.Complete(context.Background(), "m", "hi")
	assert.Error(t, err)
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	t.Setenv("STEER_TEST_JUDGE_KEY", "")
	_, err := judge.NewOpenAIClient(&judge.Config{APIKeyEnv: "STEER_TEST_JUDGE_KEY"})
	assert.Error(t, err)
}

func TestConfig_Merge(t *testing.T) {
	cfg := judge.DefaultConfig()
	cfg.Merge(&judge.Config{Model: "gpt-4o", TimeoutSeconds: 5})

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
	assert.Equal(t, "OPENAI_API_KEY", cfg.APIKeyEnv)

	cfg.Merge(&judge.Config{})
	assert.Equal(t, "gpt-4o", cfg.Model, "zero values preserve existing settings")
}
