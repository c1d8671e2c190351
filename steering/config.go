package steering

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultBaseURL   = "https://api.goodfire.ai/api/inference/v1"
	defaultAPIKeyEnv = "GOODFIRE_API_KEY"
	defaultTopK      = 10
	defaultTimeout   = 60
)

// Config holds generation backend connection parameters.
type Config struct {
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv      string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0"`
	TopK           int    `json:"top_k,omitempty" yaml:"top_k,omitempty" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		APIKeyEnv:      defaultAPIKeyEnv,
		TimeoutSeconds: defaultTimeout,
		TopK:           defaultTopK,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	}
	if source.TopK > 0 {
		c.TopK = source.TopK
	}
}

// Timeout returns the per-request HTTP timeout. Zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey returns APIKey, falling back to the APIKeyEnv variable.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyEnv != "" {
		if key := os.Getenv(c.APIKeyEnv); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("steering backend API key not set (env %s)", c.APIKeyEnv)
}
