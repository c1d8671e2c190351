package judge

import (
	"fmt"
	"os"
	"time"
)

const defaultAPIKeyEnv = "OPENAI_API_KEY"

// Config holds judge model and backend connection parameters.
type Config struct {
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv      string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0"`
}

// DefaultConfig returns the default judge configuration.
func DefaultConfig() Config {
	return Config{
		Model:          DefaultModel,
		APIKeyEnv:      defaultAPIKeyEnv,
		TimeoutSeconds: 60,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
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
	env := c.APIKeyEnv
	if env == "" {
		env = defaultAPIKeyEnv
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("judge API key not set (env %s)", env)
}
