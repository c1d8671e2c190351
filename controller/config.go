package controller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/steer/judge"
	"github.com/tailored-agentic-units/steer/steering"
	"github.com/tailored-agentic-units/steer/telemetry"
)

const (
	DefaultModel         = "meta-llama/Meta-Llama-3.1-8B-Instruct"
	DefaultMaxIterations = 10
	DefaultMaxTokens     = 100
	DefaultOutputDir     = "conversations"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds initialization parameters for every controller subsystem and
// the defaults applied to each Request. A nil InitialSteering starts runs at 0;
// a pointer lets a file set an explicit 0 that still overrides a merged value.
type Config struct {
	Steering        steering.Config         `json:"steering" yaml:"steering"`
	Judge           judge.Config            `json:"judge" yaml:"judge"`
	Judges          map[string]judge.Config `json:"judges,omitempty" yaml:"judges,omitempty" validate:"dive"`
	Model           string                  `json:"model,omitempty" yaml:"model,omitempty" validate:"required"`
	MaxIterations   int                     `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" validate:"gte=1"`
	InitialSteering *float64                `json:"initial_steering,omitempty" yaml:"initial_steering,omitempty"`
	MaxTokens       int                     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=1"`
	OutputDir       string                  `json:"output_dir,omitempty" yaml:"output_dir,omitempty" validate:"required"`
	Observers       []string                `json:"observers,omitempty" yaml:"observers,omitempty"`
	Telemetry       telemetry.Config        `json:"telemetry" yaml:"telemetry"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Steering:      steering.DefaultConfig(),
		Judge:         judge.DefaultConfig(),
		Model:         DefaultModel,
		MaxIterations: DefaultMaxIterations,
		MaxTokens:     DefaultMaxTokens,
		OutputDir:     DefaultOutputDir,
		Observers:     []string{"slog"},
		Telemetry:     telemetry.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Steering.Merge(&source.Steering)
	c.Judge.Merge(&source.Judge)
	c.Telemetry.Merge(&source.Telemetry)

	if source.Model != "" {
		c.Model = source.Model
	}
	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}
	if source.InitialSteering != nil {
		v := *source.InitialSteering
		c.InitialSteering = &v
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.OutputDir != "" {
		c.OutputDir = source.OutputDir
	}
	if len(source.Observers) > 0 {
		c.Observers = source.Observers
	}
	if len(source.Judges) > 0 {
		c.Judges = source.Judges
	}
}

// Validate checks struct constraints on c and its subsystem sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads a JSON or YAML config file, chosen by extension, merges it
// with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
