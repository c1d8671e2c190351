// Package telemetry installs the global OpenTelemetry TracerProvider used by
// controller spans and the trace observer.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by Config.Exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config selects the trace exporter and the resource attributes it reports.
type Config struct {
	ServiceName    string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	ServiceVersion string `json:"service_version,omitempty" yaml:"service_version,omitempty"`
	Exporter       string `json:"exporter,omitempty" yaml:"exporter,omitempty" validate:"omitempty,oneof=none stdout otlp"`
	OTLPEndpoint   string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure   bool   `json:"otlp_insecure,omitempty" yaml:"otlp_insecure,omitempty"`

	// Writer receives stdout exporter output. Nil selects os.Stderr.
	Writer io.Writer `json:"-" yaml:"-"`
}

// DefaultConfig returns a config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "steer",
		ServiceVersion: "0.1.0",
		Exporter:       ExporterNone,
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Merge applies non-zero values from source.
func (c *Config) Merge(source *Config) {
	if source.ServiceName != "" {
		c.ServiceName = source.ServiceName
	}
	if source.ServiceVersion != "" {
		c.ServiceVersion = source.ServiceVersion
	}
	if source.Exporter != "" {
		c.Exporter = source.Exporter
	}
	if source.OTLPEndpoint != "" {
		c.OTLPEndpoint = source.OTLPEndpoint
	}
	if source.OTLPInsecure {
		c.OTLPInsecure = true
	}
	if source.Writer != nil {
		c.Writer = source.Writer
	}
}

// Init installs a TracerProvider for cfg.Exporter as the global provider and
// returns a function that flushes and shuts it down. With ExporterNone the
// global provider is left untouched and shutdown is a no-op.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return shutdown, nil
	}

	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	otel.SetTracerProvider(tp)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)

	return shutdown, nil
}

// NewTracerProvider builds a provider for cfg.Exporter without installing it.
func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
