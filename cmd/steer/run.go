package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/steer/controller"
	"github.com/tailored-agentic-units/steer/observability"
	"github.com/tailored-agentic-units/steer/telemetry"
)

type runOptions struct {
	specification string
	prompt        string
	judge         string
	verbose       bool
	metricsFile   string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one steering session",
		Long: `Search for a feature matching the specification, then generate, judge, and
adjust the steering value until the judge answers "stop", answers with
something that is not a number, or the iteration budget is spent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.specification, "specification", "s", "", "target behavior the judge checks for (required)")
	f.StringVarP(&opts.prompt, "prompt", "p", "", "prompt sent to the generation model (required)")
	f.StringVar(&opts.judge, "judge", "", "named judge profile from config")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging to stderr")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	f.String("model", controller.DefaultModel, "generation model")
	f.Int("max-iterations", controller.DefaultMaxIterations, "maximum steering iterations")
	f.Float64("initial-steering", 0, "starting steering value, clamped to [-2, 2]")
	f.Int("max-tokens", controller.DefaultMaxTokens, "completion token cap per generation")
	f.String("trace-exporter", "", "trace exporter: none, stdout, or otlp (overrides config)")
	f.StringSlice("observers", nil, "event observers: slog, metrics, trace, noop (overrides config)")

	_ = cmd.MarkFlagRequired("specification")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// loadConfig resolves the controller config from --config and applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*controller.Config, error) {
	var cfg *controller.Config
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		loaded, err := controller.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		defaults := controller.DefaultConfig()
		cfg = &defaults
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("initial-steering") {
		initial, _ := flags.GetFloat64("initial-steering")
		cfg.InitialSteering = &initial
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens, _ = flags.GetInt("max-tokens")
	}
	if flags.Changed("trace-exporter") {
		cfg.Telemetry.Exporter, _ = flags.GetString("trace-exporter")
	}
	if flags.Changed("observers") {
		cfg.Observers, _ = flags.GetStringSlice("observers")
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// observerNames adds the observers implied by other flags to the configured
// list.
func observerNames(cfg *controller.Config, metrics bool) []string {
	names := slices.Clone(cfg.Observers)
	if metrics && !slices.Contains(names, "metrics") {
		names = append(names, "metrics")
	}
	exporter := cfg.Telemetry.Exporter
	if exporter != "" && exporter != telemetry.ExporterNone && !slices.Contains(names, "trace") {
		names = append(names, "trace")
	}
	return names
}

func runSession(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	observer, err := observability.Build(observerNames(cfg, opts.metricsFile != ""), observability.Deps{
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		return fmt.Errorf("failed to build observers: %w", err)
	}

	c, err := controller.New(cfg, controller.WithObserver(observer))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer c.Close()

	result, err := c.Run(ctx, controller.Request{
		Specification: opts.specification,
		Prompt:        opts.prompt,
		Judge:         opts.judge,
	})
	if err != nil {
		return fmt.Errorf("steering run failed: %w", err)
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session saved to: %s\n", result.Path)
	fmt.Fprintf(out, "Completed with %d iterations\n", result.Info.TotalIterations)
	fmt.Fprintf(out, "Final steering: %.2f\n", result.Info.FinalSteering)
	fmt.Fprintf(out, "Stop reason: %s\n", result.Info.StopReason)
	return nil
}
