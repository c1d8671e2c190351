// Package controller implements the closed steering loop: generate with the
// current steering value, ask the judge, classify its answer, adjust, and
// repeat until the judge is satisfied, answers nonsense, or the iteration
// budget runs out.
//
// The controller initializes from configuration via New, creating its
// backends internally. Functional options replace any of them for tests.
//
//	c, err := controller.New(&cfg)
//	defer c.Close()
//	result, err := c.Run(ctx, controller.Request{
//		Specification: "Connecticut",
//		Prompt:        "Which US state should I visit?",
//	})
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/steer/core/protocol"
	"github.com/tailored-agentic-units/steer/judge"
	"github.com/tailored-agentic-units/steer/observability"
	"github.com/tailored-agentic-units/steer/session"
	"github.com/tailored-agentic-units/steer/steering"
	"github.com/tailored-agentic-units/steer/transcript"
)

const tracerName = "github.com/tailored-agentic-units/steer/controller"

// Request describes one steering run. Zero values for Model, MaxIterations,
// and MaxTokens select the controller's configured defaults, as does a nil
// InitialSteering. Judge names a registered judge profile; empty selects the
// default judge.
type Request struct {
	Specification   string `validate:"required"`
	Prompt          string `validate:"required"`
	Model           string `validate:"required"`
	MaxIterations   int    `validate:"gte=1"`
	InitialSteering *float64
	MaxTokens       int `validate:"gte=1"`
	Judge           string
}

// Result holds the outcome of a completed run.
type Result struct {
	SessionID  string
	Info       session.Info
	Iterations []session.IterationRecord
	Path       string // Transcript location.
}

// Option configures a Controller after config-driven initialization.
type Option func(*Controller)

// WithBackend overrides the config-created generation backend.
func WithBackend(b steering.Backend) Option {
	return func(c *Controller) { c.backend = b }
}

// WithJudge overrides the config-created default judge.
func WithJudge(j *judge.Judge) Option {
	return func(c *Controller) { c.judge = j }
}

// WithRegistry overrides the config-created judge registry.
func WithRegistry(r *judge.Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// WithSink overrides the config-created transcript sink.
func WithSink(s transcript.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithTracerProvider overrides the global OpenTelemetry TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Controller) { c.tracer = tp.Tracer(tracerName) }
}

// Controller runs steering sessions against a generation backend and a judge.
type Controller struct {
	backend  steering.Backend
	judge    *judge.Judge
	registry *judge.Registry
	sink     transcript.Sink
	observer observability.Observer
	tracer   trace.Tracer
	closers  []func() error

	model           string
	maxIterations   int
	initialSteering float64
	maxTokens       int
	topK            int
}

// New creates a Controller from configuration. Options are applied first;
// any subsystem they leave unset is created from its config section.
func New(cfg *Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		topK:          cfg.Steering.TopK,
	}
	if cfg.InitialSteering != nil {
		c.initialSteering = *cfg.InitialSteering
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.backend == nil {
		b, err := steering.NewHTTPBackend(&cfg.Steering)
		if err != nil {
			return nil, fmt.Errorf("failed to create steering backend: %w", err)
		}
		c.backend = b
		c.closers = append(c.closers, b.Close)
	}

	if c.judge == nil {
		client, err := judge.NewOpenAIClient(&cfg.Judge)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to create judge: %w", err)
		}
		c.judge = judge.New(client, cfg.Judge.Model)
		c.closers = append(c.closers, client.Close)
	}

	if c.registry == nil {
		c.registry = judge.NewRegistry(nil)
	}
	for name, judgeCfg := range cfg.Judges {
		profile := cfg.Judge
		profile.Merge(&judgeCfg)
		if err := c.registry.Register(name, profile); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to register judge %q: %w", name, err)
		}
	}

	if c.sink == nil {
		c.sink = transcript.NewFileSink(cfg.OutputDir)
	}
	if c.observer == nil {
		c.observer = observability.NewSlogObserver(slog.Default())
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	return c, nil
}

// Registry returns the controller's judge registry.
func (c *Controller) Registry() *judge.Registry {
	return c.registry
}

// Close releases backends created by New and the judge clients cached in the
// registry. Injected backends are left to their owners. Registry profiles
// survive Close and reconnect on their next Get.
func (c *Controller) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if c.registry != nil {
		if err := c.registry.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run executes one steering session. The feature is chosen once from a search
// on the specification; each iteration then generates with the current
// steering value, consults the judge, and applies its decision. On a normal
// exit the sealed session is written through the transcript sink and
// returned. Backend failures and context cancellation abort the run and
// nothing is written.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	req = c.withDefaults(req)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	j, err := c.judgeFor(req.Judge)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "steer.run", trace.WithAttributes(
		attribute.String("steer.model", req.Model),
		attribute.String("steer.judge", j.Model()),
		attribute.Int("steer.max_iterations", req.MaxIterations),
	))
	defer span.End()

	c.emit(ctx, EventRunStart, observability.LevelInfo, map[string]any{
		"specification":    req.Specification,
		"model":            req.Model,
		"supervisor":       j.Model(),
		"max_iterations":   req.MaxIterations,
		"initial_steering": *req.InitialSteering,
	})

	features, err := c.backend.SearchFeatures(ctx, req.Specification, req.Model, c.topK)
	if err != nil {
		return nil, c.fail(ctx, span, fmt.Errorf("feature search failed: %w", err))
	}
	if len(features) == 0 {
		return nil, c.fail(ctx, span, fmt.Errorf("%w: %q", ErrNoFeatures, req.Specification))
	}
	feature := features[0]

	c.emit(ctx, EventFeatureSelected, observability.LevelInfo, map[string]any{
		"feature":    feature.String(),
		"candidates": len(features),
	})

	sess := session.New(req.Specification, req.Prompt, feature.String(), *req.InitialSteering)
	variant := steering.NewVariant(req.Model)
	messages := protocol.InitMessages(protocol.RoleUser, req.Prompt)

	reason := session.StopMaxIterations

loop:
	for i := 1; i <= req.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(ctx, span, err)
		}

		decision, err := c.iterate(ctx, iteration{
			index:     i,
			judge:     j,
			session:   sess,
			variant:   variant,
			feature:   feature,
			messages:  messages,
			maxTokens: req.MaxTokens,
		})
		if err != nil {
			return nil, c.fail(ctx, span, err)
		}

		switch decision.Kind {
		case DecisionStop:
			reason = session.StopJudge
			break loop
		case DecisionInvalid:
			reason = session.StopInvalidResponse
			break loop
		case DecisionAdjust:
			if _, err := sess.SetSteering(decision.Value); err != nil {
				return nil, c.fail(ctx, span, err)
			}
		}
	}

	if err := sess.Seal(reason); err != nil {
		return nil, c.fail(ctx, span, err)
	}

	rec := transcript.FromSession(sess, req.Model, j.Model())
	path, err := c.sink.Write(ctx, rec)
	if err != nil {
		return nil, c.fail(ctx, span, fmt.Errorf("failed to write transcript: %w", err))
	}

	level := observability.LevelInfo
	data := map[string]any{
		"session_id":                sess.ID(),
		"iterations":                rec.Info.TotalIterations,
		"final_steering":            rec.Info.FinalSteering,
		"converged":                 rec.Info.Converged,
		observability.KeyStopReason: string(reason),
		"path":                      path,
	}
	if reason == session.StopMaxIterations {
		level = observability.LevelWarning
		data["message"] = "reached max iterations"
	}
	c.emit(ctx, EventRunComplete, level, data)

	span.SetAttributes(
		attribute.String("steer.stop_reason", string(reason)),
		attribute.Int("steer.iterations", rec.Info.TotalIterations),
	)

	return &Result{
		SessionID:  sess.ID(),
		Info:       rec.Info,
		Iterations: rec.Iterations,
		Path:       path,
	}, nil
}

type iteration struct {
	index     int
	judge     *judge.Judge
	session   *session.Session
	variant   *steering.Variant
	feature   steering.Feature
	messages  []protocol.Message
	maxTokens int
}

func (c *Controller) iterate(ctx context.Context, it iteration) (Decision, error) {
	steer := it.session.Steering()

	ctx, span := c.tracer.Start(ctx, "steer.iteration", trace.WithAttributes(
		attribute.Int("steer.iteration", it.index),
		attribute.Float64("steer.steering", steer),
	))
	defer span.End()

	c.emit(ctx, EventIterationStart, observability.LevelVerbose, map[string]any{
		"iteration":               it.index,
		observability.KeySteering: steer,
	})

	it.variant.Reset()
	it.variant.Set(it.feature, steer)

	start := time.Now()
	output, err := c.backend.Generate(ctx, it.variant, it.messages, it.maxTokens)
	if err != nil {
		return Decision{}, fmt.Errorf("generation failed at iteration %d: %w", it.index, err)
	}

	c.emit(ctx, EventGenerate, observability.LevelInfo, map[string]any{
		"iteration":               it.index,
		"steering":                steer,
		"output":                  output,
		observability.KeyDuration: time.Since(start),
	})

	history := BuildHistoryContext(it.session.Records())

	start = time.Now()
	answer, err := it.judge.EvaluateAndAdjust(ctx, judge.Context{
		Prompt:        it.session.Prompt(),
		Specification: it.session.Specification(),
		Output:        output,
		Steering:      steer,
		Feature:       it.session.Feature(),
		History:       history,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("judge failed at iteration %d: %w", it.index, err)
	}

	c.emit(ctx, EventJudge, observability.LevelInfo, map[string]any{
		"iteration":               it.index,
		"response":                answer,
		observability.KeyDuration: time.Since(start),
	})

	if _, err := it.session.Append(output, answer); err != nil {
		return Decision{}, err
	}

	decision := ParseDecision(answer)
	level := observability.LevelVerbose
	data := map[string]any{
		"iteration":               it.index,
		observability.KeyDecision: decision.Kind.String(),
	}
	switch decision.Kind {
	case DecisionStop:
		level = observability.LevelInfo
		data["message"] = fmt.Sprintf("supervisor satisfied after %d iterations", it.index)
	case DecisionInvalid:
		level = observability.LevelWarning
		data["message"] = "invalid steering value"
		data["response"] = answer
	case DecisionAdjust:
		data["next_steering"] = session.Clamp(decision.Value)
	}
	c.emit(ctx, EventDecision, level, data)
	span.SetAttributes(attribute.String("steer.decision", decision.Kind.String()))

	return decision, nil
}

func (c *Controller) withDefaults(req Request) Request {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = c.maxIterations
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.InitialSteering == nil {
		initial := c.initialSteering
		req.InitialSteering = &initial
	}
	return req
}

func (c *Controller) judgeFor(name string) (*judge.Judge, error) {
	if name == "" {
		return c.judge, nil
	}
	j, err := c.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve judge: %w", err)
	}
	return j, nil
}

func (c *Controller) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.emit(ctx, EventError, observability.LevelError, map[string]any{
		"error": err.Error(),
	})
	return err
}

func (c *Controller) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data:      data,
	})
}
