package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/steer/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  slog.Level
	}{
		{name: "verbose maps to Debug", level: observability.LevelVerbose, want: slog.LevelDebug},
		{name: "info maps to Info", level: observability.LevelInfo, want: slog.LevelInfo},
		{name: "warning maps to Warn", level: observability.LevelWarning, want: slog.LevelWarn},
		{name: "error maps to Error", level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.SlogLevel(); got != tt.want {
				t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_OTelAlignment(t *testing.T) {
	if observability.LevelVerbose != 5 {
		t.Errorf("LevelVerbose = %d, want 5 (OTel DEBUG range)", observability.LevelVerbose)
	}
	if observability.LevelInfo != 9 {
		t.Errorf("LevelInfo = %d, want 9 (OTel INFO range)", observability.LevelInfo)
	}
	if observability.LevelWarning != 13 {
		t.Errorf("LevelWarning = %d, want 13 (OTel WARN range)", observability.LevelWarning)
	}
	if observability.LevelError != 17 {
		t.Errorf("LevelError = %d, want 17 (OTel ERROR range)", observability.LevelError)
	}
}

func TestNoOpObserver(t *testing.T) {
	obs := observability.NoOpObserver{}
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "test.event",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
		Data:      map[string]any{"key": "value"},
	})
}

func TestMultiObserver(t *testing.T) {
	var events1, events2 []observability.Event

	obs1 := &captureObserver{events: &events1}
	obs2 := &captureObserver{events: &events2}

	multi := observability.NewMultiObserver(obs1, obs2)

	event := observability.Event{
		Type:      "test.event",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
		Data:      map[string]any{"key": "value"},
	}

	multi.OnEvent(context.Background(), event)

	if len(events1) != 1 {
		t.Errorf("observer 1 received %d events, want 1", len(events1))
	}
	if len(events2) != 1 {
		t.Errorf("observer 2 received %d events, want 1", len(events2))
	}
	if events1[0].Type != "test.event" {
		t.Errorf("observer 1 event type = %q, want %q", events1[0].Type, "test.event")
	}
}

func TestEvent_Keys(t *testing.T) {
	e := observability.Event{Data: map[string]any{"steering": 0.5, "iteration": 1, "feature": "f"}}

	got := e.Keys()
	want := []string{"feature", "iteration", "steering"}
	if len(got) != len(want) {
		t.Fatalf("Keys() returned %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMultiObserver_NilFiltering(t *testing.T) {
	var events []observability.Event
	obs := &captureObserver{events: &events}

	multi := observability.NewMultiObserver(nil, obs, nil)

	multi.OnEvent(context.Background(), observability.Event{
		Type:  "test.event",
		Level: observability.LevelInfo,
	})

	if len(events) != 1 {
		t.Errorf("received %d events, want 1 (nil observers should be filtered)", len(events))
	}
	if multi.Len() != 1 {
		t.Errorf("Len() = %d, want 1", multi.Len())
	}
}

func TestSlogObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at info handler", level: observability.LevelInfo, minLevel: slog.LevelInfo, expectLog: true},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "warning at warn handler", level: observability.LevelWarning, minLevel: slog.LevelWarn, expectLog: true},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
				Level: tt.minLevel,
			}))

			obs := observability.NewSlogObserver(logger)
			obs.OnEvent(context.Background(), observability.Event{
				Type:      "test.event",
				Level:     tt.level,
				Timestamp: time.Now(),
				Source:    "test",
			})

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expectLog {
				t.Errorf("log output = %v, want %v (buf: %q)", hasOutput, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_EventTypeAsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	obs := observability.NewSlogObserver(logger)
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "steer.iteration.start",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "controller.Run",
		Data: map[string]any{
			"steering":  0.5,
			"iteration": 2,
		},
	})

	output := buf.String()
	if !strings.Contains(output, "steer.iteration.start") {
		t.Errorf("expected event type as log message, got: %s", output)
	}
	if !strings.Contains(output, "source=controller.Run") {
		t.Errorf("expected source attribute, got: %s", output)
	}
	if !strings.Contains(output, "iteration=2 steering=0.5") {
		t.Errorf("expected sorted data attributes, got: %s", output)
	}
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewMetricsObserver(reg)
	if err != nil {
		t.Fatalf("NewMetricsObserver failed: %v", err)
	}

	ctx := context.Background()
	obs.OnEvent(ctx, observability.Event{
		Type:  "steer.decision",
		Level: observability.LevelInfo,
		Data:  map[string]any{observability.KeyDecision: "adjust", observability.KeySteering: 0.5},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:  "steer.generate.complete",
		Level: observability.LevelVerbose,
		Data:  map[string]any{observability.KeyDuration: 120 * time.Millisecond},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:  "steer.run.complete",
		Level: observability.LevelInfo,
		Data:  map[string]any{observability.KeyStopReason: "judge_stop"},
	})

	expected := `
# HELP steer_runs_total Completed steering runs by stop reason.
# TYPE steer_runs_total counter
steer_runs_total{stop_reason="judge_stop"} 1
# HELP steer_steering_value Most recent steering value applied.
# TYPE steer_steering_value gauge
steer_steering_value 0.5
# HELP steer_judge_decisions_total Judge responses by classified decision.
# TYPE steer_judge_decisions_total counter
steer_judge_decisions_total{decision="adjust"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"steer_runs_total", "steer_steering_value", "steer_judge_decisions_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	n, err := testutil.GatherAndCount(reg, "steer_events_total")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("got %d event series, want 3", n)
	}

	n, err = testutil.GatherAndCount(reg, "steer_backend_call_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d latency series, want 1", n)
	}
}

func TestMetricsObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := observability.NewMetricsObserver(reg); err != nil {
		t.Fatalf("first NewMetricsObserver failed: %v", err)
	}

	_, err := observability.NewMetricsObserver(reg)
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		t.Errorf("got %v, want AlreadyRegisteredError", err)
	}
}

func TestTraceObserver(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "steer.run")

	obs := observability.TraceObserver{}
	obs.OnEvent(ctx, observability.Event{
		Type:   "steer.decision",
		Level:  observability.LevelInfo,
		Source: "controller.Run",
		Data:   map[string]any{"decision": "adjust", "steering": 1.5, "iteration": 1},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:   "steer.error",
		Level:  observability.LevelError,
		Source: "controller.Run",
		Data:   map[string]any{"error": "backend down"},
	})
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d ended spans, want 1", len(ended))
	}

	events := ended[0].Events()
	if len(events) != 2 {
		t.Fatalf("got %d span events, want 2", len(events))
	}
	if events[0].Name != "steer.decision" {
		t.Errorf("event name = %q, want %q", events[0].Name, "steer.decision")
	}

	attrs := map[string]string{}
	for _, kv := range events[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["decision"] != "adjust" || attrs["steering"] != "1.5" || attrs["source"] != "controller.Run" {
		t.Errorf("unexpected attributes: %v", attrs)
	}

	status := ended[0].Status()
	if status.Code != codes.Error || status.Description != "backend down" {
		t.Errorf("span status = %+v, want error with description", status)
	}
}

func TestTraceObserver_NoSpan(t *testing.T) {
	obs := observability.TraceObserver{}
	obs.OnEvent(context.Background(), observability.Event{Type: "steer.run.start", Level: observability.LevelError})
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{name: "empty yields noop", names: nil},
		{name: "noop", names: []string{"noop"}},
		{name: "slog", names: []string{"slog"}},
		{name: "combined", names: []string{"slog", "metrics", "trace"}},
		{name: "unknown fails", names: []string{"slog", "nonexistent"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := observability.Deps{
				Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
				Registerer: prometheus.NewRegistry(),
			}
			obs, err := observability.Build(tt.names, deps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build(%v) error = %v, wantErr %v", tt.names, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("Build(%v) returned nil observer", tt.names)
			}
		})
	}
}

func TestBuild_Multi(t *testing.T) {
	obs, err := observability.Build([]string{"noop", "slog"}, observability.Deps{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	multi, ok := obs.(*observability.MultiObserver)
	if !ok {
		t.Fatalf("got %T, want *MultiObserver", obs)
	}
	if multi.Len() != 2 {
		t.Errorf("Len() = %d, want 2", multi.Len())
	}
}

func TestRegisterFactory(t *testing.T) {
	var events []observability.Event
	observability.RegisterFactory("test-capture", func(observability.Deps) (observability.Observer, error) {
		return &captureObserver{events: &events}, nil
	})

	found := false
	for _, name := range observability.Names() {
		if name == "test-capture" {
			found = true
		}
	}
	if !found {
		t.Error("Names() should include registered factory")
	}

	obs, err := observability.Build([]string{"test-capture"}, observability.Deps{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "test.event", Level: observability.LevelInfo})

	if len(events) != 1 {
		t.Errorf("received %d events, want 1", len(events))
	}
}

type captureObserver struct {
	events *[]observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	*c.events = append(*c.events, event)
}
