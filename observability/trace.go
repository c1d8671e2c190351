package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceObserver attaches events to the active span in ctx. Events at
// LevelError or above also mark the span as failed. Without a recording span
// it does nothing.
type TraceObserver struct{}

func (TraceObserver) OnEvent(ctx context.Context, event Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(event.Data)+1)
	attrs = append(attrs, attribute.String("source", event.Source))
	for _, k := range event.Keys() {
		attrs = append(attrs, toAttribute(k, event.Data[k]))
	}

	opts := []trace.EventOption{trace.WithAttributes(attrs...)}
	if !event.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(event.Timestamp))
	}
	span.AddEvent(string(event.Type), opts...)

	if event.Level >= LevelError {
		span.SetStatus(codes.Error, fmt.Sprint(event.Data["error"]))
	}
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case time.Duration:
		return attribute.Float64(key+"_seconds", val.Seconds())
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}
