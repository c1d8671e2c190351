package observability

import (
	"context"
	"log/slog"
)

// SlogObserver writes events to a slog.Logger. The event type becomes the
// message; Source and Data become attributes.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger selects slog.Default.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range event.Keys() {
		attrs = append(attrs, slog.Any(k, event.Data[k]))
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
