// Package observability carries controller events to logs, metrics, and
// traces. Level values align with OpenTelemetry SeverityNumbers so events map
// onto OTel log records without translation.
package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event, e.g. "steer.iteration.start".
type EventType string

// Event is emitted by the controller at each step of a run.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Keys returns the Data keys in sorted order so every sink renders
// attributes deterministically.
func (e Event) Keys() []string {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Observer receives events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
