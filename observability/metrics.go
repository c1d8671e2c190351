package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Data keys with metric meaning. Events that carry them feed the matching
// collector; every event feeds steer_events_total.
const (
	KeyStopReason = "stop_reason"
	KeyDecision   = "decision"
	KeySteering   = "steering"
	KeyDuration   = "duration"
)

// MetricsObserver records events as Prometheus metrics.
type MetricsObserver struct {
	events    *prometheus.CounterVec
	runs      *prometheus.CounterVec
	decisions *prometheus.CounterVec
	steering  prometheus.Gauge
	latency   *prometheus.HistogramVec
}

// NewMetricsObserver creates the collectors and registers them on reg.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steer_events_total",
			Help: "Controller events by type and level.",
		}, []string{"type", "level"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steer_runs_total",
			Help: "Completed steering runs by stop reason.",
		}, []string{"stop_reason"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steer_judge_decisions_total",
			Help: "Judge responses by classified decision.",
		}, []string{"decision"}),
		steering: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "steer_steering_value",
			Help: "Most recent steering value applied.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "steer_backend_call_seconds",
			Help:    "Backend call latency by event type.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"type"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.runs, m.decisions, m.steering, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsObserver) OnEvent(_ context.Context, event Event) {
	m.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()

	if reason, ok := event.Data[KeyStopReason].(string); ok {
		m.runs.WithLabelValues(reason).Inc()
	}
	if decision, ok := event.Data[KeyDecision].(string); ok {
		m.decisions.WithLabelValues(decision).Inc()
	}
	if v, ok := event.Data[KeySteering].(float64); ok {
		m.steering.Set(v)
	}
	if d, ok := event.Data[KeyDuration].(time.Duration); ok {
		m.latency.WithLabelValues(string(event.Type)).Observe(d.Seconds())
	}
}
