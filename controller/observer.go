package controller

import "github.com/tailored-agentic-units/steer/observability"

// Controller event types emitted during a steering run.
const (
	EventRunStart        observability.EventType = "steer.run.start"
	EventFeatureSelected observability.EventType = "steer.feature.selected"
	EventIterationStart  observability.EventType = "steer.iteration.start"
	EventGenerate        observability.EventType = "steer.generate.complete"
	EventJudge           observability.EventType = "steer.judge.complete"
	EventDecision        observability.EventType = "steer.decision"
	EventRunComplete     observability.EventType = "steer.run.complete"
	EventError           observability.EventType = "steer.error"
)

const eventSource = "controller.Run"
