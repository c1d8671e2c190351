// Package session holds the state of one steering run: the fixed inputs, the
// authoritative steering value, and the ordered iteration history.
package session

import (
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Hard bounds for the steering value. The judge is asked for a narrower
// range; these are the limits actually enforced.
const (
	MinSteering = -2.0
	MaxSteering = 2.0
)

// ErrSealed is returned when a sealed session is mutated.
var ErrSealed = errors.New("session is sealed")

// StopReason records why the loop exited. It is set exactly once, when the
// session is sealed.
type StopReason string

const (
	StopNone            StopReason = ""
	StopJudge           StopReason = "judge_stop"
	StopInvalidResponse StopReason = "invalid_response"
	StopMaxIterations   StopReason = "max_iterations"
)

// IterationRecord is one pass of the loop. Records are immutable once appended.
type IterationRecord struct {
	Index         int     // 1-based position in the session.
	Steering      float64 // Value used to produce Output.
	Output        string  // Generated text.
	JudgeResponse string  // Trimmed judge answer.
}

// Session is the unit of work for a steering run. All methods are safe for
// concurrent use, though a session is normally owned by a single Run.
type Session struct {
	id            string
	specification string
	prompt        string
	feature       string
	steering      float64
	records       []IterationRecord
	reason        StopReason
	mu            sync.RWMutex
}

// New creates a Session with an empty history. The initial steering value is
// clamped to [MinSteering, MaxSteering]. The session is assigned a unique
// UUIDv7 identifier.
func New(specification, prompt, feature string, initialSteering float64) *Session {
	return &Session{
		id:            uuid.Must(uuid.NewV7()).String(),
		specification: specification,
		prompt:        prompt,
		feature:       feature,
		steering:      Clamp(initialSteering),
	}
}

// Clamp bounds v to [MinSteering, MaxSteering]. Infinities clamp to the
// nearest bound.
func Clamp(v float64) float64 {
	return math.Max(MinSteering, math.Min(MaxSteering, v))
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Specification() string { return s.specification }
func (s *Session) Prompt() string        { return s.prompt }
func (s *Session) Feature() string       { return s.feature }

// Steering returns the current steering value.
func (s *Session) Steering() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steering
}

// SetSteering clamps v and stores it as the current steering value. Returns
// the stored value.
func (s *Session) SetSteering(v float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reason != StopNone {
		return s.steering, ErrSealed
	}
	s.steering = Clamp(v)
	return s.steering, nil
}

// Append records an iteration produced with the current steering value.
func (s *Session) Append(output, judgeResponse string) (IterationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reason != StopNone {
		return IterationRecord{}, ErrSealed
	}

	rec := IterationRecord{
		Index:         len(s.records) + 1,
		Steering:      s.steering,
		Output:        output,
		JudgeResponse: judgeResponse,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// Records returns a copy of the iteration history in iteration order.
func (s *Session) Records() []IterationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Len returns the number of completed iterations.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Seal fixes the stop reason. A session can be sealed once.
func (s *Session) Seal(reason StopReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reason != StopNone {
		return ErrSealed
	}
	if reason == StopNone {
		return errors.New("stop reason required")
	}
	s.reason = reason
	return nil
}

// StopReason returns the terminal state, or StopNone while the loop runs.
func (s *Session) StopReason() StopReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Sealed reports whether the session has been sealed.
func (s *Session) Sealed() bool {
	return s.StopReason() != StopNone
}

// Converged reports whether the judge signalled satisfaction.
func (s *Session) Converged() bool {
	return s.StopReason() == StopJudge
}
