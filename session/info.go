package session

import "strconv"

// Info is the session summary returned to callers and written at the end of
// the transcript.
type Info struct {
	Prompt          string     `json:"prompt"`
	Specification   string     `json:"specification"`
	Model           string     `json:"model"`
	Supervisor      string     `json:"supervisor"`
	Feature         string     `json:"feature"`
	TotalIterations int        `json:"total_iterations"`
	FinalSteering   float64    `json:"final_steering"`
	Converged       bool       `json:"converged"`
	StopReason      StopReason `json:"stop_reason"`
}

// Field is a single summary entry. Keys are snake_case.
type Field struct {
	Key   string
	Value string
}

// Info builds the summary for the session. model and supervisor identify the
// generation model and the judge model.
func (s *Session) Info(model, supervisor string) Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		Prompt:          s.prompt,
		Specification:   s.specification,
		Model:           model,
		Supervisor:      supervisor,
		Feature:         s.feature,
		TotalIterations: len(s.records),
		FinalSteering:   s.steering,
		Converged:       s.reason == StopJudge,
		StopReason:      s.reason,
	}
}

// Fields returns every summary entry in display order.
func (i Info) Fields() []Field {
	return []Field{
		{"prompt", i.Prompt},
		{"specification", i.Specification},
		{"model", i.Model},
		{"supervisor", i.Supervisor},
		{"feature", i.Feature},
		{"total_iterations", strconv.Itoa(i.TotalIterations)},
		{"final_steering", FormatFloat(i.FinalSteering)},
		{"converged", FormatBool(i.Converged)},
		{"stop_reason", string(i.StopReason)},
	}
}
