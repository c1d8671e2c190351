package controller

import (
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/steer/session"
)

// BuildHistoryContext renders one line per record for the judge. Outputs are
// left out; only the steering value and the judge's answer are carried.
func BuildHistoryContext(records []session.IterationRecord) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("Iteration %d: Steering=%.2f, Suggestion=%s", r.Index, r.Steering, r.JudgeResponse)
	}
	return strings.Join(lines, "\n")
}
