// Package transcript renders a sealed steering session as the plain-text
// audit record and persists it to disk.
package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tailored-agentic-units/steer/session"
)

const (
	heavyRule = "============================================================"
	lightRule = "------------------------------------------------------------"
)

// Record is everything written for one session.
type Record struct {
	Info       session.Info
	Iterations []session.IterationRecord
}

// FromSession builds a Record from a session. model and supervisor identify
// the generation and judge models.
func FromSession(s *session.Session, model, supervisor string) Record {
	return Record{
		Info:       s.Info(model, supervisor),
		Iterations: s.Records(),
	}
}

// Render formats rec as the transcript text: a header block, one block per
// iteration with steering at two decimals, then the summary.
func Render(rec Record) []byte {
	var b bytes.Buffer
	info := rec.Info

	b.WriteString(heavyRule + "\n")
	b.WriteString("ADAPTIVE FEATURE STEERING SESSION\n")
	b.WriteString(heavyRule + "\n")
	fmt.Fprintf(&b, "Prompt: %s\n", info.Prompt)
	fmt.Fprintf(&b, "Specification: %s\n", info.Specification)
	fmt.Fprintf(&b, "Model: %s\n", info.Model)
	fmt.Fprintf(&b, "Supervisor: %s\n", info.Supervisor)
	b.WriteString(lightRule + "\n")
	fmt.Fprintf(&b, "Feature: %s\n", info.Feature)
	b.WriteString(heavyRule + "\n\n")

	for _, it := range rec.Iterations {
		fmt.Fprintf(&b, "--- Iteration %d ---\n", it.Index)
		fmt.Fprintf(&b, "Steering: %.2f\n", it.Steering)
		fmt.Fprintf(&b, "Output: %s\n", it.Output)
		fmt.Fprintf(&b, "Supervisor: %s\n\n", it.JudgeResponse)
	}

	b.WriteString(heavyRule + "\n")
	b.WriteString("SESSION SUMMARY\n")
	b.WriteString(heavyRule + "\n")
	for _, f := range info.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", SummaryKey(f.Key), f.Value)
	}

	return b.Bytes()
}

// SummaryKey turns a snake_case field key into its display form:
// "total_iterations" becomes "Total Iterations".
func SummaryKey(key string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}
