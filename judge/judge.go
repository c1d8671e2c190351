// Package judge asks a second language model whether a steered output meets
// the target behavior and, if not, which steering value to try next.
//
// The judge is a text-in/text-out oracle: it returns the model's trimmed
// answer verbatim and leaves all interpretation to the caller.
package judge

import (
	"context"
	"fmt"
	"strings"
)

// DefaultModel is the judge model used when none is configured.
const DefaultModel = "gpt-4.1-mini"

// Completer is the judge backend: one chat completion for a single user
// message.
type Completer interface {
	Complete(ctx context.Context, model, message string) (string, error)
}

// Context carries everything the judge sees for one evaluation.
type Context struct {
	Prompt        string  // Original request sent to the generation model.
	Specification string  // Target behavior.
	Output        string  // Latest generated output.
	Steering      float64 // Steering value that produced Output.
	Feature       string  // Descriptor of the steered feature.
	History       string  // Summary of prior attempts, one line each.
}

// Judge evaluates outputs through a Completer.
type Judge struct {
	client Completer
	model  string
}

// New creates a Judge that calls model through client. An empty model
// selects DefaultModel.
func New(client Completer, model string) *Judge {
	if model == "" {
		model = DefaultModel
	}
	return &Judge{client: client, model: model}
}

// Model returns the judge model identity.
func (j *Judge) Model() string {
	return j.model
}

// EvaluateAndAdjust sends one evaluation request and returns the raw trimmed
// answer. Backend errors are returned wrapped; nothing is retried.
func (j *Judge) EvaluateAndAdjust(ctx context.Context, c Context) (string, error) {
	resp, err := j.client.Complete(ctx, j.model, BuildPrompt(c))
	if err != nil {
		return "", fmt.Errorf("judge call failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
