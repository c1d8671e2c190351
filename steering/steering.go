// Package steering is the generation backend: a chat model whose internal
// features can be searched by relevance and pinned to a strength before
// each completion.
package steering

import (
	"context"
	"fmt"
	"sort"

	"github.com/tailored-agentic-units/steer/core/protocol"
)

// Feature identifies one controllable internal direction of the model.
type Feature struct {
	UUID  string `json:"uuid"`
	Label string `json:"label"`
	Index int    `json:"index_in_sae"`
}

// String returns the descriptor used in prompts and transcripts.
func (f Feature) String() string {
	return fmt.Sprintf("Feature(%q)", f.Label)
}

// Edit is a feature pinned to a value.
type Edit struct {
	Feature Feature `json:"feature"`
	Value   float64 `json:"value"`
}

// Variant is a model plus a set of feature edits. The zero edit set is the
// baseline model. Not safe for concurrent use.
type Variant struct {
	model string
	edits map[string]Edit
}

// NewVariant creates a baseline variant of model.
func NewVariant(model string) *Variant {
	return &Variant{model: model, edits: make(map[string]Edit)}
}

// Model returns the base model name.
func (v *Variant) Model() string {
	return v.model
}

// Reset clears every edit, returning the variant to baseline.
func (v *Variant) Reset() {
	clear(v.edits)
}

// Set pins f to value, replacing any earlier value for the same feature.
func (v *Variant) Set(f Feature, value float64) {
	v.edits[key(f)] = Edit{Feature: f, Value: value}
}

// Edits returns the current edits ordered by feature UUID.
func (v *Variant) Edits() []Edit {
	edits := make([]Edit, 0, len(v.edits))
	for _, e := range v.edits {
		edits = append(edits, e)
	}
	sort.Slice(edits, func(i, j int) bool {
		return key(edits[i].Feature) < key(edits[j].Feature)
	})
	return edits
}

func key(f Feature) string {
	if f.UUID != "" {
		return f.UUID
	}
	return f.Label
}

// Backend is the generation backend contract used by the controller.
type Backend interface {
	// SearchFeatures returns features ranked by relevance to query, at most topK.
	SearchFeatures(ctx context.Context, query, model string, topK int) ([]Feature, error)
	// Generate returns one completion from variant, capped at maxTokens output tokens.
	Generate(ctx context.Context, variant *Variant, messages []protocol.Message, maxTokens int) (string, error)
	// Close releases client resources.
	Close() error
}
