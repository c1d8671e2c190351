// Package mock provides an in-memory steering.Backend for tests.
package mock

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/steer/core/protocol"
	"github.com/tailored-agentic-units/steer/steering"
)

// GenerateFunc produces the output for the n-th Generate call (1-based).
type GenerateFunc func(n int, variant *steering.Variant) (string, error)

// Call captures the state seen by one Generate call.
type Call struct {
	Model     string
	Edits     []steering.Edit
	Messages  []protocol.Message
	MaxTokens int
}

// MockBackend records every call and answers from configured data.
type MockBackend struct {
	features  []steering.Feature
	searchErr error
	generate  GenerateFunc

	mu      sync.Mutex
	queries []string
	topKs   []int
	calls   []Call
	closed  bool
}

// Option configures a MockBackend.
type Option func(*MockBackend)

// WithFeatures sets the features returned by SearchFeatures.
func WithFeatures(features ...steering.Feature) Option {
	return func(m *MockBackend) { m.features = features }
}

// WithSearchError makes SearchFeatures fail.
func WithSearchError(err error) Option {
	return func(m *MockBackend) { m.searchErr = err }
}

// WithOutputs answers Generate calls in order, repeating the last output
// once the list is exhausted.
func WithOutputs(outputs ...string) Option {
	return func(m *MockBackend) {
		m.generate = func(n int, _ *steering.Variant) (string, error) {
			if len(outputs) == 0 {
				return "", nil
			}
			if n > len(outputs) {
				return outputs[len(outputs)-1], nil
			}
			return outputs[n-1], nil
		}
	}
}

// WithGenerateFunc sets a custom Generate implementation.
func WithGenerateFunc(fn GenerateFunc) Option {
	return func(m *MockBackend) { m.generate = fn }
}

// NewMockBackend creates a MockBackend with one default feature and a fixed
// output, then applies opts.
func NewMockBackend(opts ...Option) *MockBackend {
	m := &MockBackend{
		features: []steering.Feature{{UUID: "mock-feature", Label: "mock feature"}},
	}
	WithOutputs("mock output")(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockBackend) SearchFeatures(ctx context.Context, query, model string, topK int) ([]steering.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	m.topKs = append(m.topKs, topK)
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	features := m.features
	if topK > 0 && len(features) > topK {
		features = features[:topK]
	}
	return append([]steering.Feature(nil), features...), nil
}

func (m *MockBackend) Generate(ctx context.Context, variant *steering.Variant, messages []protocol.Message, maxTokens int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{
		Model:     variant.Model(),
		Edits:     variant.Edits(),
		Messages:  append([]protocol.Message(nil), messages...),
		MaxTokens: maxTokens,
	})
	n := len(m.calls)
	m.mu.Unlock()

	return m.generate(n, variant)
}

func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the recorded Generate calls.
func (m *MockBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Queries returns the recorded SearchFeatures queries.
func (m *MockBackend) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// TopKs returns the topK argument of each SearchFeatures call.
func (m *MockBackend) TopKs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.topKs...)
}

// Closed reports whether Close was called.
func (m *MockBackend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
