package judge

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Factory builds the backend client for a judge configuration.
type Factory func(cfg *Config) (Completer, error)

// OpenAIFactory is the default Factory.
func OpenAIFactory(cfg *Config) (Completer, error) {
	return NewOpenAIClient(cfg)
}

// Info describes a registered judge profile.
type Info struct {
	Name  string
	Model string
}

// Registry manages named judge profiles with lazy instantiation.
// Configs are stored at registration time; clients are created on first
// Get call. Thread-safe for concurrent access.
//
// The registry owns the clients its factory creates. Clients that implement
// io.Closer are closed when their entry is replaced or unregistered, and by
// Close.
type Registry struct {
	mu      sync.RWMutex
	factory Factory
	configs map[string]Config
	judges  map[string]*Judge
	clients map[string]Completer
}

// NewRegistry creates an empty Registry. A nil factory selects OpenAIFactory.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = OpenAIFactory
	}
	return &Registry{
		factory: factory,
		configs: make(map[string]Config),
		judges:  make(map[string]*Judge),
		clients: make(map[string]Completer),
	}
}

// Register adds a named judge configuration. The client is not created
// until Get is called.
func (r *Registry) Register(name string, cfg Config) error {
	if name == "" {
		return ErrEmptyJudgeName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJudgeExists, name)
	}

	r.configs[name] = cfg
	return nil
}

// Get retrieves a named judge, creating its client on first access.
func (r *Registry) Get(name string) (*Judge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, registered := r.configs[name]
	if !registered {
		return nil, fmt.Errorf("%w: %s", ErrJudgeNotFound, name)
	}

	if j, exists := r.judges[name]; exists {
		return j, nil
	}

	client, err := r.factory(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge %q: %w", name, err)
	}

	j := New(client, cfg.Model)
	r.judges[name] = j
	r.clients[name] = client
	return j, nil
}

// Replace updates the configuration for an existing judge. Any cached
// instance is closed and dropped; the next Get re-creates it.
func (r *Registry) Replace(name string, cfg Config) error {
	if name == "" {
		return ErrEmptyJudgeName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrJudgeNotFound, name)
	}

	r.configs[name] = cfg
	return r.drop(name)
}

// Unregister removes a named judge and closes its client.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrJudgeNotFound, name)
	}

	delete(r.configs, name)
	return r.drop(name)
}

// Close closes every client the registry created and clears the cache.
// Registered configs are kept, so a later Get creates a fresh client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name := range r.clients {
		if err := r.drop(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// drop must be called with mu held.
func (r *Registry) drop(name string) error {
	client := r.clients[name]
	delete(r.judges, name)
	delete(r.clients, name)

	if closer, ok := client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close judge %q: %w", name, err)
		}
	}
	return nil
}

// List returns all registered judges sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.configs))
	for name, cfg := range r.configs {
		model := cfg.Model
		if model == "" {
			model = DefaultModel
		}
		infos = append(infos, Info{Name: name, Model: model})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
