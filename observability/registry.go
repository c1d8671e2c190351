package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Deps are the shared handles observer factories may need.
type Deps struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Factory builds an observer from shared dependencies.
type Factory func(deps Deps) (Observer, error)

var (
	factories = map[string]Factory{
		"noop": func(Deps) (Observer, error) { return NoOpObserver{}, nil },
		"slog": func(d Deps) (Observer, error) { return NewSlogObserver(d.Logger), nil },
		"metrics": func(d Deps) (Observer, error) {
			reg := d.Registerer
			if reg == nil {
				reg = prometheus.DefaultRegisterer
			}
			return NewMetricsObserver(reg)
		},
		"trace": func(Deps) (Observer, error) { return TraceObserver{}, nil },
	}
	mutex sync.RWMutex
)

// RegisterFactory adds or replaces a named observer factory.
func RegisterFactory(name string, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	factories[name] = factory
}

// Names returns the registered factory names, sorted.
func Names() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the named observers and combines them. No names yields a
// NoOpObserver; one name yields that observer directly.
func Build(names []string, deps Deps) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	observers := make([]Observer, 0, len(names))
	for _, name := range names {
		factory, exists := factories[name]
		if !exists {
			return nil, fmt.Errorf("unknown observer: %s", name)
		}
		obs, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer %q: %w", name, err)
		}
		observers = append(observers, obs)
	}

	switch len(observers) {
	case 0:
		return NoOpObserver{}, nil
	case 1:
		return observers[0], nil
	default:
		return NewMultiObserver(observers...), nil
	}
}
