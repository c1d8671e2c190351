package observability

import "context"

// MultiObserver fans out events to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

// Len returns the number of wrapped observers.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
