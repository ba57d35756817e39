package viewport

import (
	"sync"

	"github.com/markerflow/markerflow/pkg/core"
)

// Holder is a concrete core.BoundsSource: a mutable value holder with
// listener notification. Hosts set it from their camera-idle callbacks.
type Holder struct {
	mu        sync.Mutex
	value     *core.LatLngBounds
	listeners map[int]func()
	nextID    int
}

// NewHolder creates a holder with an optional initial value.
func NewHolder(initial *core.LatLngBounds) *Holder {
	return &Holder{
		value:     initial,
		listeners: make(map[int]func()),
	}
}

// Value returns the currently held bounds, nil when none are known.
func (h *Holder) Value() *core.LatLngBounds {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.value == nil {
		return nil
	}
	b := *h.value
	return &b
}

// Set replaces the held bounds and notifies all listeners.
func (h *Holder) Set(b *core.LatLngBounds) {
	h.mu.Lock()
	if b != nil {
		copied := *b
		h.value = &copied
	} else {
		h.value = nil
	}
	fns := make([]func(), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// AddListener registers fn for change notifications and returns its
// removal function.
func (h *Holder) AddListener(fn func()) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}
