package syncals

import (
	"sync"

	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/sources"
)

// Hook function types for applied changes
type (
	// AddedHook is called for each booking the sink created.
	AddedHook func(change events.Record)

	// DeletedHook is called for each booking the sink cancelled.
	DeletedHook func(change events.Record)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnAdded(fn AddedHook)
	OnDeleted(fn DeletedHook)
}

// hooks manages callbacks for applied changes
type hooks struct {
	mu        sync.RWMutex
	onAdded   []AddedHook
	onDeleted []DeletedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnAdded registers a callback for created bookings
func (h *hooks) OnAdded(fn AddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAdded = append(h.onAdded, fn)
}

// OnDeleted registers a callback for cancelled bookings
func (h *hooks) OnDeleted(fn DeletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDeleted = append(h.onDeleted, fn)
}

// trigger calls the hooks for every change the sink applied
func (h *hooks) trigger(report sources.ApplyReport) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range report.Done {
		switch c.Origin {
		case events.OriginAdd:
			for _, fn := range h.onAdded {
				fn(c)
			}
		case events.OriginDelete:
			for _, fn := range h.onDeleted {
				fn(c)
			}
		}
	}
}
