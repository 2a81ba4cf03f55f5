package renewals

import (
	"sync"

	"github.com/agentstation/renewals/pkg/plans"
)

// Hook function types for session events
type (
	// SavedHook is called after a batch of follow-ups is stored.
	SavedHook func(records []plans.FollowUp)

	// SaveFailedHook is called when a batch could not be stored.
	SaveFailedHook func(records []plans.FollowUp, err error)

	// RefreshedHook is called after the catalog cache is dropped.
	RefreshedHook func()

	// CatalogLoadedHook is called after every uncached catalog read.
	CatalogLoadedHook func(path string, err error)

	// OverlayUnavailableHook is called when a read of the overlay fails.
	OverlayUnavailableHook func(err error)
)

// hooks manages event callbacks for session changes
type hooks struct {
	mu                   sync.RWMutex
	onSaved              []SavedHook
	onSaveFailed         []SaveFailedHook
	onRefreshed          []RefreshedHook
	onCatalogLoaded      []CatalogLoadedHook
	onOverlayUnavailable []OverlayUnavailableHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnSaved registers a callback for stored batches
func (h *hooks) OnSaved(fn SavedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSaved = append(h.onSaved, fn)
}

// OnSaveFailed registers a callback for failed batches
func (h *hooks) OnSaveFailed(fn SaveFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSaveFailed = append(h.onSaveFailed, fn)
}

// OnRefreshed registers a callback for cache refreshes
func (h *hooks) OnRefreshed(fn RefreshedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRefreshed = append(h.onRefreshed, fn)
}

// OnCatalogLoaded registers a callback for catalog reads
func (h *hooks) OnCatalogLoaded(fn CatalogLoadedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCatalogLoaded = append(h.onCatalogLoaded, fn)
}

// OnOverlayUnavailable registers a callback for failed overlay reads
func (h *hooks) OnOverlayUnavailable(fn OverlayUnavailableHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onOverlayUnavailable = append(h.onOverlayUnavailable, fn)
}

func (h *hooks) triggerSaved(records []plans.FollowUp) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSaved {
		fn(records)
	}
}

func (h *hooks) triggerSaveFailed(records []plans.FollowUp, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSaveFailed {
		fn(records, err)
	}
}

func (h *hooks) triggerRefreshed() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRefreshed {
		fn()
	}
}

func (h *hooks) triggerCatalogLoaded(path string, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onCatalogLoaded {
		fn(path, err)
	}
}

func (h *hooks) triggerOverlayUnavailable(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onOverlayUnavailable {
		fn(err)
	}
}
