package prediction

import (
	"sync/atomic"

	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// BundleHolder owns the current model bundle. Readers share the bundle
// read-only; retraining swaps in a fresh bundle atomically so a classifier
// is never observed with a mismatched encoder set.
type BundleHolder struct {
	current atomic.Pointer[ml.Bundle]
}

// NewBundleHolder returns a holder, optionally seeded with a bundle.
func NewBundleHolder(b *ml.Bundle) *BundleHolder {
	h := &BundleHolder{}
	if b != nil {
		h.current.Store(b)
	}
	return h
}

// Get returns the current bundle, or nil when no model has been loaded.
func (h *BundleHolder) Get() *ml.Bundle {
	return h.current.Load()
}

// Swap replaces the current bundle wholesale.
func (h *BundleHolder) Swap(b *ml.Bundle) {
	h.current.Store(b)
}
