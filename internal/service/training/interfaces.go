package training

import (
	"context"

	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// ModelStore persists and loads model bundles. Save must be atomic at the
// bundle granularity: a partial write must never leave a loadable
// classifier without its matching encoders.
type ModelStore interface {
	Save(ctx context.Context, b *ml.Bundle) error
	Load(ctx context.Context) (*ml.Bundle, error)
}
