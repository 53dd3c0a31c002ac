package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	domainErrors "github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// FileModelStore persists model bundles as a single JSON file. The bundle
// is written whole through a temp file and rename, so a reader can never
// load a classifier without its matching encoder set.
type FileModelStore struct {
	path   string
	logger *slog.Logger
}

// NewFileModelStore creates a model store at path.
func NewFileModelStore(path string, logger *slog.Logger) *FileModelStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileModelStore{path: path, logger: logger}
}

// Save writes the bundle atomically.
func (s *FileModelStore) Save(ctx context.Context, b *ml.Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return domainErrors.NewPersistenceError("model_save", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return domainErrors.NewPersistenceError("model_save", err)
	}
	s.logger.Info("model bundle saved", "path", s.path, "version", b.Version)
	return nil
}

// Load reads the current bundle. A missing file maps to the not-found
// sentinel so serving can degrade to the default assessment.
func (s *FileModelStore) Load(ctx context.Context) (*ml.Bundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainErrors.ErrModelNotFound
		}
		return nil, domainErrors.NewPersistenceError("model_load", err)
	}
	var b ml.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, domainErrors.NewPersistenceError("model_load", err)
	}
	return &b, nil
}
