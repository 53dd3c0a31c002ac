package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	domainErrors "github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// recordFile is the on-disk shape of the store: a keyed list of records.
type recordFile struct {
	Services []*record.ServiceRecord `json:"services"`
}

// ListFilter narrows List results by exact match; zero fields match
// everything.
type ListFilter struct {
	District    string
	Mandal      string
	ServiceCode string
	Category    record.Category
	Status      record.Status
	Stage       record.WorkflowStage
}

func (f ListFilter) matches(r *record.ServiceRecord) bool {
	if f.District != "" && r.District != f.District {
		return false
	}
	if f.Mandal != "" && r.Mandal != f.Mandal {
		return false
	}
	if f.ServiceCode != "" && r.ServiceCode != f.ServiceCode {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Stage != "" && r.CurrentStage != f.Stage {
		return false
	}
	return true
}

// FileRecordStore is a JSON-file-backed service record collection. The
// whole list is loaded on open and rewritten on every mutation; writes go
// through a temp file and rename so readers never see a torn file.
type FileRecordStore struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records []*record.ServiceRecord
	index   map[string]int
}

// NewFileRecordStore opens the store at path, loading existing records
// when the file is present.
func NewFileRecordStore(path string, logger *slog.Logger) (*FileRecordStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileRecordStore{
		path:   path,
		logger: logger,
		index:  map[string]int{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, domainErrors.NewPersistenceError("record_load", err)
	}
	var f recordFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, domainErrors.NewPersistenceError("record_load", err)
	}
	s.records = f.Services
	for i, r := range s.records {
		s.index[r.ServiceID] = i
	}
	logger.Info("record store loaded", "path", path, "records", len(s.records))
	return s, nil
}

// GetAll returns a copy of the record list.
func (s *FileRecordStore) GetAll(ctx context.Context) ([]*record.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*record.ServiceRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Get returns the record with the given service ID.
func (s *FileRecordStore) Get(ctx context.Context, serviceID string) (*record.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[serviceID]
	if !ok {
		return nil, domainErrors.ErrRecordNotFound
	}
	return s.records[i], nil
}

// List returns records passing the filter, preserving insertion order.
func (s *FileRecordStore) List(ctx context.Context, filter ListFilter) ([]*record.ServiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*record.ServiceRecord{}
	for _, r := range s.records {
		if filter.matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Add inserts a new record and persists the store.
func (s *FileRecordStore) Add(ctx context.Context, r *record.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[r.ServiceID]; exists {
		return domainErrors.NewConflictError("service record already exists: " + r.ServiceID)
	}
	s.records = append(s.records, r)
	s.index[r.ServiceID] = len(s.records) - 1
	return s.persistLocked()
}

// Update replaces the stored record with the same service ID and persists
// the store.
func (s *FileRecordStore) Update(ctx context.Context, r *record.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[r.ServiceID]
	if !ok {
		return domainErrors.ErrRecordNotFound
	}
	s.records[i] = r
	return s.persistLocked()
}

// AddBatch inserts records in bulk with a single persist, replacing any
// existing record with the same ID.
func (s *FileRecordStore) AddBatch(ctx context.Context, records []*record.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if i, exists := s.index[r.ServiceID]; exists {
			s.records[i] = r
			continue
		}
		s.records = append(s.records, r)
		s.index[r.ServiceID] = len(s.records) - 1
	}
	return s.persistLocked()
}

// Count returns the number of stored records.
func (s *FileRecordStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *FileRecordStore) persistLocked() error {
	data, err := json.MarshalIndent(recordFile{Services: s.records}, "", "  ")
	if err != nil {
		return domainErrors.NewPersistenceError("record_save", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return domainErrors.NewPersistenceError("record_save", err)
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory and
// renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
