package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/testutil/fixtures"
)

func tempStore(t *testing.T) (*FileRecordStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.json")
	store, err := NewFileRecordStore(path, nil)
	require.NoError(t, err)
	return store, path
}

func TestNewFileRecordStoreMissingFile(t *testing.T) {
	store, _ := tempStore(t)
	assert.Zero(t, store.Count())
}

func TestNewFileRecordStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileRecordStore(path, nil)
	require.Error(t, err)
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypePersistence))
}

func TestAddGetUpdate(t *testing.T) {
	ctx := context.Background()
	store, _ := tempStore(t)

	r := fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-100001").Build()
	require.NoError(t, store.Add(ctx, r))

	got, err := store.Get(ctx, "SRV-2024-100001")
	require.NoError(t, err)
	assert.Equal(t, r.ServiceID, got.ServiceID)

	// Duplicate IDs conflict.
	err = store.Add(ctx, fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-100001").Build())
	require.Error(t, err)
	assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeConflict))

	// Update replaces in place.
	updated := *r
	updated.District = "Kurnool"
	require.NoError(t, store.Update(ctx, &updated))
	got, err = store.Get(ctx, r.ServiceID)
	require.NoError(t, err)
	assert.Equal(t, "Kurnool", got.District)

	_, err = store.Get(ctx, "SRV-2024-999999")
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)
	assert.ErrorIs(t, store.Update(ctx, fixtures.NewRecordBuilder(t).Build()), domainErrors.ErrRecordNotFound)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, path := tempStore(t)

	submitted := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	records := []*record.ServiceRecord{
		fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-200001").WithSubmittedAt(submitted).Build(),
		fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-200002").WithSubmittedAt(submitted).CompletedAt(submitted.Add(8 * 24 * time.Hour)).Build(),
	}
	require.NoError(t, store.AddBatch(ctx, records))

	// Reopen from disk.
	reopened, err := NewFileRecordStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())

	got, err := reopened.Get(ctx, "SRV-2024-200002")
	require.NoError(t, err)
	assert.Equal(t, record.StatusDelayed, got.Status)
	require.NotNil(t, got.ActualCompletion)
	assert.True(t, got.ActualCompletion.Equal(submitted.Add(8*24*time.Hour)))
	assert.True(t, got.SubmittedAt.Equal(submitted))
}

func TestAddBatchUpserts(t *testing.T) {
	ctx := context.Background()
	store, _ := tempStore(t)

	r := fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-300001").WithDistrict("Guntur").Build()
	require.NoError(t, store.Add(ctx, r))

	replacement := fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-300001").WithDistrict("Nellore").Build()
	fresh := fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-300002").Build()
	require.NoError(t, store.AddBatch(ctx, []*record.ServiceRecord{replacement, fresh}))

	assert.Equal(t, 2, store.Count())
	got, err := store.Get(ctx, "SRV-2024-300001")
	require.NoError(t, err)
	assert.Equal(t, "Nellore", got.District)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store, _ := tempStore(t)

	require.NoError(t, store.AddBatch(ctx, []*record.ServiceRecord{
		fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-400001").WithDistrict("Guntur").WithStage(record.StageVRO).Build(),
		fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-400002").WithDistrict("Guntur").Build(),
		fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-400003").WithDistrict("Nellore").Build(),
	}))

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	guntur, err := store.List(ctx, ListFilter{District: "Guntur"})
	require.NoError(t, err)
	assert.Len(t, guntur, 2)

	vro, err := store.List(ctx, ListFilter{District: "Guntur", Stage: record.StageVRO})
	require.NoError(t, err)
	require.Len(t, vro, 1)
	assert.Equal(t, "SRV-2024-400001", vro[0].ServiceID)

	none, err := store.List(ctx, ListFilter{District: "Kadapa"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, _ := tempStore(t)
	require.NoError(t, store.Add(ctx, fixtures.NewRecordBuilder(t).WithServiceID("SRV-2024-500001").Build()))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	all[0] = nil

	again, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, again[0])
	assert.Equal(t, "SRV-2024-500001", again[0].ServiceID)
}
