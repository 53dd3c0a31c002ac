package training

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/ml"
	"github.com/gramseva/service-delivery-backend/internal/service/prediction"
	"github.com/gramseva/service-delivery-backend/internal/testutil/fixtures"
)

type memoryModelStore struct {
	saved   *ml.Bundle
	saveErr error
}

func (m *memoryModelStore) Save(_ context.Context, b *ml.Bundle) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = b
	return nil
}

func (m *memoryModelStore) Load(context.Context) (*ml.Bundle, error) {
	if m.saved == nil {
		return nil, errors.ErrModelNotFound
	}
	return m.saved, nil
}

func TestTrainInsufficientRecords(t *testing.T) {
	svc := NewService(&memoryModelStore{}, nil, DefaultParams(), nil, nil)

	_, err := svc.Train(context.Background(), fixtures.CompletedBatch(t, 5, 2))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeTrainingData, appErr.Type)
	assert.Equal(t, "insufficient_records", appErr.Details["reason"])
}

func TestTrainIgnoresInFlightRecords(t *testing.T) {
	svc := NewService(&memoryModelStore{}, nil, DefaultParams(), nil, nil)

	// Only in-flight records: nothing to train on.
	records := []*record.ServiceRecord{
		fixtures.OverdueRecord(t),
		fixtures.NewRecordBuilder(t).Build(),
	}
	_, err := svc.Train(context.Background(), records)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "insufficient_records", appErr.Details["reason"])
}

func TestTrainMissingTimestamps(t *testing.T) {
	svc := NewService(&memoryModelStore{}, nil, DefaultParams(), nil, nil)

	done := time.Now().UTC()
	records := fixtures.CompletedBatch(t, 20, 5)
	records = append(records, &record.ServiceRecord{
		ServiceID:        "SRV-2024-990000",
		ActualCompletion: &done,
	})

	_, err := svc.Train(context.Background(), records)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "missing_timestamps", appErr.Details["reason"])
}

func TestTrainProducesAndPersistsBundle(t *testing.T) {
	store := &memoryModelStore{}
	holder := prediction.NewBundleHolder(nil)
	svc := NewService(store, holder, DefaultParams(), nil, nil)

	records := GenerateSyntheticRecords(200, 42, time.Now().UTC())
	eval, err := svc.Train(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 160, eval.TrainSamples)
	assert.Equal(t, 40, eval.TestSamples)
	// A quarter of the records are delayed; the majority-class floor is 0.75
	// minus split noise.
	assert.Greater(t, eval.Accuracy, 0.6)

	require.NotNil(t, store.saved)
	assert.Same(t, store.saved, holder.Get())
	assert.NotEmpty(t, store.saved.Version)
	require.NotNil(t, store.saved.Classifier)
	require.NotNil(t, store.saved.Regressor)
	require.NotNil(t, store.saved.Encoders)
	assert.True(t, store.saved.Encoders.District.Knows("Guntur"))
}

func TestTrainSaveFailureLeavesHolderUntouched(t *testing.T) {
	store := &memoryModelStore{saveErr: fmt.Errorf("disk full")}
	holder := prediction.NewBundleHolder(nil)
	svc := NewService(store, holder, DefaultParams(), nil, nil)

	_, err := svc.Train(context.Background(), GenerateSyntheticRecords(50, 1, time.Now().UTC()))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypePersistence, appErr.Type)
	assert.Nil(t, holder.Get())
}

func TestSplitDeterministic(t *testing.T) {
	train1, test1 := split(100, 0.2, 42)
	train2, test2 := split(100, 0.2, 42)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, test1, 20)
	assert.Len(t, train1, 80)

	// Different seed, different split.
	_, test3 := split(100, 0.2, 7)
	assert.NotEqual(t, test1, test3)
}

func TestSplitSmallSets(t *testing.T) {
	train, test := split(3, 0.2, 42)
	// At least one test sample, never the whole set.
	assert.Len(t, test, 1)
	assert.Len(t, train, 2)
}

func TestComputeAggregates(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(district string, delayed bool) *record.ServiceRecord {
		expected := base.Add(7 * 24 * time.Hour)
		actual := expected.Add(-time.Hour)
		if delayed {
			actual = expected.Add(24 * time.Hour)
		}
		return &record.ServiceRecord{
			ServiceCode:        "CAT-B-001",
			District:           district,
			Mandal:             "Urban",
			SubmittedAt:        base,
			CurrentStage:       record.StageVRO,
			SLADays:            7,
			ExpectedCompletion: expected,
			ActualCompletion:   &actual,
		}
	}

	agg := ComputeAggregates([]*record.ServiceRecord{
		mk("Guntur", true),
		mk("Guntur", true),
		mk("Guntur", false),
		mk("Guntur", false),
		mk("Nellore", false),
	})

	assert.InDelta(t, 0.5, agg.DistrictRates["Guntur"], 0.001)
	assert.InDelta(t, 0.0, agg.DistrictRates["Nellore"], 0.001)
	assert.InDelta(t, 0.4, agg.MandalRates["Urban"], 0.001)
	assert.InDelta(t, 0.4, agg.ServiceRates["CAT-B-001"], 0.001)
	assert.InDelta(t, 0.04, agg.Workloads["VRO|Guntur"], 0.001)
}

func TestAggregatesAuxForFallback(t *testing.T) {
	agg := ComputeAggregates(nil)
	aux := agg.AuxFor(&record.ServiceRecord{District: "Unknown", Mandal: "Unknown", ServiceCode: "X"})
	assert.Equal(t, ml.DefaultAux(), aux)

	var nilAgg *Aggregates
	assert.Equal(t, ml.DefaultAux(), nilAgg.AuxFor(&record.ServiceRecord{}))
}

func TestGenerateSyntheticRecords(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := GenerateSyntheticRecords(100, 42, now)
	require.Len(t, records, 100)

	delayed := 0
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("SRV-2024-%06d", i), r.ServiceID)
		assert.Regexp(t, `^CAT-B-\d{3}$`, r.ServiceCode)
		assert.Contains(t, syntheticDistricts, r.District)
		assert.Contains(t, syntheticMandals, r.Mandal)
		assert.Contains(t, []int{3, 7, 15}, r.SLADays)
		require.NotNil(t, r.ActualCompletion)
		assert.True(t, r.SubmittedAt.After(now.AddDate(0, 0, -366)))

		if r.Status == record.StatusDelayed {
			delayed++
			assert.True(t, r.ActualCompletion.After(r.ExpectedCompletion))
		} else {
			assert.Equal(t, record.StatusCompleted, r.Status)
			assert.False(t, r.ActualCompletion.After(r.ExpectedCompletion))
		}
	}
	// Roughly a quarter delayed.
	assert.InDelta(t, 25, delayed, 10)
}

func TestGenerateSyntheticRecordsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := GenerateSyntheticRecords(50, 42, now)
	b := GenerateSyntheticRecords(50, 42, now)
	for i := range a {
		assert.Equal(t, a[i].ServiceID, b[i].ServiceID)
		assert.Equal(t, a[i].District, b[i].District)
		assert.Equal(t, a[i].SubmittedAt, b[i].SubmittedAt)
		assert.Equal(t, a[i].Status, b[i].Status)
	}
}
