package training

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/telemetry"
	"github.com/gramseva/service-delivery-backend/internal/metrics"
	"github.com/gramseva/service-delivery-backend/internal/ml"
	"github.com/gramseva/service-delivery-backend/internal/service/prediction"
)

// Params controls the training procedure. The seed fixes the train/test
// split for reproducibility.
type Params struct {
	TestFraction float64
	Seed         int64
	LearningRate float64
	Epochs       int
	MinRecords   int
}

// DefaultParams returns the standard training parameters.
func DefaultParams() Params {
	return Params{
		TestFraction: 0.2,
		Seed:         42,
		LearningRate: 0.1,
		Epochs:       500,
		MinRecords:   10,
	}
}

// Service fits the delay classifier and duration regressor from completed
// historical records, evaluates them on a held-out split and persists the
// resulting bundle.
type Service struct {
	artifacts ModelStore
	holder    *prediction.BundleHolder
	params    Params
	logger    *slog.Logger
	metrics   *metrics.Registry
	tracer    *telemetry.OpenTelemetryTracer
	clock     record.Clock
}

// NewService creates a training service. holder may be nil when no
// in-process predictor needs the freshly trained bundle; reg may be nil.
func NewService(artifacts ModelStore, holder *prediction.BundleHolder, params Params, logger *slog.Logger, reg *metrics.Registry) *Service {
	if params.TestFraction <= 0 || params.TestFraction >= 1 {
		params.TestFraction = DefaultParams().TestFraction
	}
	if params.LearningRate <= 0 {
		params.LearningRate = DefaultParams().LearningRate
	}
	if params.Epochs <= 0 {
		params.Epochs = DefaultParams().Epochs
	}
	if params.MinRecords <= 0 {
		params.MinRecords = DefaultParams().MinRecords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		artifacts: artifacts,
		holder:    holder,
		params:    params,
		logger:    logger,
		metrics:   reg,
		tracer:    telemetry.NewOpenTelemetryTracer("training"),
		clock:     record.RealClock{},
	}
}

// SetClock injects a clock for tests.
func (s *Service) SetClock(c record.Clock) {
	s.clock = c
}

// Train builds the labeled training table from completed records, fits
// both model heads, evaluates them, persists the bundle atomically and
// swaps it into the live holder.
func (s *Service) Train(ctx context.Context, records []*record.ServiceRecord) (*ml.EvaluationMetrics, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, "training", "train")
	defer span.End()

	start := s.clock.Now()

	completed := make([]*record.ServiceRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.ActualCompletion == nil {
			continue
		}
		if r.SubmittedAt.IsZero() || r.ExpectedCompletion.IsZero() {
			err := errors.NewTrainingDataError("missing_timestamps",
				fmt.Sprintf("record %s is completed but missing submission or expected-completion timestamp", r.ServiceID))
			telemetry.WithSpanError(span, err)
			return nil, err
		}
		completed = append(completed, r)
	}
	if len(completed) < s.params.MinRecords {
		s.recordRun(ctx, start, 0, false)
		err := errors.NewTrainingDataError("insufficient_records",
			fmt.Sprintf("need at least %d completed records to train, got %d", s.params.MinRecords, len(completed)))
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	// Ground-truth labels.
	labels := make([]float64, len(completed))
	delays := make([]float64, len(completed))
	for i, r := range completed {
		if r.ActualCompletion.After(r.ExpectedCompletion) {
			labels[i] = 1
		}
		h := r.ActualCompletion.Sub(r.ExpectedCompletion).Hours()
		if h < 0 {
			h = 0
		}
		delays[i] = h
	}

	encoders := fitEncoders(completed)
	aggregates := ComputeAggregates(completed)

	now := s.clock.Now().UTC()
	X := make([][]float64, len(completed))
	for i, r := range completed {
		X[i] = ml.Derive(r, now, encoders, aggregates.AuxFor(r))
	}

	trainIdx, testIdx := split(len(completed), s.params.TestFraction, s.params.Seed)
	trainX, trainY, trainD := gather(X, labels, delays, trainIdx)
	testX, testY, testD := gather(X, labels, delays, testIdx)

	classifier := ml.FitLogistic(trainX, trainY, s.params.LearningRate, s.params.Epochs)
	regressor := ml.FitLinear(trainX, trainD, s.params.LearningRate/2, s.params.Epochs)

	eval := &ml.EvaluationMetrics{
		TrainSamples: len(trainX),
		TestSamples:  len(testX),
	}
	eval.Accuracy, eval.Precision, eval.Recall, eval.F1 = ml.EvaluateClassifier(classifier, testX, testY)
	eval.MAE, eval.R2 = ml.EvaluateRegressor(regressor, testX, testD)

	bundle := &ml.Bundle{
		Version:    now.Format("20060102-150405"),
		TrainedAt:  now,
		Classifier: classifier,
		Regressor:  regressor,
		Encoders:   encoders,
	}
	if s.artifacts != nil {
		if err := s.artifacts.Save(ctx, bundle); err != nil {
			s.logger.ErrorContext(ctx, "model bundle save failed",
				"version", bundle.Version, "error", err)
			s.recordRun(ctx, start, 0, false)
			wrapped := errors.NewPersistenceError("model_save", err)
			telemetry.WithSpanError(span, wrapped)
			return nil, wrapped
		}
	}
	if s.holder != nil {
		s.holder.Swap(bundle)
	}

	s.logger.InfoContext(ctx, "training run complete",
		"version", bundle.Version,
		"train_samples", eval.TrainSamples,
		"test_samples", eval.TestSamples,
		"accuracy", eval.Accuracy,
		"mae", eval.MAE,
	)
	s.recordRun(ctx, start, eval.Accuracy, true)
	s.tracer.SetAttributes(span, map[string]interface{}{
		"model.version":      bundle.Version,
		"training.samples":   eval.TrainSamples,
		"evaluation.samples": eval.TestSamples,
	})
	if s.metrics != nil {
		s.metrics.SetModelTrainedAt(bundle.TrainedAt)
	}
	return eval, nil
}

func (s *Service) recordRun(ctx context.Context, start time.Time, accuracy float64, success bool) {
	if s.metrics != nil {
		s.metrics.RecordTrainingRun(ctx, s.clock.Now().Sub(start), accuracy, success)
	}
}

func fitEncoders(records []*record.ServiceRecord) *ml.EncoderSet {
	stages := make([]string, len(records))
	districts := make([]string, len(records))
	mandals := make([]string, len(records))
	codes := make([]string, len(records))
	categories := make([]string, len(records))
	for i, r := range records {
		stages[i] = string(r.CurrentStage)
		districts[i] = r.District
		mandals[i] = r.Mandal
		codes[i] = r.ServiceCode
		categories[i] = string(r.Category)
	}
	return &ml.EncoderSet{
		Stage:       ml.FitEncoder(stages),
		District:    ml.FitEncoder(districts),
		Mandal:      ml.FitEncoder(mandals),
		ServiceCode: ml.FitEncoder(codes),
		Category:    ml.FitEncoder(categories),
	}
}

// split partitions [0, n) into train and test index sets using a seeded
// shuffle.
func split(n int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	testSize := int(float64(n) * testFraction)
	if testSize < 1 {
		testSize = 1
	}
	if testSize >= n {
		testSize = n - 1
	}
	return perm[testSize:], perm[:testSize]
}

func gather(X [][]float64, y, d []float64, idx []int) ([][]float64, []float64, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]float64, len(idx))
	gd := make([]float64, len(idx))
	for i, j := range idx {
		gx[i] = X[j]
		gy[i] = y[j]
		gd[i] = d[j]
	}
	return gx, gy, gd
}
