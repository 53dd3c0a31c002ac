package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/metrics"
	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// Default assessment values returned when no trained model is available.
// Prediction always produces a structurally valid result; a missing model
// is degraded mode, not a failure.
const (
	defaultProbability = 0.3
	defaultConfidence  = 0.5
)

// districtRateFactorThreshold triggers the elevated-district contributing
// factor.
const districtRateFactorThreshold = 0.2

// Service scores service records for SLA breach risk. Stateless per call;
// the model bundle is shared read-only through the holder.
type Service struct {
	holder  *BundleHolder
	rates   RateSource
	logger  *slog.Logger
	metrics *metrics.Registry
	clock   record.Clock
}

// NewService creates a prediction service. rates and reg may be nil; the
// service then falls back to default context features and skips metric
// recording.
func NewService(holder *BundleHolder, rates RateSource, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		holder:  holder,
		rates:   rates,
		logger:  logger,
		metrics: reg,
		clock:   record.RealClock{},
	}
}

// SetClock injects a clock for tests.
func (s *Service) SetClock(c record.Clock) {
	s.clock = c
}

// Assess produces a risk assessment for a single record. With no trained
// model loaded it returns the default assessment instead of an error.
func (s *Service) Assess(ctx context.Context, r *record.ServiceRecord) (*RiskAssessment, error) {
	if r == nil {
		return nil, fmt.Errorf("record is required")
	}
	started := time.Now()
	now := s.clock.Now().UTC()

	bundle := s.holder.Get()
	if bundle == nil || bundle.Classifier == nil || bundle.Regressor == nil || bundle.Encoders == nil {
		s.logger.DebugContext(ctx, "no model bundle loaded, returning default assessment",
			"service_id", r.ServiceID)
		return s.defaultAssessment(r, now), nil
	}

	aux := ml.DefaultAux()
	if s.rates != nil {
		aux = s.rates.AuxFor(r)
	}
	features := ml.Derive(r, now, bundle.Encoders, aux)

	probability := bundle.Classifier.PredictProba(features)
	delayHours := bundle.Regressor.Predict(features)
	if delayHours < 0 {
		delayHours = 0
	}

	a := &RiskAssessment{
		AssessmentID:        uuid.New(),
		ServiceID:           r.ServiceID,
		DelayProbability:    probability,
		PredictedDelayHours: delayHours,
		RiskTier:            TierFor(probability, delayHours),
		Confidence:          confidenceFor(probability),
		ContributingFactors: s.contributingFactors(r, now, aux),
		AssessedAt:          now,
	}
	if !r.ExpectedCompletion.IsZero() {
		predicted := r.ExpectedCompletion.Add(time.Duration(delayHours * float64(time.Hour)))
		a.PredictedCompletion = &predicted
	}

	if s.metrics != nil {
		s.metrics.RecordAssessment(ctx, string(a.RiskTier), probability)
		s.metrics.AssessmentDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000.0)
	}
	return a, nil
}

// AssessBatch filters records, assesses each and aggregates tier counts.
func (s *Service) AssessBatch(ctx context.Context, records []*record.ServiceRecord, filter BatchFilter) (*BatchResult, error) {
	now := s.clock.Now().UTC()
	result := &BatchResult{
		Assessments: []*RiskAssessment{},
		Summary: BatchSummary{
			TierCounts: map[RiskTier]int{
				TierLow: 0, TierMedium: 0, TierHigh: 0, TierCritical: 0,
			},
		},
		GeneratedAt: now,
	}
	if bundle := s.holder.Get(); bundle != nil {
		result.ModelVersion = bundle.Version
	}

	var probSum float64
	for _, r := range records {
		if r == nil || !filter.Matches(r) {
			continue
		}
		a, err := s.Assess(ctx, r)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping record in batch assessment",
				"service_id", r.ServiceID, "error", err)
			continue
		}
		result.Assessments = append(result.Assessments, a)
		result.Summary.TierCounts[a.RiskTier]++
		probSum += a.DelayProbability
		if a.DelayProbability >= 0.5 {
			result.Summary.PredictedDelays++
		}
	}

	result.Summary.TotalAssessed = len(result.Assessments)
	if result.Summary.TotalAssessed > 0 {
		result.Summary.AverageDelayProbability = probSum / float64(result.Summary.TotalAssessed)
	}
	if s.metrics != nil {
		s.metrics.RecordBatchAssessment(ctx, result.Summary.TotalAssessed)
	}
	return result, nil
}

// defaultAssessment is the degraded-mode result used when no model is
// loaded.
func (s *Service) defaultAssessment(r *record.ServiceRecord, now time.Time) *RiskAssessment {
	return &RiskAssessment{
		AssessmentID:        uuid.New(),
		ServiceID:           r.ServiceID,
		DelayProbability:    defaultProbability,
		PredictedDelayHours: 0,
		RiskTier:            TierLow,
		Confidence:          defaultConfidence,
		ContributingFactors: []string{"Model not trained"},
		AssessedAt:          now,
	}
}

// confidenceFor maps probability to a display confidence in [0.5, 0.95].
// A UX heuristic, not a statistical confidence interval.
func confidenceFor(probability float64) float64 {
	c := 0.5 + probability*0.45
	if c > 0.95 {
		return 0.95
	}
	return c
}

// contributingFactors generates ordered, deduplicated human-readable
// reasons from simple rule checks, independent of model internals.
func (s *Service) contributingFactors(r *record.ServiceRecord, now time.Time, aux ml.AuxFeatures) []string {
	factors := []string{}
	seen := map[string]struct{}{}
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			factors = append(factors, f)
		}
	}

	if r.SLADays > 0 {
		ageDays := r.AgeHoursAt(now) / 24
		if ageDays > 0.7*float64(r.SLADays) {
			add(fmt.Sprintf("Request age %.1f days is close to the %d-day SLA limit", ageDays, r.SLADays))
		}
	}
	if r.CurrentStage == record.StageVRO || r.CurrentStage == record.StageRevenueInspector {
		add(fmt.Sprintf("Currently at %s, a known bottleneck stage", r.CurrentStage))
	}
	if aux.DistrictRate > districtRateFactorThreshold {
		add(fmt.Sprintf("District %s has an elevated historical delay rate (%.0f%%)", r.District, aux.DistrictRate*100))
	}
	return factors
}
