package prediction

import (
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// RiskTier is the coarse bucket summarizing delay likelihood and magnitude.
type RiskTier string

const (
	TierLow      RiskTier = "LOW"
	TierMedium   RiskTier = "MEDIUM"
	TierHigh     RiskTier = "HIGH"
	TierCritical RiskTier = "CRITICAL"
)

// TierFor assigns the risk tier from delay probability and predicted delay
// hours. Thresholds are evaluated in order, first match wins.
func TierFor(probability, delayHours float64) RiskTier {
	switch {
	case probability >= 0.75 || delayHours >= 48:
		return TierCritical
	case probability >= 0.60 || delayHours >= 24:
		return TierHigh
	case probability >= 0.40 || delayHours >= 12:
		return TierMedium
	default:
		return TierLow
	}
}

// RiskAssessment is the prediction output for a single service record.
type RiskAssessment struct {
	AssessmentID        uuid.UUID  `json:"assessment_id"`
	ServiceID           string     `json:"service_id"`
	DelayProbability    float64    `json:"delay_probability"`
	PredictedDelayHours float64    `json:"predicted_delay_hours"`
	RiskTier            RiskTier   `json:"risk_level"`
	Confidence          float64    `json:"confidence"`
	ContributingFactors []string   `json:"contributing_factors"`
	PredictedCompletion *time.Time `json:"predicted_completion_date,omitempty"`
	AssessedAt          time.Time  `json:"assessed_at"`
}

// BatchSummary aggregates a batch of assessments.
type BatchSummary struct {
	TotalAssessed           int              `json:"total_assessed"`
	PredictedDelays         int              `json:"predicted_delays"`
	AverageDelayProbability float64          `json:"average_delay_probability"`
	TierCounts              map[RiskTier]int `json:"risk_distribution"`
}

// BatchResult is the output of assessing a filtered batch of records.
type BatchResult struct {
	Assessments  []*RiskAssessment `json:"assessments"`
	Summary      BatchSummary      `json:"summary"`
	ModelVersion string            `json:"model_version"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// BatchFilter selects records for batch assessment by exact match; zero
// fields match everything.
type BatchFilter struct {
	ServiceID   string
	ServiceCode string
	District    string
	Mandal      string
	Category    record.Category
}

// Matches reports whether r passes the filter.
func (f BatchFilter) Matches(r *record.ServiceRecord) bool {
	if f.ServiceID != "" && r.ServiceID != f.ServiceID {
		return false
	}
	if f.ServiceCode != "" && r.ServiceCode != f.ServiceCode {
		return false
	}
	if f.District != "" && r.District != f.District {
		return false
	}
	if f.Mandal != "" && r.Mandal != f.Mandal {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	return true
}

// RateSource supplies historical context features for a record. Serving
// falls back to ml.DefaultAux when none is available.
type RateSource interface {
	AuxFor(r *record.ServiceRecord) ml.AuxFeatures
}
