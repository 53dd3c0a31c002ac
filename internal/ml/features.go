package ml

import (
	"time"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// FeatureCount is the fixed width of every derived feature vector.
const FeatureCount = 13

// DefaultDelayRate is used for the historical delay-rate features when no
// aggregate is known for the record's district/mandal/service.
const DefaultDelayRate = 0.15

// DefaultWorkload is the stage-load estimate used when the caller supplies
// none.
const DefaultWorkload = 0.5

// AuxFeatures carries the caller-supplied context features: a workload
// estimate for the record's current stage and the historical delay rates
// for its district, mandal and service code.
type AuxFeatures struct {
	Workload        float64
	DistrictRate    float64
	MandalRate      float64
	ServiceCodeRate float64
}

// DefaultAux returns the serving-time defaults for records with no known
// history.
func DefaultAux() AuxFeatures {
	return AuxFeatures{
		Workload:        DefaultWorkload,
		DistrictRate:    DefaultDelayRate,
		MandalRate:      DefaultDelayRate,
		ServiceCodeRate: DefaultDelayRate,
	}
}

// Derive converts a service record into the fixed-order feature vector.
// Calendar features come from now, not from the submission time, so the
// vector for a fixed record shifts as scoring time moves. A record with no
// submission timestamp is treated as submitted now.
func Derive(r *record.ServiceRecord, now time.Time, enc *EncoderSet, aux AuxFeatures) []float64 {
	submitted := r.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}
	daysElapsed := now.Sub(submitted).Hours() / 24

	// Monday=0 .. Sunday=6
	dayOfWeek := (int(now.Weekday()) + 6) % 7
	isWeekend := 0.0
	if dayOfWeek >= 5 {
		isWeekend = 1.0
	}

	v := make([]float64, 0, FeatureCount)
	v = append(v,
		daysElapsed,
		float64(enc.Stage.Encode(string(r.CurrentStage))),
		float64(enc.District.Encode(r.District)),
		float64(enc.Mandal.Encode(r.Mandal)),
		float64(enc.ServiceCode.Encode(r.ServiceCode)),
		float64(enc.Category.Encode(string(r.Category))),
		aux.Workload,
		aux.DistrictRate,
		aux.MandalRate,
		aux.ServiceCodeRate,
		float64(dayOfWeek),
		float64(now.Month()),
		isWeekend,
	)
	return v
}
