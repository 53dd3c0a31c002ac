package training

import (
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/ml"
)

// Aggregates holds whole-table group means of the delay outcome per
// district, mandal and service code, plus a workload estimate per
// (stage, district) group. These feed the historical context features.
//
// During training the means include each record's own outcome; the label
// leakage is a documented proof-of-concept approximation.
type Aggregates struct {
	DistrictRates map[string]float64
	MandalRates   map[string]float64
	ServiceRates  map[string]float64
	Workloads     map[string]float64
}

func workloadKey(stage record.WorkflowStage, district string) string {
	return string(stage) + "|" + district
}

// ComputeAggregates builds aggregates from a batch of historical records.
// Delay rates are means of actual-past-expected over completed records;
// workload is group size / 100, clamped to [0, 1].
func ComputeAggregates(records []*record.ServiceRecord) *Aggregates {
	a := &Aggregates{
		DistrictRates: map[string]float64{},
		MandalRates:   map[string]float64{},
		ServiceRates:  map[string]float64{},
		Workloads:     map[string]float64{},
	}

	type tally struct{ delayed, total float64 }
	districts := map[string]*tally{}
	mandals := map[string]*tally{}
	services := map[string]*tally{}
	groupSizes := map[string]int{}

	bump := func(m map[string]*tally, key string, delayed bool) {
		t, ok := m[key]
		if !ok {
			t = &tally{}
			m[key] = t
		}
		t.total++
		if delayed {
			t.delayed++
		}
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		groupSizes[workloadKey(r.CurrentStage, r.District)]++
		if r.ActualCompletion == nil || r.ExpectedCompletion.IsZero() {
			continue
		}
		delayed := r.ActualCompletion.After(r.ExpectedCompletion)
		bump(districts, r.District, delayed)
		bump(mandals, r.Mandal, delayed)
		bump(services, r.ServiceCode, delayed)
	}

	for k, t := range districts {
		a.DistrictRates[k] = t.delayed / t.total
	}
	for k, t := range mandals {
		a.MandalRates[k] = t.delayed / t.total
	}
	for k, t := range services {
		a.ServiceRates[k] = t.delayed / t.total
	}
	for k, n := range groupSizes {
		w := float64(n) / 100
		if w > 1 {
			w = 1
		}
		a.Workloads[k] = w
	}
	return a
}

// AuxFor returns the context features for r, falling back to serving
// defaults for groups with no history. Implements the prediction
// service's rate source.
func (a *Aggregates) AuxFor(r *record.ServiceRecord) ml.AuxFeatures {
	aux := ml.DefaultAux()
	if a == nil {
		return aux
	}
	if v, ok := a.Workloads[workloadKey(r.CurrentStage, r.District)]; ok {
		aux.Workload = v
	}
	if v, ok := a.DistrictRates[r.District]; ok {
		aux.DistrictRate = v
	}
	if v, ok := a.MandalRates[r.Mandal]; ok {
		aux.MandalRate = v
	}
	if v, ok := a.ServiceRates[r.ServiceCode]; ok {
		aux.ServiceCodeRate = v
	}
	return aux
}
