package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/metrics"
)

// Recommendation thresholds. A stage above the delay threshold gets a
// staffing recommendation; a district below the compliance threshold gets
// a workload-balancing recommendation.
const (
	stageDelayThreshold         = 20.0
	districtComplianceThreshold = 80.0
	trendWindowSize             = 5
	trendMinRecords             = 10
	trendIncreasingFactor       = 1.1
	trendDecreasingFactor       = 0.9
)

// Service aggregates service records into SLA-compliance metrics, stage
// and district bottleneck tables and ranked root causes. Stateless; each
// call operates on the batch it is given.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Registry
	clock   record.Clock
}

// NewService creates an analytics service. reg may be nil.
func NewService(logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		metrics: reg,
		clock:   record.RealClock{},
	}
}

// SetClock injects a clock for tests.
func (s *Service) SetClock(c record.Clock) {
	s.clock = c
}

// Analyze filters the batch and computes the full report. An empty
// filtered set returns a zeroed report with empty sub-tables, never an
// error.
func (s *Service) Analyze(ctx context.Context, records []*record.ServiceRecord, filter Filter) (*Report, error) {
	start := s.clock.Now()
	now := start.UTC()

	filtered := make([]*record.ServiceRecord, 0, len(records))
	for _, r := range records {
		if r != nil && filter.Matches(r) {
			filtered = append(filtered, r)
		}
	}

	report := &Report{
		ReportID:    uuid.New(),
		GeneratedAt: now,
		RootCauseAnalysis: RootCauseAnalysis{
			PrimaryCauses:    []PrimaryCause{},
			StageBottlenecks: []StageDelayMetrics{},
			DistrictHotspots: []DistrictMetrics{},
			ServiceTrends:    []ServiceMetrics{},
			Recommendations:  []string{},
		},
	}
	if filter.StartDate != nil {
		report.PeriodStart = *filter.StartDate
	}
	if filter.EndDate != nil {
		report.PeriodEnd = *filter.EndDate
	}
	if len(filtered) == 0 {
		s.recordRun(ctx, start, report)
		return report, nil
	}

	report.TotalServices = len(filtered)
	var tatSum float64
	var tatCount int
	for _, r := range filtered {
		if r.IsDelayedAt(now) {
			report.TotalDelayed++
		}
		if tat, ok := r.TurnaroundHours(); ok {
			tatSum += tat
			tatCount++
		}
		if filter.StartDate == nil && !r.SubmittedAt.IsZero() {
			if report.PeriodStart.IsZero() || r.SubmittedAt.Before(report.PeriodStart) {
				report.PeriodStart = r.SubmittedAt
			}
		}
		if filter.EndDate == nil && !r.SubmittedAt.IsZero() {
			if report.PeriodEnd.IsZero() || r.SubmittedAt.After(report.PeriodEnd) {
				report.PeriodEnd = r.SubmittedAt
			}
		}
	}
	report.OverallSLACompliance = float64(report.TotalServices-report.TotalDelayed) / float64(report.TotalServices) * 100
	if tatCount > 0 {
		report.AverageTATHours = tatSum / float64(tatCount)
	}

	report.RootCauseAnalysis = s.rootCauseAnalysis(filtered, now)
	report.Trends = monthlyTrend(filtered, now)

	s.logger.DebugContext(ctx, "analytics report generated",
		"report_id", report.ReportID,
		"total_services", report.TotalServices,
		"total_delayed", report.TotalDelayed,
	)
	s.recordRun(ctx, start, report)
	return report, nil
}

func (s *Service) recordRun(ctx context.Context, start time.Time, report *Report) {
	if s.metrics == nil {
		return
	}
	elapsed := float64(s.clock.Now().Sub(start).Microseconds()) / 1000
	s.metrics.RecordAnalyticsRun(ctx, elapsed, report.TotalServices, report.OverallSLACompliance)
}

// groupBy partitions records by key, preserving first-appearance order of
// the keys.
func groupBy(records []*record.ServiceRecord, key func(*record.ServiceRecord) string) ([]string, map[string][]*record.ServiceRecord) {
	order := []string{}
	groups := map[string][]*record.ServiceRecord{}
	for _, r := range records {
		k := key(r)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	return order, groups
}

func (s *Service) rootCauseAnalysis(records []*record.ServiceRecord, now time.Time) RootCauseAnalysis {
	rca := RootCauseAnalysis{
		PrimaryCauses:    []PrimaryCause{},
		StageBottlenecks: stageBottlenecks(records, now),
		DistrictHotspots: districtHotspots(records, now),
		ServiceTrends:    serviceTrends(records, now),
		Recommendations:  []string{},
	}

	if len(rca.StageBottlenecks) > 0 {
		top := rca.StageBottlenecks[0]
		for _, m := range rca.StageBottlenecks[1:] {
			if m.DelayPercentage > top.DelayPercentage {
				top = m
			}
		}
		rca.PrimaryCauses = append(rca.PrimaryCauses, PrimaryCause{
			Cause:            fmt.Sprintf("High delays at %s stage", top.Stage),
			ImpactPercentage: top.DelayPercentage,
			AffectedServices: top.DelayedRequests,
		})
		if top.DelayPercentage > stageDelayThreshold {
			rca.Recommendations = append(rca.Recommendations,
				fmt.Sprintf("Increase staffing/resources at %s stage", top.Stage))
		}
	}

	if len(rca.DistrictHotspots) > 0 {
		top := rca.DistrictHotspots[0]
		for _, m := range rca.DistrictHotspots[1:] {
			if m.DelayedServices > top.DelayedServices {
				top = m
			}
		}
		rca.PrimaryCauses = append(rca.PrimaryCauses, PrimaryCause{
			Cause:            fmt.Sprintf("High delays in %s district", top.District),
			ImpactPercentage: float64(top.DelayedServices) / float64(len(records)) * 100,
			AffectedServices: top.DelayedServices,
		})
		if top.SLACompliancePercentage < districtComplianceThreshold {
			rca.Recommendations = append(rca.Recommendations,
				fmt.Sprintf("Implement workload balancing in %s district", top.District))
		}
	}

	return rca
}

func stageBottlenecks(records []*record.ServiceRecord, now time.Time) []StageDelayMetrics {
	order, groups := groupBy(records, func(r *record.ServiceRecord) string { return string(r.CurrentStage) })
	rows := make([]StageDelayMetrics, 0, len(order))
	for _, stage := range order {
		group := groups[stage]
		row := StageDelayMetrics{Stage: stage, TotalRequests: len(group)}

		delayHours := []float64{}
		for _, r := range group {
			if r.IsDelayedAt(now) {
				row.DelayedRequests++
				delayHours = append(delayHours, r.DelayHoursAt(now))
			}
		}
		row.DelayPercentage = float64(row.DelayedRequests) / float64(row.TotalRequests) * 100
		if len(delayHours) > 0 {
			row.AverageDelayHours = mean(delayHours)
			row.MedianDelayHours = median(delayHours)
			row.MaxDelayHours = maxOf(delayHours)
		}
		rows = append(rows, row)
	}
	return rows
}

func districtHotspots(records []*record.ServiceRecord, now time.Time) []DistrictMetrics {
	order, groups := groupBy(records, func(r *record.ServiceRecord) string { return r.District })
	rows := make([]DistrictMetrics, 0, len(order))
	for _, district := range order {
		group := groups[district]
		row := DistrictMetrics{District: district, TotalServices: len(group)}

		var tatSum float64
		var tatCount int
		for _, r := range group {
			if r.IsDelayedAt(now) {
				row.DelayedServices++
			}
			if tat, ok := r.TurnaroundHours(); ok {
				tatSum += tat
				tatCount++
			}
		}
		row.CompletedOnTime = row.TotalServices - row.DelayedServices
		row.SLACompliancePercentage = float64(row.CompletedOnTime) / float64(row.TotalServices) * 100
		if tatCount > 0 {
			row.AverageTATHours = tatSum / float64(tatCount)
		}
		row.DelayTrend = districtTrend(group, now)
		rows = append(rows, row)
	}
	return rows
}

// districtTrend compares the delay rate of the first vs last few records
// in submission order. A coarse heuristic, only applied once the district
// has enough history.
func districtTrend(group []*record.ServiceRecord, now time.Time) TrendDirection {
	if len(group) <= trendMinRecords {
		return TrendStable
	}
	sorted := make([]*record.ServiceRecord, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	older := delayRate(sorted[:trendWindowSize], now)
	recent := delayRate(sorted[len(sorted)-trendWindowSize:], now)
	switch {
	case recent > older*trendIncreasingFactor:
		return TrendIncreasing
	case recent < older*trendDecreasingFactor:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func serviceTrends(records []*record.ServiceRecord, now time.Time) []ServiceMetrics {
	order, groups := groupBy(records, func(r *record.ServiceRecord) string { return r.ServiceCode })
	rows := make([]ServiceMetrics, 0, len(order))
	for _, code := range order {
		group := groups[code]
		row := ServiceMetrics{
			ServiceCode:   code,
			ServiceName:   group[0].ServiceName,
			TotalRequests: len(group),
		}

		var delayed int
		var tatSum float64
		var tatCount int
		for _, r := range group {
			if r.IsDelayedAt(now) {
				delayed++
			}
			if tat, ok := r.TurnaroundHours(); ok {
				tatSum += tat
				tatCount++
			}
		}
		row.DelayRate = float64(delayed) / float64(row.TotalRequests)
		row.SLACompliancePercentage = float64(row.TotalRequests-delayed) / float64(row.TotalRequests) * 100
		if tatCount > 0 {
			row.AverageCompletionHours = tatSum / float64(tatCount)
		}
		rows = append(rows, row)
	}
	return rows
}

// monthlyTrend groups by submission month and compares the first and last
// months' delay rates. The change is in percentage points.
func monthlyTrend(records []*record.ServiceRecord, now time.Time) Trends {
	type bucket struct {
		delayed, total int
	}
	months := map[string]*bucket{}
	keys := []string{}
	for _, r := range records {
		if r.SubmittedAt.IsZero() {
			continue
		}
		k := r.SubmittedAt.Format("2006-01")
		b, ok := months[k]
		if !ok {
			b = &bucket{}
			months[k] = b
			keys = append(keys, k)
		}
		b.total++
		if r.IsDelayedAt(now) {
			b.delayed++
		}
	}
	if len(keys) < 2 {
		return Trends{}
	}
	sort.Strings(keys)

	first := months[keys[0]]
	last := months[keys[len(keys)-1]]
	olderRate := float64(first.delayed) / float64(first.total)
	recentRate := float64(last.delayed) / float64(last.total)

	t := Trends{DelayRateChange: (recentRate - olderRate) * 100}
	if recentRate > olderRate {
		t.DelayTrend = TrendIncreasing
	} else {
		t.DelayTrend = TrendDecreasing
	}
	return t
}

func delayRate(group []*record.ServiceRecord, now time.Time) float64 {
	if len(group) == 0 {
		return 0
	}
	delayed := 0
	for _, r := range group {
		if r.IsDelayedAt(now) {
			delayed++
		}
	}
	return float64(delayed) / float64(len(group))
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
