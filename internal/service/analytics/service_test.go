package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

var analysisTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService() *Service {
	svc := NewService(nil, nil)
	svc.SetClock(&record.MockClock{CurrentTime: analysisTime})
	return svc
}

// completedRecord builds a finished record submitted at the given time with
// a 7-day SLA, breached by delayHours when positive.
func completedRecord(id, district, mandal, code string, stage record.WorkflowStage, submitted time.Time, delayHours float64) *record.ServiceRecord {
	expected := submitted.Add(7 * 24 * time.Hour)
	actual := expected.Add(time.Duration(delayHours * float64(time.Hour)))
	status := record.StatusCompleted
	if delayHours > 0 {
		status = record.StatusDelayed
	}
	return &record.ServiceRecord{
		ServiceID:          id,
		ServiceCode:        code,
		ServiceName:        "Income Certificate",
		Category:           record.CategoryB,
		District:           district,
		Mandal:             mandal,
		SubmittedAt:        submitted,
		CurrentStage:       stage,
		Status:             status,
		SLADays:            7,
		ExpectedCompletion: expected,
		ActualCompletion:   &actual,
	}
}

func TestAnalyzeEmptySet(t *testing.T) {
	svc := newTestService()

	report, err := svc.Analyze(context.Background(), nil, Filter{})
	require.NoError(t, err)

	assert.Zero(t, report.TotalServices)
	assert.Zero(t, report.TotalDelayed)
	assert.Zero(t, report.OverallSLACompliance)
	assert.NotNil(t, report.RootCauseAnalysis.StageBottlenecks)
	assert.Empty(t, report.RootCauseAnalysis.StageBottlenecks)
	assert.NotNil(t, report.RootCauseAnalysis.DistrictHotspots)
	assert.NotNil(t, report.RootCauseAnalysis.ServiceTrends)
	assert.NotNil(t, report.RootCauseAnalysis.Recommendations)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", report.ReportID.String())
}

func TestAnalyzeOverallMetrics(t *testing.T) {
	svc := newTestService()
	base := analysisTime.Add(-60 * 24 * time.Hour)

	records := []*record.ServiceRecord{
		completedRecord("SRV-2024-000001", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, base, 0),
		completedRecord("SRV-2024-000002", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, base.Add(24*time.Hour), 48),
		completedRecord("SRV-2024-000003", "Nellore", "Rural", "CAT-B-002", record.StageDelivered, base.Add(48*time.Hour), 0),
		completedRecord("SRV-2024-000004", "Nellore", "Rural", "CAT-B-002", record.StageDelivered, base.Add(72*time.Hour), 24),
	}

	report, err := svc.Analyze(context.Background(), records, Filter{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalServices)
	assert.Equal(t, 2, report.TotalDelayed)
	assert.InDelta(t, 50.0, report.OverallSLACompliance, 0.001)
	// Period bounds come from the records when the filter has none.
	assert.Equal(t, base, report.PeriodStart)
	assert.Equal(t, base.Add(72*time.Hour), report.PeriodEnd)
	// Mean turnaround of 168, 216, 168, 192 hours.
	assert.InDelta(t, 186.0, report.AverageTATHours, 0.001)
}

func TestAnalyzeCountsInFlightOverdue(t *testing.T) {
	svc := newTestService()

	// In flight, 10 days past submission on a 7-day SLA.
	overdue := &record.ServiceRecord{
		ServiceID:          "SRV-2024-000010",
		ServiceCode:        "CAT-B-001",
		District:           "Guntur",
		Mandal:             "Urban",
		SubmittedAt:        analysisTime.Add(-10 * 24 * time.Hour),
		CurrentStage:       record.StageVRO,
		Status:             record.StatusInProgress,
		SLADays:            7,
		ExpectedCompletion: analysisTime.Add(-3 * 24 * time.Hour),
	}

	report, err := svc.Analyze(context.Background(), []*record.ServiceRecord{overdue}, Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalDelayed)
	assert.Zero(t, report.OverallSLACompliance)
	// No completion, so no turnaround contribution.
	assert.Zero(t, report.AverageTATHours)
}

func TestAnalyzeFilter(t *testing.T) {
	svc := newTestService()
	base := analysisTime.Add(-60 * 24 * time.Hour)

	records := []*record.ServiceRecord{
		completedRecord("SRV-2024-000001", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, base, 0),
		completedRecord("SRV-2024-000002", "Nellore", "Rural", "CAT-B-002", record.StageDelivered, base, 0),
	}

	report, err := svc.Analyze(context.Background(), records, Filter{District: "Guntur"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalServices)

	start := base.Add(-time.Hour)
	end := base.Add(time.Hour)
	report, err = svc.Analyze(context.Background(), records, Filter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalServices)
	assert.Equal(t, start, report.PeriodStart)
	assert.Equal(t, end, report.PeriodEnd)
}

func TestStageBottlenecks(t *testing.T) {
	base := analysisTime.Add(-60 * 24 * time.Hour)

	records := []*record.ServiceRecord{
		completedRecord("SRV-2024-000001", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 10),
		completedRecord("SRV-2024-000002", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 20),
		completedRecord("SRV-2024-000003", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 60),
		completedRecord("SRV-2024-000004", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 0),
	}

	rows := stageBottlenecks(records, analysisTime)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "VRO", row.Stage)
	assert.Equal(t, 4, row.TotalRequests)
	assert.Equal(t, 3, row.DelayedRequests)
	assert.InDelta(t, 75.0, row.DelayPercentage, 0.001)
	assert.InDelta(t, 30.0, row.AverageDelayHours, 0.001)
	assert.InDelta(t, 20.0, row.MedianDelayHours, 0.001)
	assert.InDelta(t, 60.0, row.MaxDelayHours, 0.001)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 15.0, median([]float64{10, 20, 30, 5}), 0.001)
	assert.InDelta(t, 20.0, median([]float64{30, 10, 20}), 0.001)
}

func TestDistrictHotspotsAndRecommendations(t *testing.T) {
	svc := newTestService()
	base := analysisTime.Add(-90 * 24 * time.Hour)

	// Guntur: 1 of 4 on time, compliance 25%, most delayed overall.
	records := []*record.ServiceRecord{
		completedRecord("SRV-2024-000001", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 30),
		completedRecord("SRV-2024-000002", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 40),
		completedRecord("SRV-2024-000003", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 50),
		completedRecord("SRV-2024-000004", "Guntur", "Urban", "CAT-B-001", record.StageVRO, base, 0),
		completedRecord("SRV-2024-000005", "Nellore", "Rural", "CAT-B-002", record.StageDelivered, base, 0),
		completedRecord("SRV-2024-000006", "Nellore", "Rural", "CAT-B-002", record.StageDelivered, base, 0),
	}

	report, err := svc.Analyze(context.Background(), records, Filter{})
	require.NoError(t, err)

	hotspots := report.RootCauseAnalysis.DistrictHotspots
	require.Len(t, hotspots, 2)
	assert.Equal(t, "Guntur", hotspots[0].District)
	assert.Equal(t, 3, hotspots[0].DelayedServices)
	assert.Equal(t, 1, hotspots[0].CompletedOnTime)
	assert.InDelta(t, 25.0, hotspots[0].SLACompliancePercentage, 0.001)
	assert.Equal(t, TrendStable, hotspots[0].DelayTrend)

	causes := report.RootCauseAnalysis.PrimaryCauses
	require.Len(t, causes, 2)
	assert.Contains(t, causes[0].Cause, "VRO stage")
	assert.Contains(t, causes[1].Cause, "Guntur district")
	assert.Equal(t, 3, causes[1].AffectedServices)
	assert.InDelta(t, 50.0, causes[1].ImpactPercentage, 0.001)

	recs := report.RootCauseAnalysis.Recommendations
	require.Len(t, recs, 2)
	assert.Contains(t, recs[0], "staffing")
	assert.Contains(t, recs[0], "VRO")
	assert.Contains(t, recs[1], "workload balancing")
	assert.Contains(t, recs[1], "Guntur")
}

func TestServiceTrends(t *testing.T) {
	base := analysisTime.Add(-60 * 24 * time.Hour)

	records := []*record.ServiceRecord{
		completedRecord("SRV-2024-000001", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, base, 30),
		completedRecord("SRV-2024-000002", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, base, 0),
	}

	rows := serviceTrends(records, analysisTime)
	require.Len(t, rows, 1)
	assert.Equal(t, "CAT-B-001", rows[0].ServiceCode)
	assert.Equal(t, "Income Certificate", rows[0].ServiceName)
	assert.Equal(t, 2, rows[0].TotalRequests)
	assert.InDelta(t, 0.5, rows[0].DelayRate, 0.001)
	assert.InDelta(t, 50.0, rows[0].SLACompliancePercentage, 0.001)
	// Mean of 198 and 168 hours.
	assert.InDelta(t, 183.0, rows[0].AverageCompletionHours, 0.001)
}

func TestDistrictTrendNeedsHistory(t *testing.T) {
	base := analysisTime.Add(-90 * 24 * time.Hour)

	// Exactly the minimum count: trend stays stable.
	group := []*record.ServiceRecord{}
	for i := 0; i < trendMinRecords; i++ {
		group = append(group, completedRecord("SRV", "Guntur", "Urban", "CAT-B-001", record.StageVRO,
			base.Add(time.Duration(i)*24*time.Hour), 30))
	}
	assert.Equal(t, TrendStable, districtTrend(group, analysisTime))

	// One more record, early window clean, late window fully delayed.
	group = []*record.ServiceRecord{}
	for i := 0; i < 11; i++ {
		delay := 0.0
		if i >= 6 {
			delay = 30
		}
		group = append(group, completedRecord("SRV", "Guntur", "Urban", "CAT-B-001", record.StageVRO,
			base.Add(time.Duration(i)*24*time.Hour), delay))
	}
	assert.Equal(t, TrendIncreasing, districtTrend(group, analysisTime))
}

func TestMonthlyTrend(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []*record.ServiceRecord{
		// January: 0 of 2 delayed.
		completedRecord("SRV-1", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, jan, 0),
		completedRecord("SRV-2", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, jan, 0),
		// March: 1 of 2 delayed.
		completedRecord("SRV-3", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, mar, 30),
		completedRecord("SRV-4", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, mar, 0),
	}

	trends := monthlyTrend(records, analysisTime)
	assert.Equal(t, TrendIncreasing, trends.DelayTrend)
	assert.InDelta(t, 50.0, trends.DelayRateChange, 0.001)
}

func TestMonthlyTrendSingleMonth(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []*record.ServiceRecord{
		completedRecord("SRV-1", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, jan, 0),
		completedRecord("SRV-2", "Guntur", "Urban", "CAT-B-001", record.StageDelivered, jan.Add(24*time.Hour), 30),
	}

	trends := monthlyTrend(records, analysisTime)
	assert.Equal(t, Trends{}, trends)
}

func TestFilterMatches(t *testing.T) {
	submitted := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := completedRecord("SRV-1", "Guntur", "Urban", "CAT-B-001", record.StageVRO, submitted, 0)

	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{District: "Guntur", WorkflowStage: record.StageVRO}.Matches(r))
	assert.False(t, Filter{Mandal: "Rural"}.Matches(r))
	assert.False(t, Filter{Category: record.CategoryA}.Matches(r))

	after := submitted.Add(time.Hour)
	assert.False(t, Filter{StartDate: &after}.Matches(r))
	assert.True(t, Filter{EndDate: &after}.Matches(r))

	// Records with no submission time pass date filters.
	blank := &record.ServiceRecord{District: "Guntur"}
	assert.True(t, Filter{StartDate: &after}.Matches(blank))
}
