package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// TrendDirection labels how a delay rate is moving. It comes from a coarse
// heuristic (first-vs-last window comparison), not a statistical test.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "INCREASING"
	TrendDecreasing TrendDirection = "DECREASING"
	TrendStable     TrendDirection = "STABLE"
)

// Filter selects records for analysis. String fields are exact-match,
// empty matches everything. Date bounds are inclusive and apply to the
// submission time; a record with no submission time passes any date
// filter.
type Filter struct {
	District      string
	Mandal        string
	ServiceCode   string
	Category      record.Category
	WorkflowStage record.WorkflowStage
	StartDate     *time.Time
	EndDate       *time.Time
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r *record.ServiceRecord) bool {
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
	if f.WorkflowStage != "" && r.CurrentStage != f.WorkflowStage {
		return false
	}
	if f.StartDate != nil || f.EndDate != nil {
		if r.SubmittedAt.IsZero() {
			return true
		}
		if f.StartDate != nil && r.SubmittedAt.Before(*f.StartDate) {
			return false
		}
		if f.EndDate != nil && r.SubmittedAt.After(*f.EndDate) {
			return false
		}
	}
	return true
}

// StageDelayMetrics is one row of the stage bottleneck table.
type StageDelayMetrics struct {
	Stage             string  `json:"stage"`
	TotalRequests     int     `json:"total_requests"`
	DelayedRequests   int     `json:"delayed_requests"`
	DelayPercentage   float64 `json:"delay_percentage"`
	AverageDelayHours float64 `json:"average_delay_hours"`
	MedianDelayHours  float64 `json:"median_delay_hours"`
	MaxDelayHours     float64 `json:"max_delay_hours"`
}

// DistrictMetrics is one row of the district hotspot table.
type DistrictMetrics struct {
	District                string         `json:"district"`
	TotalServices           int            `json:"total_services"`
	CompletedOnTime         int            `json:"completed_on_time"`
	DelayedServices         int            `json:"delayed_services"`
	SLACompliancePercentage float64        `json:"sla_compliance_percentage"`
	AverageTATHours         float64        `json:"average_tat_hours"`
	DelayTrend              TrendDirection `json:"delay_trend"`
}

// ServiceMetrics is one row of the service trend table.
type ServiceMetrics struct {
	ServiceCode             string  `json:"service_code"`
	ServiceName             string  `json:"service_name"`
	TotalRequests           int     `json:"total_requests"`
	AverageCompletionHours  float64 `json:"average_completion_hours"`
	DelayRate               float64 `json:"delay_rate"`
	SLACompliancePercentage float64 `json:"sla_compliance_percentage"`
}

// PrimaryCause is one ranked root-cause entry.
type PrimaryCause struct {
	Cause            string  `json:"cause"`
	ImpactPercentage float64 `json:"impact_percentage"`
	AffectedServices int     `json:"affected_services"`
}

// RootCauseAnalysis groups the bottleneck tables with ranked causes and
// recommendations.
type RootCauseAnalysis struct {
	PrimaryCauses    []PrimaryCause      `json:"primary_causes"`
	StageBottlenecks []StageDelayMetrics `json:"stage_bottlenecks"`
	DistrictHotspots []DistrictMetrics   `json:"district_hotspots"`
	ServiceTrends    []ServiceMetrics    `json:"service_trends"`
	Recommendations  []string            `json:"recommendations"`
}

// Trends summarizes the month-over-month delay movement. Zero value means
// fewer than two submission months were present.
type Trends struct {
	DelayTrend      TrendDirection `json:"delay_trend,omitempty"`
	DelayRateChange float64        `json:"delay_rate_change,omitempty"`
}

// Report is the full analytics output for one filtered batch.
type Report struct {
	ReportID             uuid.UUID         `json:"report_id"`
	PeriodStart          time.Time         `json:"period_start"`
	PeriodEnd            time.Time         `json:"period_end"`
	TotalServices        int               `json:"total_services"`
	TotalDelayed         int               `json:"total_delayed"`
	OverallSLACompliance float64           `json:"overall_sla_compliance"`
	AverageTATHours      float64           `json:"average_tat_hours"`
	RootCauseAnalysis    RootCauseAnalysis `json:"root_cause_analysis"`
	Trends               Trends            `json:"trends"`
	GeneratedAt          time.Time         `json:"generated_at"`
}
