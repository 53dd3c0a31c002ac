package record

import (
	"fmt"
	"time"
)

// WorkflowStage is a discrete step a service request passes through sequentially.
type WorkflowStage string

const (
	StageApplication      WorkflowStage = "APPLICATION"
	StageVRO              WorkflowStage = "VRO"
	StageRevenueInspector WorkflowStage = "REVENUE_INSPECTOR"
	StageTahsildar        WorkflowStage = "TAHSILDAR"
	StageFinalProcessing  WorkflowStage = "FINAL_PROCESSING"
	StageDelivered        WorkflowStage = "DELIVERED"
)

// Stages returns the workflow stages in processing order.
func Stages() []WorkflowStage {
	return []WorkflowStage{
		StageApplication,
		StageVRO,
		StageRevenueInspector,
		StageTahsildar,
		StageFinalProcessing,
		StageDelivered,
	}
}

// IsValid reports whether s is a known workflow stage.
func (s WorkflowStage) IsValid() bool {
	switch s {
	case StageApplication, StageVRO, StageRevenueInspector,
		StageTahsildar, StageFinalProcessing, StageDelivered:
		return true
	}
	return false
}

// Next returns the stage that follows s, or s itself when terminal.
func (s WorkflowStage) Next() WorkflowStage {
	stages := Stages()
	for i, st := range stages {
		if st == s && i < len(stages)-1 {
			return stages[i+1]
		}
	}
	return s
}

// Status is the lifecycle state of a service request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDelayed    Status = "DELAYED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid reports whether st is a known status.
func (st Status) IsValid() bool {
	switch st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelayed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the request has finished its lifecycle.
func (st Status) IsTerminal() bool {
	return st == StatusCompleted || st == StatusDelayed || st == StatusCancelled
}

// Category is the fee/priority class of a service request.
type Category string

const (
	CategoryA Category = "CATEGORY_A"
	CategoryB Category = "CATEGORY_B"
	CategoryC Category = "CATEGORY_C"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c == CategoryA || c == CategoryB || c == CategoryC
}

// ServiceRecord is one workflow instance of a government service request.
// The record store is the sole mutator; analytics and prediction treat
// records as read-only within a single call.
type ServiceRecord struct {
	ServiceID          string        `json:"service_id"`
	ServiceCode        string        `json:"service_code"`
	ServiceName        string        `json:"service_name,omitempty"`
	Category           Category      `json:"category"`
	District           string        `json:"district"`
	Mandal             string        `json:"mandal"`
	SubmittedAt        time.Time     `json:"submitted_at"`
	CurrentStage       WorkflowStage `json:"current_stage"`
	Status             Status        `json:"status"`
	SLADays            int           `json:"sla_days"`
	ExpectedCompletion time.Time     `json:"expected_completion"`
	ActualCompletion   *time.Time    `json:"actual_completion,omitempty"`
}

// NewServiceRecord creates a record at submission time. Expected completion
// defaults to submitted_at + sla_days unless later overridden.
func NewServiceRecord(serviceID, serviceCode string, category Category, district, mandal string, slaDays int) (*ServiceRecord, error) {
	if serviceID == "" {
		return nil, fmt.Errorf("service_id is required")
	}
	if serviceCode == "" {
		return nil, fmt.Errorf("service_code is required")
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if slaDays < 1 {
		return nil, fmt.Errorf("sla_days must be >= 1, got %d", slaDays)
	}

	now := clock.Now().UTC()
	return &ServiceRecord{
		ServiceID:          serviceID,
		ServiceCode:        serviceCode,
		Category:           category,
		District:           district,
		Mandal:             mandal,
		SubmittedAt:        now,
		CurrentStage:       StageApplication,
		Status:             StatusPending,
		SLADays:            slaDays,
		ExpectedCompletion: now.Add(time.Duration(slaDays) * 24 * time.Hour),
	}, nil
}

// Advance moves the record to the next workflow stage.
func (r *ServiceRecord) Advance() error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("cannot advance %s record", r.Status)
	}
	r.CurrentStage = r.CurrentStage.Next()
	r.Status = StatusInProgress
	return nil
}

// Complete terminates the record at the given time. Status becomes
// COMPLETED or DELAYED depending on the SLA outcome.
func (r *ServiceRecord) Complete(at time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("record already terminal: %s", r.Status)
	}
	at = at.UTC()
	r.ActualCompletion = &at
	r.CurrentStage = StageDelivered
	if at.After(r.ExpectedCompletion) {
		r.Status = StatusDelayed
	} else {
		r.Status = StatusCompleted
	}
	return nil
}

// Cancel terminates the record without completion.
func (r *ServiceRecord) Cancel() error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("record already terminal: %s", r.Status)
	}
	r.Status = StatusCancelled
	return nil
}

// IsDelayed reports SLA breach as of the package clock.
func (r *ServiceRecord) IsDelayed() bool {
	return r.IsDelayedAt(clock.Now())
}

// IsDelayedAt reports SLA breach as of now: a completed record is delayed
// iff it finished after its expected completion; an in-flight record is
// delayed iff now is past its expected completion.
func (r *ServiceRecord) IsDelayedAt(now time.Time) bool {
	if r.ExpectedCompletion.IsZero() {
		return false
	}
	if r.ActualCompletion != nil {
		return r.ActualCompletion.After(r.ExpectedCompletion)
	}
	return now.After(r.ExpectedCompletion)
}

// DelayHoursAt returns hours past the SLA deadline as of now, floored at 0.
// For completed records the actual completion time is used instead of now.
func (r *ServiceRecord) DelayHoursAt(now time.Time) float64 {
	if r.ExpectedCompletion.IsZero() {
		return 0
	}
	ref := now
	if r.ActualCompletion != nil {
		ref = *r.ActualCompletion
	}
	h := ref.Sub(r.ExpectedCompletion).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// TurnaroundHours returns actual submission-to-completion hours, or false
// when the record is missing either timestamp.
func (r *ServiceRecord) TurnaroundHours() (float64, bool) {
	if r.ActualCompletion == nil || r.SubmittedAt.IsZero() {
		return 0, false
	}
	return r.ActualCompletion.Sub(r.SubmittedAt).Hours(), true
}

// AgeHoursAt returns hours elapsed since submission as of now.
func (r *ServiceRecord) AgeHoursAt(now time.Time) float64 {
	if r.SubmittedAt.IsZero() {
		return 0
	}
	h := now.Sub(r.SubmittedAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// DelayMetrics is the per-record SLA summary surfaced alongside a record.
type DelayMetrics struct {
	IsDelayed       bool    `json:"is_delayed"`
	DelayHours      float64 `json:"delay_hours"`
	DelayPercentage float64 `json:"delay_percentage"`
	DaysRemaining   float64 `json:"days_remaining"`
}

// Metrics computes the SLA summary for the record as of now.
func (r *ServiceRecord) Metrics(now time.Time) DelayMetrics {
	m := DelayMetrics{
		IsDelayed:  r.IsDelayedAt(now),
		DelayHours: r.DelayHoursAt(now),
	}
	if r.SLADays > 0 {
		m.DelayPercentage = m.DelayHours / (float64(r.SLADays) * 24) * 100
	}
	if r.ActualCompletion == nil && !r.ExpectedCompletion.IsZero() {
		m.DaysRemaining = r.ExpectedCompletion.Sub(now).Hours() / 24
		if m.DaysRemaining < 0 {
			m.DaysRemaining = 0
		}
	}
	return m
}
