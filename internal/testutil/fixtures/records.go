package fixtures

import (
	"fmt"
	"testing"
	"time"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// RecordBuilder builds test ServiceRecord entities
type RecordBuilder struct {
	t           *testing.T
	serviceID   string
	serviceCode string
	serviceName string
	category    record.Category
	district    string
	mandal      string
	submittedAt time.Time
	stage       record.WorkflowStage
	status      record.Status
	slaDays     int
	completedAt *time.Time
}

var builderSeq int

// NewRecordBuilder creates a new RecordBuilder with defaults: a pending
// 7-day-SLA request submitted one day ago.
func NewRecordBuilder(t *testing.T) *RecordBuilder {
	t.Helper()
	builderSeq++
	return &RecordBuilder{
		t:           t,
		serviceID:   fmt.Sprintf("SRV-2024-%06d", builderSeq),
		serviceCode: "CAT-B-001",
		serviceName: "Income Certificate",
		category:    record.CategoryB,
		district:    "Visakhapatnam",
		mandal:      "Urban",
		submittedAt: time.Now().UTC().Add(-24 * time.Hour),
		stage:       record.StageApplication,
		status:      record.StatusPending,
		slaDays:     7,
	}
}

// WithServiceID sets the service ID
func (b *RecordBuilder) WithServiceID(id string) *RecordBuilder {
	b.serviceID = id
	return b
}

// WithServiceCode sets the service code
func (b *RecordBuilder) WithServiceCode(code string) *RecordBuilder {
	b.serviceCode = code
	return b
}

// WithCategory sets the category
func (b *RecordBuilder) WithCategory(c record.Category) *RecordBuilder {
	b.category = c
	return b
}

// WithDistrict sets the district
func (b *RecordBuilder) WithDistrict(district string) *RecordBuilder {
	b.district = district
	return b
}

// WithMandal sets the mandal
func (b *RecordBuilder) WithMandal(mandal string) *RecordBuilder {
	b.mandal = mandal
	return b
}

// WithSubmittedAt sets the submission time
func (b *RecordBuilder) WithSubmittedAt(t time.Time) *RecordBuilder {
	b.submittedAt = t
	return b
}

// WithStage sets the current workflow stage
func (b *RecordBuilder) WithStage(stage record.WorkflowStage) *RecordBuilder {
	b.stage = stage
	if stage != record.StageApplication && !b.status.IsTerminal() {
		b.status = record.StatusInProgress
	}
	return b
}

// WithStatus sets the status
func (b *RecordBuilder) WithStatus(status record.Status) *RecordBuilder {
	b.status = status
	return b
}

// WithSLADays sets the SLA window
func (b *RecordBuilder) WithSLADays(days int) *RecordBuilder {
	b.slaDays = days
	return b
}

// CompletedAt terminates the record at the given time
func (b *RecordBuilder) CompletedAt(t time.Time) *RecordBuilder {
	b.completedAt = &t
	return b
}

// Build creates the ServiceRecord
func (b *RecordBuilder) Build() *record.ServiceRecord {
	r := &record.ServiceRecord{
		ServiceID:          b.serviceID,
		ServiceCode:        b.serviceCode,
		ServiceName:        b.serviceName,
		Category:           b.category,
		District:           b.district,
		Mandal:             b.mandal,
		SubmittedAt:        b.submittedAt,
		CurrentStage:       b.stage,
		Status:             b.status,
		SLADays:            b.slaDays,
		ExpectedCompletion: b.submittedAt.Add(time.Duration(b.slaDays) * 24 * time.Hour),
	}
	if b.completedAt != nil {
		r.ActualCompletion = b.completedAt
		r.CurrentStage = record.StageDelivered
		if b.completedAt.After(r.ExpectedCompletion) {
			r.Status = record.StatusDelayed
		} else {
			r.Status = record.StatusCompleted
		}
	}
	return r
}

// Scenario helpers for common record sets

// OnTimeRecord returns a completed record that met its SLA.
func OnTimeRecord(t *testing.T) *record.ServiceRecord {
	t.Helper()
	submitted := time.Now().UTC().Add(-10 * 24 * time.Hour)
	return NewRecordBuilder(t).
		WithSubmittedAt(submitted).
		CompletedAt(submitted.Add(5 * 24 * time.Hour)).
		Build()
}

// DelayedRecord returns a completed record that breached its SLA by
// delayHours.
func DelayedRecord(t *testing.T, delayHours float64) *record.ServiceRecord {
	t.Helper()
	submitted := time.Now().UTC().Add(-30 * 24 * time.Hour)
	expected := submitted.Add(7 * 24 * time.Hour)
	return NewRecordBuilder(t).
		WithSubmittedAt(submitted).
		CompletedAt(expected.Add(time.Duration(delayHours * float64(time.Hour)))).
		Build()
}

// OverdueRecord returns an in-flight record already past its SLA.
func OverdueRecord(t *testing.T) *record.ServiceRecord {
	t.Helper()
	return NewRecordBuilder(t).
		WithSubmittedAt(time.Now().UTC().Add(-10 * 24 * time.Hour)).
		WithSLADays(7).
		WithStage(record.StageVRO).
		Build()
}

// CompletedBatch returns n completed records spread across districts with
// the given delayed count.
func CompletedBatch(t *testing.T, n, delayed int) []*record.ServiceRecord {
	t.Helper()
	districts := []string{"Visakhapatnam", "Vijayawada", "Guntur"}
	records := make([]*record.ServiceRecord, 0, n)
	for i := 0; i < n; i++ {
		submitted := time.Now().UTC().Add(-time.Duration(60+i) * 24 * time.Hour)
		b := NewRecordBuilder(t).
			WithDistrict(districts[i%len(districts)]).
			WithServiceCode(fmt.Sprintf("CAT-B-%03d", i%5+1)).
			WithSubmittedAt(submitted)
		expected := submitted.Add(7 * 24 * time.Hour)
		if i < delayed {
			b.CompletedAt(expected.Add(48 * time.Hour))
		} else {
			b.CompletedAt(expected.Add(-12 * time.Hour))
		}
		records = append(records, b.Build())
	}
	return records
}
