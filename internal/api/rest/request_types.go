package rest

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gramseva/service-delivery-backend/internal/domain/record"
)

// newValidator builds the request validator with domain-specific rules.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", validateCategory)
	v.RegisterValidation("workflow_stage", validateWorkflowStage)
	v.RegisterValidation("service_status", validateServiceStatus)
	return v
}

func validateCategory(fl validator.FieldLevel) bool {
	return record.Category(fl.Field().String()).IsValid()
}

func validateWorkflowStage(fl validator.FieldLevel) bool {
	return record.WorkflowStage(fl.Field().String()).IsValid()
}

func validateServiceStatus(fl validator.FieldLevel) bool {
	return record.Status(fl.Field().String()).IsValid()
}

// PredictionRequest selects records for batch risk assessment. All fields
// are optional exact-match filters.
type PredictionRequest struct {
	ServiceID   string `json:"service_id,omitempty"`
	ServiceCode string `json:"service_code,omitempty"`
	District    string `json:"district,omitempty"`
	Mandal      string `json:"mandal,omitempty"`
	Category    string `json:"category,omitempty" validate:"omitempty,category"`
}

// AnalyticsRequest selects records and the time window for a report.
type AnalyticsRequest struct {
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	District      string     `json:"district,omitempty"`
	Mandal        string     `json:"mandal,omitempty"`
	ServiceCode   string     `json:"service_code,omitempty"`
	Category      string     `json:"category,omitempty" validate:"omitempty,category"`
	WorkflowStage string     `json:"workflow_stage,omitempty" validate:"omitempty,workflow_stage"`
}

// TrainingRequest triggers a training run. When the store is empty and
// UseSynthetic is set, a synthetic bootstrap dataset is generated first.
type TrainingRequest struct {
	UseSynthetic     bool `json:"use_synthetic,omitempty"`
	SyntheticSamples int  `json:"synthetic_samples,omitempty" validate:"omitempty,min=10,max=100000"`
}

// CreateServiceRequest registers a new service request in the store.
type CreateServiceRequest struct {
	ServiceID   string `json:"service_id" validate:"required"`
	ServiceCode string `json:"service_code" validate:"required"`
	ServiceName string `json:"service_name,omitempty"`
	Category    string `json:"category" validate:"required,category"`
	District    string `json:"district" validate:"required"`
	Mandal      string `json:"mandal" validate:"required"`
	SLADays     int    `json:"sla_days" validate:"required,min=1"`
}

// UpdateServiceRequest mutates a stored record. All fields are optional;
// setting ActualCompletion terminates the record.
type UpdateServiceRequest struct {
	CurrentStage     string     `json:"current_stage,omitempty" validate:"omitempty,workflow_stage"`
	Status           string     `json:"status,omitempty" validate:"omitempty,service_status"`
	ActualCompletion *time.Time `json:"actual_completion,omitempty"`
}
