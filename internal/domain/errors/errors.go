package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBusiness     ErrorType = "business"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeTrainingData ErrorType = "training_data"
	ErrorTypePersistence  ErrorType = "persistence"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "CONFLICT",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewTrainingDataError marks a fatal defect in the historical training
// table. The trainer cannot proceed without well-formed data.
func NewTrainingDataError(reason, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeTrainingData,
		Code:       "TRAINING_DATA_INVALID",
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
		Details:    map[string]interface{}{"reason": reason},
	}
}

// NewPersistenceError wraps a model artifact or record store failure.
func NewPersistenceError(operation string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistence,
		Code:       "PERSISTENCE_FAILURE",
		Message:    fmt.Sprintf("persistence %s failed", operation),
		Cause:      cause,
		Retryable:  true,
		StatusCode: 500,
		Details:    map[string]interface{}{"operation": operation},
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    message,
		Retryable:  true,
		StatusCode: 429,
	}
}

// Predefined common errors
var (
	ErrInvalidInput     = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrRecordNotFound   = NewNotFoundError("service record")
	ErrModelNotFound    = NewNotFoundError("model bundle")
	ErrInsufficientData = NewTrainingDataError("insufficient_records", "Not enough completed records to train on")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
