package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewPersistenceError("model_save", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "model_save")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "model_save", err.Details["operation"])
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
		retryable  bool
	}{
		{"validation", NewValidationError("BAD", "bad input"), ErrorTypeValidation, 400, false},
		{"business", NewBusinessError("RULE", "rule broken"), ErrorTypeBusiness, 422, false},
		{"not found", NewNotFoundError("widget"), ErrorTypeNotFound, 404, false},
		{"conflict", NewConflictError("duplicate"), ErrorTypeConflict, 409, false},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, 500, true},
		{"training data", NewTrainingDataError("insufficient_records", "too few"), ErrorTypeTrainingData, 422, false},
		{"persistence", NewPersistenceError("load", fmt.Errorf("io")), ErrorTypePersistence, 500, true},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeBusiness, 429, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
		})
	}
}

func TestHelpers(t *testing.T) {
	err := NewTrainingDataError("missing_timestamps", "bad table")

	assert.True(t, IsType(err, ErrorTypeTrainingData))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 422, GetStatusCode(err))

	plain := fmt.Errorf("plain")
	assert.False(t, IsType(plain, ErrorTypeInternal))
	assert.Equal(t, 500, GetStatusCode(plain))

	wrapped := Wrap(err, "training failed")
	require.Error(t, wrapped)
	assert.True(t, IsType(wrapped, ErrorTypeTrainingData))
	assert.Nil(t, Wrap(nil, "ignored"))
}
