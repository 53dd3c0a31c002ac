package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/gramseva/service-delivery-backend/internal/domain/errors"
)

// handleError maps domain and validation errors onto the response
// envelope. Unknown errors become opaque 500s.
func handleError(w http.ResponseWriter, r *http.Request, err error, version string) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		writeErrorResponse(w, r, http.StatusBadRequest, "VALIDATION_FAILED",
			"Request validation failed", formatValidationErrors(verr), version)
		return
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		writeErrorResponse(w, r, appErr.StatusCode, appErr.Code, appErr.Message, nil, version)
		return
	}

	writeErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An internal error occurred", nil, version)
}

// formatValidationErrors turns validator errors into a field -> messages
// map.
func formatValidationErrors(verr validator.ValidationErrors) map[string][]string {
	fields := make(map[string][]string, len(verr))
	for _, fe := range verr {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "field is required"
		case "min":
			msg = "value is below the minimum " + fe.Param()
		case "max":
			msg = "value is above the maximum " + fe.Param()
		case "category":
			msg = "must be one of CATEGORY_A, CATEGORY_B, CATEGORY_C"
		case "workflow_stage":
			msg = "unknown workflow stage"
		case "service_status":
			msg = "unknown service status"
		default:
			msg = "failed validation rule " + fe.Tag()
		}
		fields[field] = append(fields[field], msg)
	}
	return fields
}
