package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// basicResponseWriter captures the status code for logging and metrics
type basicResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *basicResponseWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *basicResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, envelope ResponseEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, version string) {
	writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta: ResponseMeta{
			RequestID: requestIDFrom(r),
			Timestamp: time.Now().UTC(),
			Version:   version,
		},
	})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string][]string, version string) {
	writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
			Fields:  fields,
		},
		Meta: ResponseMeta{
			RequestID: requestIDFrom(r),
			Timestamp: time.Now().UTC(),
			Version:   version,
		},
	})
}
