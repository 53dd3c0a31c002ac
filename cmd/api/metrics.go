package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gramseva/service-delivery-backend/internal/metrics"
)

// Prometheus metric definitions for the API binary

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsd",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gsd",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)

	recordStoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gsd",
			Subsystem: "store",
			Name:      "records_total",
			Help:      "Number of service records in the store",
		},
	)

	modelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gsd",
			Subsystem: "model",
			Name:      "loaded",
			Help:      "Whether a trained model bundle is currently loaded (0/1)",
		},
	)
)

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// InstrumentHTTPHandler wraps an HTTP handler with metrics collection,
// feeding both the Prometheus vectors and the OTel registry.
func InstrumentHTTPHandler(handlerName string, reg *metrics.Registry, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		handler.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		status := statusCodeClass(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, handlerName, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, handlerName).Observe(duration.Seconds())
		if reg != nil {
			reg.RecordAPIRequest(r.Context(), float64(duration.Milliseconds()), r.Method, r.URL.Path, wrapped.statusCode)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// statusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx)
func statusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// UpdateRecordStoreSize updates the record store size gauge
func UpdateRecordStoreSize(size int) {
	recordStoreSize.Set(float64(size))
}

// UpdateModelLoaded updates the model loaded gauge
func UpdateModelLoaded(loaded bool) {
	if loaded {
		modelLoaded.Set(1)
		return
	}
	modelLoaded.Set(0)
}
