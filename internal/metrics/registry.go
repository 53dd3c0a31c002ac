package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Prediction Domain Metrics
	AssessmentDuration   metric.Float64Histogram
	AssessmentCounter    metric.Int64Counter
	DelayProbability     metric.Float64Histogram
	BatchSize            metric.Int64Histogram
	PredictionsPerSecond metric.Float64ObservableGauge

	// Training Domain Metrics
	TrainingDuration   metric.Float64Histogram
	TrainingRunCounter metric.Int64Counter
	ModelAccuracy      metric.Float64ObservableGauge
	ModelAgeSeconds    metric.Float64ObservableGauge

	// Analytics Domain Metrics
	AnalyticsDuration metric.Float64Histogram
	ReportCounter     metric.Int64Counter
	RecordsAnalyzed   metric.Int64Histogram
	SLACompliance     metric.Float64ObservableGauge

	// System Metrics
	RecordStoreSize    metric.Int64ObservableGauge
	APIRequestDuration metric.Float64Histogram
	APIRequestCounter  metric.Int64Counter

	// State for observable metrics
	mu                   sync.RWMutex
	predictionsProcessed int64
	lastPredictionCount  int64
	lastPredictionTime   time.Time
	lastAccuracy         float64
	modelTrainedAt       time.Time
	lastCompliance       float64
	recordStoreSize      int64
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{
		meter:              meter,
		lastPredictionTime: time.Now(),
	}

	if err := r.initPredictionMetrics(); err != nil {
		return nil, err
	}

	if err := r.initTrainingMetrics(); err != nil {
		return nil, err
	}

	if err := r.initAnalyticsMetrics(); err != nil {
		return nil, err
	}

	if err := r.initSystemMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// initPredictionMetrics initializes prediction domain metrics
func (r *Registry) initPredictionMetrics() error {
	var err error

	r.AssessmentDuration, err = r.meter.Float64Histogram(
		"gsd.prediction.assessment_duration",
		metric.WithDescription("Duration of a single risk assessment in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100),
	)
	if err != nil {
		return err
	}

	r.AssessmentCounter, err = r.meter.Int64Counter(
		"gsd.prediction.assessment_total",
		metric.WithDescription("Total number of risk assessments produced"),
	)
	if err != nil {
		return err
	}

	r.DelayProbability, err = r.meter.Float64Histogram(
		"gsd.prediction.delay_probability",
		metric.WithDescription("Distribution of predicted delay probabilities"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9),
	)
	if err != nil {
		return err
	}

	r.BatchSize, err = r.meter.Int64Histogram(
		"gsd.prediction.batch_size",
		metric.WithDescription("Number of records per batch assessment"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.PredictionsPerSecond, err = r.meter.Float64ObservableGauge(
		"gsd.prediction.throughput_per_second",
		metric.WithDescription("Current assessment throughput per second"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.Lock()
			defer r.mu.Unlock()

			now := time.Now()
			elapsed := now.Sub(r.lastPredictionTime).Seconds()
			if elapsed > 0 {
				rate := float64(r.predictionsProcessed-r.lastPredictionCount) / elapsed
				o.Observe(rate)
				r.lastPredictionCount = r.predictionsProcessed
				r.lastPredictionTime = now
			}
			return nil
		}),
	)

	return err
}

// initTrainingMetrics initializes training domain metrics
func (r *Registry) initTrainingMetrics() error {
	var err error

	r.TrainingDuration, err = r.meter.Float64Histogram(
		"gsd.training.run_duration",
		metric.WithDescription("Training run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return err
	}

	r.TrainingRunCounter, err = r.meter.Int64Counter(
		"gsd.training.run_total",
		metric.WithDescription("Total number of training runs"),
	)
	if err != nil {
		return err
	}

	r.ModelAccuracy, err = r.meter.Float64ObservableGauge(
		"gsd.training.model_accuracy",
		metric.WithDescription("Held-out accuracy of the most recently trained classifier"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.lastAccuracy)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.ModelAgeSeconds, err = r.meter.Float64ObservableGauge(
		"gsd.training.model_age_seconds",
		metric.WithDescription("Age of the currently loaded model bundle in seconds"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if !r.modelTrainedAt.IsZero() {
				o.Observe(time.Since(r.modelTrainedAt).Seconds())
			}
			return nil
		}),
	)

	return err
}

// initAnalyticsMetrics initializes analytics domain metrics
func (r *Registry) initAnalyticsMetrics() error {
	var err error

	r.AnalyticsDuration, err = r.meter.Float64Histogram(
		"gsd.analytics.report_duration",
		metric.WithDescription("Analytics report generation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.ReportCounter, err = r.meter.Int64Counter(
		"gsd.analytics.report_total",
		metric.WithDescription("Total number of analytics reports generated"),
	)
	if err != nil {
		return err
	}

	r.RecordsAnalyzed, err = r.meter.Int64Histogram(
		"gsd.analytics.records_analyzed",
		metric.WithDescription("Number of records per analytics report"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.SLACompliance, err = r.meter.Float64ObservableGauge(
		"gsd.analytics.sla_compliance_percent",
		metric.WithDescription("Overall SLA compliance from the most recent report"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.lastCompliance)
			return nil
		}),
	)

	return err
}

// initSystemMetrics initializes system-level metrics
func (r *Registry) initSystemMetrics() error {
	var err error

	r.RecordStoreSize, err = r.meter.Int64ObservableGauge(
		"gsd.system.record_store_size",
		metric.WithDescription("Number of service records in the store"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.recordStoreSize)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.APIRequestDuration, err = r.meter.Float64Histogram(
		"gsd.api.request_duration",
		metric.WithDescription("API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.APIRequestCounter, err = r.meter.Int64Counter(
		"gsd.api.request_total",
		metric.WithDescription("Total number of API requests"),
	)

	return err
}

// Helper methods for updating observable metric values

// SetRecordStoreSize sets the record store size
func (r *Registry) SetRecordStoreSize(size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordStoreSize = size
}

// SetModelTrainedAt records when the current bundle was trained
func (r *Registry) SetModelTrainedAt(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelTrainedAt = t
}

// Helper methods for recording metrics with common attribute patterns

// RecordAssessment records a single risk assessment
func (r *Registry) RecordAssessment(ctx context.Context, tier string, probability float64) {
	attrs := []attribute.KeyValue{
		attribute.String("risk_tier", tier),
	}

	r.AssessmentCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.DelayProbability.Record(ctx, probability)

	r.mu.Lock()
	r.predictionsProcessed++
	r.mu.Unlock()
}

// RecordBatchAssessment records the size of a batch assessment
func (r *Registry) RecordBatchAssessment(ctx context.Context, size int) {
	r.BatchSize.Record(ctx, int64(size))
}

// RecordTrainingRun records a training run outcome
func (r *Registry) RecordTrainingRun(ctx context.Context, duration time.Duration, accuracy float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}

	r.TrainingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	r.TrainingRunCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if success {
		r.mu.Lock()
		r.lastAccuracy = accuracy
		r.mu.Unlock()
	}
}

// RecordAnalyticsRun records an analytics report generation
func (r *Registry) RecordAnalyticsRun(ctx context.Context, durationMS float64, total int, compliance float64) {
	r.AnalyticsDuration.Record(ctx, durationMS)
	r.ReportCounter.Add(ctx, 1)
	r.RecordsAnalyzed.Record(ctx, int64(total))

	r.mu.Lock()
	r.lastCompliance = compliance
	r.mu.Unlock()
}

// RecordAPIRequest records API request metrics
func (r *Registry) RecordAPIRequest(ctx context.Context, duration float64, method, path string, statusCode int) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	r.APIRequestDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	r.APIRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
