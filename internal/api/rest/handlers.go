package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/gramseva/service-delivery-backend/internal/domain/errors"
	"github.com/gramseva/service-delivery-backend/internal/domain/record"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/repository"
	"github.com/gramseva/service-delivery-backend/internal/ml"
	"github.com/gramseva/service-delivery-backend/internal/service/analytics"
	"github.com/gramseva/service-delivery-backend/internal/service/prediction"
	"github.com/gramseva/service-delivery-backend/internal/service/training"
)

// RecordStore is the record collection consumed by the API layer.
type RecordStore interface {
	GetAll(ctx context.Context) ([]*record.ServiceRecord, error)
	Get(ctx context.Context, serviceID string) (*record.ServiceRecord, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*record.ServiceRecord, error)
	Add(ctx context.Context, r *record.ServiceRecord) error
	Update(ctx context.Context, r *record.ServiceRecord) error
	AddBatch(ctx context.Context, records []*record.ServiceRecord) error
}

// Predictor scores records for delay risk.
type Predictor interface {
	Assess(ctx context.Context, r *record.ServiceRecord) (*prediction.RiskAssessment, error)
	AssessBatch(ctx context.Context, records []*record.ServiceRecord, filter prediction.BatchFilter) (*prediction.BatchResult, error)
}

// Trainer fits and persists the model bundle.
type Trainer interface {
	Train(ctx context.Context, records []*record.ServiceRecord) (*ml.EvaluationMetrics, error)
}

// Analyzer computes aggregate reports.
type Analyzer interface {
	Analyze(ctx context.Context, records []*record.ServiceRecord, filter analytics.Filter) (*analytics.Report, error)
}

// Handler carries the service dependencies for all routes.
type Handler struct {
	store     RecordStore
	predictor Predictor
	trainer   Trainer
	analyzer  Analyzer

	validator        *validator.Validate
	logger           *slog.Logger
	version          string
	syntheticSamples int
}

// NewHandler wires the API handler.
func NewHandler(store RecordStore, predictor Predictor, trainer Trainer, analyzer Analyzer, logger *slog.Logger, version string, syntheticSamples int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if syntheticSamples <= 0 {
		syntheticSamples = 1000
	}
	return &Handler{
		store:            store,
		predictor:        predictor,
		trainer:          trainer,
		analyzer:         analyzer,
		validator:        newValidator(),
		logger:           logger,
		version:          version,
		syntheticSamples: syntheticSamples,
	}
}

func (h *Handler) decodeAndValidate(r *http.Request, dst interface{}) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return domainErrors.NewValidationError("MALFORMED_BODY", "Request body is not valid JSON")
		}
	}
	return h.validator.Struct(dst)
}

// ServiceWithMetrics is a record enriched with its current SLA summary.
type ServiceWithMetrics struct {
	*record.ServiceRecord
	DelayMetrics record.DelayMetrics `json:"delay_metrics"`
}

func withMetrics(records []*record.ServiceRecord, now time.Time) []ServiceWithMetrics {
	out := make([]ServiceWithMetrics, len(records))
	for i, r := range records {
		out[i] = ServiceWithMetrics{ServiceRecord: r, DelayMetrics: r.Metrics(now)}
	}
	return out
}

// handleCreateService registers a new service request.
func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, h.version)
		return
	}

	rec, err := record.NewServiceRecord(req.ServiceID, req.ServiceCode,
		record.Category(req.Category), req.District, req.Mandal, req.SLADays)
	if err != nil {
		handleError(w, r, domainErrors.NewValidationError("INVALID_RECORD", err.Error()), h.version)
		return
	}
	rec.ServiceName = req.ServiceName

	if err := h.store.Add(r.Context(), rec); err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusCreated, rec, h.version)
}

// handleListServices lists records matching query-parameter filters.
func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ListFilter{
		District:    q.Get("district"),
		Mandal:      q.Get("mandal"),
		ServiceCode: q.Get("service_code"),
		Category:    record.Category(q.Get("category")),
		Status:      record.Status(q.Get("status")),
		Stage:       record.WorkflowStage(q.Get("stage")),
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, withMetrics(records, time.Now().UTC()), h.version)
}

// handleGetService returns one record with its SLA summary.
func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, ServiceWithMetrics{
		ServiceRecord: rec,
		DelayMetrics:  rec.Metrics(time.Now().UTC()),
	}, h.version)
}

// handleUpdateService applies a partial update to a stored record.
func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, h.version)
		return
	}

	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}

	updated := *rec
	if req.CurrentStage != "" {
		updated.CurrentStage = record.WorkflowStage(req.CurrentStage)
		if !updated.Status.IsTerminal() {
			updated.Status = record.StatusInProgress
		}
	}
	if req.Status != "" {
		updated.Status = record.Status(req.Status)
	}
	if req.ActualCompletion != nil {
		if err := updated.Complete(*req.ActualCompletion); err != nil {
			handleError(w, r, domainErrors.NewBusinessError("INVALID_TRANSITION", err.Error()), h.version)
			return
		}
	}

	if err := h.store.Update(r.Context(), &updated); err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, &updated, h.version)
}

// handlePredict runs a batch risk assessment over the filtered store.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, h.version)
		return
	}

	records, err := h.store.GetAll(r.Context())
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}

	result, err := h.predictor.AssessBatch(r.Context(), records, prediction.BatchFilter{
		ServiceID:   req.ServiceID,
		ServiceCode: req.ServiceCode,
		District:    req.District,
		Mandal:      req.Mandal,
		Category:    record.Category(req.Category),
	})
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, result, h.version)
}

// handleAnalytics generates an aggregate report over the filtered store.
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, h.version)
		return
	}

	records, err := h.store.GetAll(r.Context())
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), records, analytics.Filter{
		District:      req.District,
		Mandal:        req.Mandal,
		ServiceCode:   req.ServiceCode,
		Category:      record.Category(req.Category),
		WorkflowStage: record.WorkflowStage(req.WorkflowStage),
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, report, h.version)
}

// handleTrainingRun retrains the model from stored history, optionally
// bootstrapping an empty store with synthetic records.
func (h *Handler) handleTrainingRun(w http.ResponseWriter, r *http.Request) {
	var req TrainingRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err, h.version)
		return
	}

	records, err := h.store.GetAll(r.Context())
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}

	if len(records) == 0 && req.UseSynthetic {
		n := req.SyntheticSamples
		if n == 0 {
			n = h.syntheticSamples
		}
		records = training.GenerateSyntheticRecords(n, 42, time.Now().UTC())
		if err := h.store.AddBatch(r.Context(), records); err != nil {
			handleError(w, r, err, h.version)
			return
		}
		h.logger.InfoContext(r.Context(), "bootstrapped store with synthetic records", "count", n)
	}

	eval, err := h.trainer.Train(r.Context(), records)
	if err != nil {
		handleError(w, r, err, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, eval, h.version)
}

// handleHealth is the liveness endpoint.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "healthy"}, h.version)
}

// handleReady reports readiness: the store must be reachable.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.GetAll(r.Context()); err != nil {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, "NOT_READY",
			"record store unavailable", nil, h.version)
		return
	}
	writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"}, h.version)
}
