package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gramseva/service-delivery-backend/internal/api/rest"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/config"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/repository"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/telemetry"
	"github.com/gramseva/service-delivery-backend/internal/metrics"
	"github.com/gramseva/service-delivery-backend/internal/service/analytics"
	"github.com/gramseva/service-delivery-backend/internal/service/prediction"
	"github.com/gramseva/service-delivery-backend/internal/service/training"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "gsd-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	registry, err := metrics.NewRegistry("service-delivery-backend")
	if err != nil {
		log.Fatalf("Failed to create metrics registry: %v", err)
	}

	store, err := repository.NewFileRecordStore(cfg.Store.RecordsPath, logger)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	registry.SetRecordStoreSize(int64(store.Count()))
	UpdateRecordStoreSize(store.Count())

	modelStore := repository.NewFileModelStore(cfg.Store.ModelPath, logger)
	holder := prediction.NewBundleHolder(nil)
	if bundle, err := modelStore.Load(ctx); err != nil {
		// Serving degrades to default assessments without a model.
		logger.Warn("no model bundle loaded, serving defaults", "error", err)
		UpdateModelLoaded(false)
	} else {
		holder.Swap(bundle)
		registry.SetModelTrainedAt(bundle.TrainedAt)
		UpdateModelLoaded(true)
		logger.Info("model bundle loaded", "version", bundle.Version)
	}

	records, err := store.GetAll(ctx)
	if err != nil {
		log.Fatalf("Failed to read record store: %v", err)
	}
	rates := training.ComputeAggregates(records)

	predictor := prediction.NewService(holder, rates, logger, registry)
	trainer := training.NewService(modelStore, holder, training.Params{
		TestFraction: cfg.Training.TestFraction,
		Seed:         cfg.Training.Seed,
		LearningRate: cfg.Training.LearningRate,
		Epochs:       cfg.Training.Epochs,
		MinRecords:   cfg.Training.MinRecords,
	}, logger, registry)
	analyzer := analytics.NewService(logger, registry)

	handler := rest.NewHandler(store, predictor, trainer, analyzer, logger, cfg.Version, cfg.Training.SyntheticSamples)
	server := rest.NewServer(rest.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
	}, handler, logger)

	// Mount the Prometheus endpoint next to the instrumented API routes.
	outer := http.NewServeMux()
	outer.Handle("/metrics", MetricsHandler())
	outer.Handle("/", InstrumentHTTPHandler("api", registry, server.Handler()))
	server.SetHandler(outer)

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
