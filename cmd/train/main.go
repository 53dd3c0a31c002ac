package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/gramseva/service-delivery-backend/internal/infrastructure/config"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/repository"
	"github.com/gramseva/service-delivery-backend/internal/infrastructure/telemetry"
	"github.com/gramseva/service-delivery-backend/internal/service/training"
)

// Offline training entry point: loads historical records from the store
// (or generates a synthetic bootstrap set), fits the model bundle and
// persists it for the API to load.
func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		synthetic  = flag.Bool("synthetic", false, "Generate synthetic records when the store is empty")
		samples    = flag.Int("samples", 0, "Synthetic sample count (defaults to the configured value)")
	)
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

	ctx := context.Background()

	store, err := repository.NewFileRecordStore(cfg.Store.RecordsPath, logger)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	records, err := store.GetAll(ctx)
	if err != nil {
		log.Fatalf("Failed to read record store: %v", err)
	}

	if len(records) == 0 && *synthetic {
		n := *samples
		if n <= 0 {
			n = cfg.Training.SyntheticSamples
		}
		records = training.GenerateSyntheticRecords(n, cfg.Training.Seed, time.Now().UTC())
		if err := store.AddBatch(ctx, records); err != nil {
			log.Fatalf("Failed to persist synthetic records: %v", err)
		}
		logger.Info("generated synthetic training records", "count", n)
	}

	modelStore := repository.NewFileModelStore(cfg.Store.ModelPath, logger)
	trainer := training.NewService(modelStore, nil, training.Params{
		TestFraction: cfg.Training.TestFraction,
		Seed:         cfg.Training.Seed,
		LearningRate: cfg.Training.LearningRate,
		Epochs:       cfg.Training.Epochs,
		MinRecords:   cfg.Training.MinRecords,
	}, logger, nil)

	eval, err := trainer.Train(ctx, records)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	fmt.Printf("Training complete (%d train / %d test samples)\n", eval.TrainSamples, eval.TestSamples)
	fmt.Printf("  classifier: accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f\n",
		eval.Accuracy, eval.Precision, eval.Recall, eval.F1)
	fmt.Printf("  regressor:  mae=%.2fh r2=%.3f\n", eval.MAE, eval.R2)
}
