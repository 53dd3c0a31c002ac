package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Training  TrainingConfig  `koanf:"training"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	RecordsPath string `koanf:"records_path"`
	ModelPath   string `koanf:"model_path"`
}

type TrainingConfig struct {
	TestFraction float64 `koanf:"test_fraction"`
	Seed         int64   `koanf:"seed"`
	LearningRate float64 `koanf:"learning_rate"`
	Epochs       int     `koanf:"epochs"`
	MinRecords   int     `koanf:"min_records"`

	SyntheticSamples int `koanf:"synthetic_samples"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SampleRate   float64 `koanf:"sample_rate"`
	Enabled      bool    `koanf:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

// Load builds the configuration from defaults, an optional YAML file and
// GSD_-prefixed environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			RecordsPath: "data/services.json",
			ModelPath:   "data/model_bundle.json",
		},
		Training: TrainingConfig{
			TestFraction:     0.2,
			Seed:             42,
			LearningRate:     0.1,
			Epochs:           500,
			MinRecords:       10,
			SyntheticSamples: 1000,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRate:   0.1,
			Enabled:      false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	} else {
		_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())
	}

	// Override with environment variables
	if err := k.Load(env.Provider("GSD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "GSD_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
