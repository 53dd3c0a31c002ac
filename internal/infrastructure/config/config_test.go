package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "data/services.json", cfg.Store.RecordsPath)
	assert.Equal(t, "data/model_bundle.json", cfg.Store.ModelPath)
	assert.Equal(t, 0.2, cfg.Training.TestFraction)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 500, cfg.Training.Epochs)
	assert.Equal(t, 1000, cfg.Training.SyntheticSamples)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9090
training:
  epochs: 250
  synthetic_samples: 500
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Training.Epochs)
	assert.Equal(t, 500, cfg.Training.SyntheticSamples)
	// Untouched keys keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.2, cfg.Training.TestFraction)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GSD_SERVER_PORT", "7070")
	t.Setenv("GSD_ENVIRONMENT", "staging")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Environment)
}
