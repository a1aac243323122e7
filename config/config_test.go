package config

import (
	"testing"
	"time"

	"discoverydraft-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestDefaultPipelineConfig_Valid(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate("2025.2"))
	assert.Equal(t, DefaultItemLimit, cfg.ItemLimit(models.DocSROGs))
	assert.True(t, cfg.ContinueOnFailure)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.ItemLimits[models.DocPODs] = 0
	cfg.Concurrency = 0
	cfg.TaxonomyVersion = "1999.1"

	err := cfg.Validate("2025.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pods")
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "1999.1")
}

func TestRetryConfig_Backoff(t *testing.T) {
	r := RetryConfig{BackoffBase: time.Second, BackoffMultiplier: 2, MaxBackoff: 3 * time.Second}

	assert.Equal(t, time.Second, r.Backoff(1))
	assert.Equal(t, 2*time.Second, r.Backoff(2))
	assert.Equal(t, 3*time.Second, r.Backoff(3), "capped at MaxBackoff")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultPipelineConfig().Retry, cfg.Pipeline.Retry)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"PORT":                  "9000",
		"RENDERER_URL":          "http://renderer:8081",
		"ITEM_LIMIT_SROGS":      "35",
		"ITEM_LIMIT_ADMISSIONS": "50",
		"RENDER_TIMEOUT":        "5s",
		"RENDER_MAX_ATTEMPTS":   "5",
		"RENDER_CONCURRENCY":    "8",
		"CONTINUE_ON_FAILURE":   "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://renderer:8081", cfg.Pipeline.RendererEndpoint)
	assert.Equal(t, 35, cfg.Pipeline.ItemLimit(models.DocSROGs))
	assert.Equal(t, DefaultItemLimit, cfg.Pipeline.ItemLimit(models.DocPODs))
	assert.Equal(t, 50, cfg.Pipeline.ItemLimit(models.DocAdmissions))
	assert.Equal(t, 5*time.Second, cfg.Pipeline.RequestTimeout)
	assert.Equal(t, 5, cfg.Pipeline.Retry.MaxAttempts)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.False(t, cfg.Pipeline.ContinueOnFailure)
}

func TestLoad_BadValues(t *testing.T) {
	for key, val := range map[string]string{
		"ITEM_LIMIT_PODS":     "many",
		"RENDER_TIMEOUT":      "soon",
		"CONTINUE_ON_FAILURE": "perhaps",
	} {
		_, err := Load(envMap(map[string]string{key: val}))
		assert.Error(t, err, key)
	}
}
