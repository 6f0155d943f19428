package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 0.7, cfg.DetectionConfidenceThreshold)
	assert.Equal(t, 10, cfg.DetectionContextMessages)
	assert.Equal(t, "America/Los_Angeles", cfg.DefaultTimezone)
	assert.Equal(t, "America/Los_Angeles", cfg.ReferenceTimezone)
	assert.Equal(t, 60*time.Minute, cfg.DefaultSlotDuration)
	assert.Equal(t, 3*time.Second, cfg.CompletionTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DETECTION_CONFIDENCE_THRESHOLD", "0.85")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("SCHEDULING_REFERENCE_TIMEZONE", "Europe/Berlin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 0.85, cfg.DetectionConfidenceThreshold)
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, "Europe/Berlin", cfg.ReferenceTimezone)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DETECTION_CONFIDENCE_THRESHOLD", "not-a-number")
	t.Setenv("DETECTION_CONTEXT_MESSAGES", "many")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.DetectionConfidenceThreshold)
	assert.Equal(t, 10, cfg.DetectionContextMessages)
}
