package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_StampsServiceAndCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf})

	ctx := WithCorrelationID(context.Background(), "req-42")
	logger.InfoContext(ctx, "hello", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "harbor", record["service"])
	assert.Equal(t, "req-42", record["correlation_id"])
	assert.Equal(t, "value", record["key"])
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestWithCorrelationID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.NotEmpty(t, CorrelationIDFromContext(ctx))
}

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()
	tag := T("queue", "harbor.scheduling")

	m.Counter("events", 1, tag)
	m.Counter("events", 2, tag)
	m.Gauge("depth", 7.5, tag)
	m.Timing("dispatch", 10*time.Millisecond, tag)

	assert.Equal(t, int64(3), m.CounterValue("events", tag))
	assert.Equal(t, 7.5, m.GaugeValue("depth", tag))

	// Different tags address different series
	assert.Zero(t, m.CounterValue("events", T("queue", "other")))
}
