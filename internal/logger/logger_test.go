package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		log.SetFormatter(jsonFormatter())
		log.SetLevel(logrus.InfoLevel)
	})
	return &buf
}

func TestWithContext_CarriesTraceID(t *testing.T) {
	buf := capture(t)

	ctx := WithTraceID(context.Background(), "trace-1")
	assert.Equal(t, "trace-1", TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))

	WithContext(ctx).Info("handled")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "handled", line["msg"])
}

func TestWithForecast_Fields(t *testing.T) {
	buf := capture(t)

	WithForecast("m-1", "ensemble").Warn("Strategy failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "m-1", line["metric_id"])
	assert.Equal(t, "ensemble", line["strategy"])
	assert.Equal(t, "warning", line["level"])
}

func TestSetup_Level(t *testing.T) {
	buf := capture(t)

	Setup("warn", "production")
	Info("hidden")
	assert.Zero(t, buf.Len())

	Setup("not-a-level", "production")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestSetup_ModeSwitchesFormatter(t *testing.T) {
	capture(t)

	Setup("info", "development")
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	Setup("info", "production")
	_, isJSON := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestWithStrategy(t *testing.T) {
	buf := capture(t)

	WithStrategy("polynomial").Info("Circuit breaker state changed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "polynomial", line["strategy"])
}
