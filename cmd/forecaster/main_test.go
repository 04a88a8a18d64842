package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

const seriesJSON = `{
	"id": "m-1",
	"name": "Cloud spend",
	"financial_impact": "Cost Reduction",
	"baseline": [100, 100, 100, 100, 100, 100, 100, 100],
	"actual":   [98, 95, 93, 90, 88, 0, 0, 0]
}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPredict_FallbackFromStdin(t *testing.T) {
	out, err := execute(t, seriesJSON, "predict", "-s", "fallback")
	require.NoError(t, err)

	var f models.Forecast
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	assert.Equal(t, "m-1", f.MetricID)
	assert.True(t, f.Fallback)
	assert.Equal(t, models.FallbackRequested, f.FallbackReason)
	assert.Len(t, f.Values, 8)
}

func TestPredict_Intervals(t *testing.T) {
	out, err := execute(t, seriesJSON, "predict", "--intervals", "--confidence", "90")
	require.NoError(t, err)

	var f models.IntervalForecast
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	require.Len(t, f.Intervals, 8)
	for _, iv := range f.Intervals {
		assert.LessOrEqual(t, iv.Lower, iv.Value)
		assert.GreaterOrEqual(t, iv.Upper, iv.Value)
	}
}

func TestPredict_InvalidSeries(t *testing.T) {
	_, err := execute(t, `{"id": "m-1", "financial_impact": "Cost Reduction"}`, "predict")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestPredict_BadJSON(t *testing.T) {
	_, err := execute(t, `{`, "predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode input")
}

func TestEvaluate_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"predictions": [10, 20, 30], "actual": [10, 20, 0]}`), 0o600))

	out, err := execute(t, "", "evaluate", "-i", path)
	require.NoError(t, err)

	var eval models.Evaluation
	require.NoError(t, json.Unmarshal([]byte(out), &eval))
	assert.Equal(t, 2, eval.Count)
	assert.InDelta(t, 0, eval.RMSE, 1e-9)
}

func TestEvaluate_MissingFile(t *testing.T) {
	_, err := execute(t, "", "evaluate", "-i", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input")
}

func TestBacktest(t *testing.T) {
	out, err := execute(t, seriesJSON, "backtest", "--holdout", "2", "-s", "linear_regression")
	require.NoError(t, err)

	var res struct {
		Hidden     []int              `json:"hidden_periods"`
		Evaluation *models.Evaluation `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int{3, 4}, res.Hidden)
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, 2, res.Evaluation.Count)
}

func TestBacktest_HoldoutTooLarge(t *testing.T) {
	_, err := execute(t, seriesJSON, "backtest", "--holdout", "5")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestSimulate_Batch(t *testing.T) {
	out, err := execute(t, "", "simulate", "-n", "3", "--periods", "6", "--observed", "4")
	require.NoError(t, err)

	var series []*models.MetricSeries
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	require.Len(t, series, 3)
	for _, s := range series {
		assert.Len(t, s.Baseline, 6)
		assert.Len(t, s.Actual, 6)
	}
}

func TestSimulate_ForecastSummary(t *testing.T) {
	out, err := execute(t, "", "simulate", "-n", "2", "--forecast", "-s", "fallback")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "METRIC")
	assert.Contains(t, lines[1], "synthetic-001")
	assert.Contains(t, lines[1], string(models.FallbackRequested))
}

func TestSimulate_RejectsBadFlags(t *testing.T) {
	_, err := execute(t, "", "simulate", "--impact", "Cost Increase")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown financial impact")

	_, err = execute(t, "", "simulate", "-n", "0")
	require.Error(t, err)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, err := execute(t, seriesJSON, "predict", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRoot_RejectsArgs(t *testing.T) {
	_, err := execute(t, "", "migrate", "extra")
	assert.Error(t, err)
}
