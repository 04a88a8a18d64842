package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/resilience"
	"github.com/OldStager01/finy-forecast/pkg/database/queries"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testEngine() *engine.Engine {
	cfg := engine.DefaultConfig()
	cfg.Strategy.FeedForward.Epochs = 30
	cfg.Strategy.Sequence.Epochs = 20
	return engine.New(cfg)
}

func testRouter(e *engine.Engine) *gin.Engine {
	h := NewPredictionHandler(e, e.Config().Defaults, 2)
	r := gin.New()
	r.POST("/predictions", h.Predict)
	r.POST("/predictions/batch", h.Batch)
	r.POST("/intervals", h.Intervals)
	r.POST("/evaluate", h.Evaluate)
	r.POST("/backtest", h.Backtest)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleSeries() *models.MetricSeries {
	return &models.MetricSeries{
		ID:              "cloud-spend",
		Name:            "Cloud spend",
		FinancialImpact: models.ImpactCostReduction,
		Baseline:        []float64{100, 100, 100, 100, 100, 100},
		Actual:          []float64{95, 90, 85, 0, 0, 0},
	}
}

func TestPredict(t *testing.T) {
	r := testRouter(testEngine())

	w := doJSON(t, r, http.MethodPost, "/predictions", PredictionRequest{
		Series:  sampleSeries(),
		Options: OptionsRequest{Strategy: models.StrategyLinear},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var f models.Forecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	assert.Equal(t, "cloud-spend", f.MetricID)
	assert.Equal(t, models.StrategyLinear, f.Used)
	require.Len(t, f.Values, 6)
	assert.Equal(t, 95.0, f.Values[0])
	for _, v := range f.Values[3:] {
		assert.LessOrEqual(t, v, 70.0+1e-9)
	}
}

func TestPredict_InvalidInput(t *testing.T) {
	r := testRouter(testEngine())

	series := sampleSeries()
	series.Actual = series.Actual[:2]
	w := doJSON(t, r, http.MethodPost, "/predictions", PredictionRequest{Series: series})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid input")

	w = doJSON(t, r, http.MethodPost, "/predictions", `{"series":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")

	w = doJSON(t, r, http.MethodPost, "/predictions", PredictionRequest{
		Series:  sampleSeries(),
		Options: OptionsRequest{Strategy: "arima"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntervals(t *testing.T) {
	r := testRouter(testEngine())

	w := doJSON(t, r, http.MethodPost, "/intervals", PredictionRequest{
		Series:  sampleSeries(),
		Options: OptionsRequest{Strategy: models.StrategyFallback, ConfidenceLevel: 90},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var f models.IntervalForecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	require.Len(t, f.Intervals, 6)
	assert.True(t, f.Fallback)
	assert.Equal(t, models.FallbackRequested, f.FallbackReason)
	for _, iv := range f.Intervals {
		assert.Equal(t, 90.0, iv.Confidence)
		assert.LessOrEqual(t, iv.Lower, iv.Upper)
	}
}

func TestBatch(t *testing.T) {
	r := testRouter(testEngine())

	bad := sampleSeries()
	bad.ID = "broken"
	bad.FinancialImpact = "Unknown"

	w := doJSON(t, r, http.MethodPost, "/predictions/batch", BatchRequest{Requests: []PredictionRequest{
		{Series: sampleSeries(), Options: OptionsRequest{Strategy: models.StrategyPolynomial}},
		{Series: bad},
	}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []BatchItem `json:"results"`
		Failed  int         `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Failed)
	assert.NotNil(t, resp.Results[0].Forecast)
	assert.Equal(t, "broken", resp.Results[1].MetricID)
	assert.Contains(t, resp.Results[1].Error, "invalid input")

	w = doJSON(t, r, http.MethodPost, "/predictions/batch", BatchRequest{Requests: []PredictionRequest{
		{Series: sampleSeries()}, {Series: sampleSeries()}, {Series: sampleSeries()},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/predictions/batch", BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate(t *testing.T) {
	r := testRouter(testEngine())

	w := doJSON(t, r, http.MethodPost, "/evaluate", EvaluateRequest{
		Predictions: []float64{12, 16, 5},
		Actual:      []float64{10, 20, 0},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = doJSON(t, r, http.MethodPost, "/evaluate", EvaluateRequest{
		Predictions: []float64{1, 2},
		Actual:      []float64{0, 0},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no observed periods")

	w = doJSON(t, r, http.MethodPost, "/evaluate", EvaluateRequest{
		Predictions: []float64{1},
		Actual:      []float64{1, 2},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBacktest(t *testing.T) {
	r := testRouter(testEngine())

	w := doJSON(t, r, http.MethodPost, "/backtest", BacktestRequest{
		PredictionRequest: PredictionRequest{Series: sampleSeries(), Options: OptionsRequest{Strategy: models.StrategyLinear}},
		Holdout:           1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res engine.BacktestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []int{2}, res.Hidden)
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, 1, res.Evaluation.Count)

	w = doJSON(t, r, http.MethodPost, "/backtest", BacktestRequest{
		PredictionRequest: PredictionRequest{Series: sampleSeries()},
		Holdout:           0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptionsRequest_Resolve(t *testing.T) {
	defaults := models.DefaultPredictionOptions()
	off := false

	opts := OptionsRequest{}.Resolve(defaults)
	assert.Equal(t, defaults, opts)

	opts = OptionsRequest{ApplyTrendAnalysis: &off, ConfidenceLevel: 80}.Resolve(defaults)
	assert.False(t, opts.ApplyTrendAnalysis)
	assert.Equal(t, 80.0, opts.ConfidenceLevel)
}

type stubRuns struct {
	runs []models.ForecastRun
	err  error
}

func (s *stubRuns) ListByMetric(ctx context.Context, metricID string, limit int) ([]models.ForecastRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubRuns) GetByID(ctx context.Context, id string) (*models.ForecastRun, error) {
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, queries.ErrRunNotFound
}

func TestForecastHistory(t *testing.T) {
	runs := &stubRuns{runs: []models.ForecastRun{
		{ID: "r-1", MetricID: "m-1", Used: models.StrategyLinear},
		{ID: "r-2", MetricID: "m-1", Used: models.StrategyFallback},
	}}
	h := NewForecastHandler(runs, 10)
	r := gin.New()
	r.GET("/forecasts/:metric_id", h.History)
	r.GET("/runs/:id", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecasts/m-1?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/r-2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fallback")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	runs.err = errors.New("connection refused")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forecasts/m-1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(ctx context.Context) error { return p.err }

type stubStatus struct {
	states map[models.Strategy]resilience.State
}

func (s stubStatus) LiveModels() int64 { return 0 }

func (s stubStatus) BreakerStates() map[models.Strategy]resilience.State { return s.states }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		states     map[models.Strategy]resilience.State
		wantCode   int
		wantStatus string
	}{
		{"no database", nil, nil, http.StatusOK, "healthy"},
		{"database up", stubPinger{}, nil, http.StatusOK, "healthy"},
		{"database down", stubPinger{err: errors.New("down")}, nil, http.StatusServiceUnavailable, "unhealthy"},
		{"breaker open", nil, map[models.Strategy]resilience.State{models.StrategyFeedForward: resilience.StateOpen}, http.StatusOK, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, stubStatus{states: tt.states})
			r := gin.New()
			r.GET("/health", h.Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}
