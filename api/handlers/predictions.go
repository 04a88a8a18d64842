package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// Forecaster is the part of the engine the HTTP layer drives.
type Forecaster interface {
	Forecast(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.Forecast, error)
	GenerateIntervals(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.IntervalForecast, error)
	ForecastAll(ctx context.Context, reqs []engine.Request) []engine.Result
	EvaluateModel(predictions, actual []float64, observed []bool) (*models.Evaluation, error)
	Backtest(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions, holdout int) (*engine.BacktestResult, error)
}

// OptionsRequest carries prediction options. Absent booleans take the
// configured defaults.
type OptionsRequest struct {
	Strategy           models.Strategy `json:"strategy"`
	ConfidenceLevel    float64         `json:"confidence_level"`
	ApplySeasonality   *bool           `json:"apply_seasonality"`
	ApplyTrendAnalysis *bool           `json:"apply_trend_analysis"`
}

func (o OptionsRequest) Resolve(defaults models.PredictionOptions) models.PredictionOptions {
	opts := defaults
	opts.Strategy = o.Strategy
	if o.ConfidenceLevel != 0 {
		opts.ConfidenceLevel = o.ConfidenceLevel
	}
	if o.ApplySeasonality != nil {
		opts.ApplySeasonality = *o.ApplySeasonality
	}
	if o.ApplyTrendAnalysis != nil {
		opts.ApplyTrendAnalysis = *o.ApplyTrendAnalysis
	}
	return opts
}

type PredictionRequest struct {
	Series  *models.MetricSeries `json:"series"`
	Options OptionsRequest       `json:"options"`
}

type BatchRequest struct {
	Requests []PredictionRequest `json:"requests"`
}

type BatchItem struct {
	MetricID string           `json:"metric_id"`
	Forecast *models.Forecast `json:"forecast,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type EvaluateRequest struct {
	Predictions []float64 `json:"predictions"`
	Actual      []float64 `json:"actual"`
	Observed    []bool    `json:"observed,omitempty"`
}

type BacktestRequest struct {
	PredictionRequest
	Holdout int `json:"holdout"`
}

type PredictionHandler struct {
	engine   Forecaster
	defaults models.PredictionOptions
	maxBatch int
}

func NewPredictionHandler(f Forecaster, defaults models.PredictionOptions, maxBatch int) *PredictionHandler {
	if maxBatch <= 0 {
		maxBatch = 50
	}
	return &PredictionHandler{engine: f, defaults: defaults, maxBatch: maxBatch}
}

// Predict handles POST /api/v1/predictions.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req PredictionRequest
	if !bindJSON(c, &req) {
		return
	}
	sanitizeSeries(req.Series)

	f, err := h.engine.Forecast(c.Request.Context(), req.Series, "", req.Options.Resolve(h.defaults))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Intervals handles POST /api/v1/intervals.
func (h *PredictionHandler) Intervals(c *gin.Context) {
	var req PredictionRequest
	if !bindJSON(c, &req) {
		return
	}
	sanitizeSeries(req.Series)

	f, err := h.engine.GenerateIntervals(c.Request.Context(), req.Series, "", req.Options.Resolve(h.defaults))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// Batch handles POST /api/v1/predictions/batch. Every item succeeds or
// fails on its own; the response is 200 unless the envelope is invalid.
func (h *PredictionHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Requests) == 0 {
		respondError(c, validation.Invalid("requests must not be empty"))
		return
	}
	if len(req.Requests) > h.maxBatch {
		respondError(c, validation.Invalid("batch exceeds %d requests", h.maxBatch))
		return
	}

	reqs := make([]engine.Request, len(req.Requests))
	for i, r := range req.Requests {
		sanitizeSeries(r.Series)
		reqs[i] = engine.Request{Series: r.Series, Options: r.Options.Resolve(h.defaults)}
	}

	results := h.engine.ForecastAll(c.Request.Context(), reqs)
	items := make([]BatchItem, len(results))
	failed := 0
	for i, res := range results {
		items[i] = BatchItem{MetricID: res.MetricID, Forecast: res.Forecast}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"count":   len(items),
		"failed":  failed,
	})
}

// Evaluate handles POST /api/v1/evaluate.
func (h *PredictionHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if !bindJSON(c, &req) {
		return
	}

	eval, err := h.engine.EvaluateModel(req.Predictions, req.Actual, req.Observed)
	if err != nil {
		respondError(c, err)
		return
	}
	if eval == nil {
		c.JSON(http.StatusOK, gin.H{"evaluation": nil, "message": "no observed periods"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": eval})
}

// Backtest handles POST /api/v1/backtest.
func (h *PredictionHandler) Backtest(c *gin.Context) {
	var req BacktestRequest
	if !bindJSON(c, &req) {
		return
	}
	sanitizeSeries(req.Series)

	res, err := h.engine.Backtest(c.Request.Context(), req.Series, "", req.Options.Resolve(h.defaults), req.Holdout)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func sanitizeSeries(s *models.MetricSeries) {
	if s == nil {
		return
	}
	s.ID = validation.SanitizeString(s.ID)
	s.Name = validation.SanitizeString(s.Name)
	s.Category = validation.SanitizeString(s.Category)
	s.Unit = validation.SanitizeString(s.Unit)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, validation.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.WithContext(c.Request.Context()).WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
