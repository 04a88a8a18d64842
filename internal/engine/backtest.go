package engine

import (
	"context"

	"github.com/OldStager01/finy-forecast/internal/evaluator"
	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// BacktestResult scores a forecast made with the last observed periods
// hidden.
type BacktestResult struct {
	Forecast   *models.Forecast   `json:"forecast"`
	Hidden     []int              `json:"hidden_periods"`
	Evaluation *models.Evaluation `json:"evaluation"`
}

// Backtest hides the last holdout observed periods, forecasts the series as
// if they were unknown, and evaluates the forecast on exactly those periods.
func (e *Engine) Backtest(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions, holdout int) (*BacktestResult, error) {
	if err := validation.ValidateSeries(series); err != nil {
		e.metrics.IncInvalidInput()
		return nil, err
	}

	observed := series.ObservedMask()
	var indices []int
	for i, ok := range observed {
		if ok {
			indices = append(indices, i)
		}
	}
	if holdout < 1 || holdout >= len(indices) {
		e.metrics.IncInvalidInput()
		return nil, validation.Invalid("holdout must be between 1 and %d, got %d", len(indices)-1, holdout)
	}
	hidden := indices[len(indices)-holdout:]

	trial := series.Clone()
	trial.Observed = observed
	scored := make([]bool, len(observed))
	for _, i := range hidden {
		trial.Observed[i] = false
		trial.Actual[i] = 0
		scored[i] = true
	}

	f, err := e.Forecast(ctx, trial, kind, opts)
	if err != nil {
		return nil, err
	}
	eval, err := evaluator.Evaluate(f.Values, series.Actual, scored)
	if err != nil {
		return nil, err
	}
	return &BacktestResult{Forecast: f, Hidden: hidden, Evaluation: eval}, nil
}
