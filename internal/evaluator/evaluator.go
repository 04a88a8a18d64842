// Package evaluator scores predictions against observed actual values.
package evaluator

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// Evaluate computes MSE, MAE and RMSE over the observed periods. observed may
// be nil, in which case a period is observed iff its actual value is
// positive. It returns nil when no period is observed.
func Evaluate(predictions, actual []float64, observed []bool) (*models.Evaluation, error) {
	if len(predictions) != len(actual) {
		return nil, validation.Invalid("predictions has %d periods, actual has %d", len(predictions), len(actual))
	}
	if observed != nil && len(observed) != len(actual) {
		return nil, validation.Invalid("observed has %d periods, actual has %d", len(observed), len(actual))
	}

	var pred, want []float64
	for i, a := range actual {
		if observed != nil && !observed[i] {
			continue
		}
		if observed == nil && !(a > 0) {
			continue
		}
		pred = append(pred, predictions[i])
		want = append(want, a)
	}
	if len(want) == 0 {
		return nil, nil
	}

	diff := make([]float64, len(pred))
	floats.SubTo(diff, pred, want)
	count := float64(len(diff))

	mae := floats.Norm(diff, 1) / count
	mse := floats.Dot(diff, diff) / count
	return &models.Evaluation{
		MSE:   mse,
		MAE:   mae,
		RMSE:  math.Sqrt(mse),
		Count: len(diff),
	}, nil
}

// ForSeries evaluates predictions against the observed periods of series.
func ForSeries(series *models.MetricSeries, predictions []float64) (*models.Evaluation, error) {
	return Evaluate(predictions, series.Actual, series.ObservedMask())
}
