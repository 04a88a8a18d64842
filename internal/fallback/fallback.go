// Package fallback is the training-free extrapolation used whenever a model
// strategy cannot produce a forecast.
package fallback

import (
	"math"

	"github.com/OldStager01/finy-forecast/internal/features"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

const (
	GrowthRate        = 0.02
	SeasonalAmplitude = 0.05
)

// Value extrapolates period i of n from baseline b.
func Value(b float64, i, n int) float64 {
	v := b * (1 + GrowthRate*float64(i+1)) * (1 + SeasonalAmplitude*features.Seasonality(i, n))
	return math.Max(0, v)
}

// Predict returns a full sequence for series. Observed periods pass through.
// It never fails and uses no randomness.
func Predict(series *models.MetricSeries) []float64 {
	n := series.Periods()
	out := make([]float64, n)
	for i := range out {
		if series.IsObserved(i) {
			out[i] = series.Actual[i]
			continue
		}
		out[i] = Value(series.Baseline[i], i, n)
	}
	return out
}
