// Package adjust post-processes raw predictions: business-rule clamping,
// cyclical seasonality and confidence bounds.
package adjust

import (
	"math"

	"github.com/OldStager01/finy-forecast/internal/features"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

const (
	CostReductionCeiling = 0.70
	RevenueIncreaseFloor = 1.05
	CostAvoidanceFloor   = 0.95
	SeasonalityAmplitude = 0.10
)

// BusinessRule clamps a single prediction p against baseline b.
func BusinessRule(impact models.FinancialImpactType, p, b float64) float64 {
	switch impact {
	case models.ImpactCostReduction:
		return math.Min(p, CostReductionCeiling*b)
	case models.ImpactRevenueIncrease:
		return math.Max(p, RevenueIncreaseFloor*b)
	case models.ImpactCostAvoidance:
		return math.Max(p, CostAvoidanceFloor*b)
	default:
		return p
	}
}

// ApplyBusinessRules returns a copy of values with every unobserved period
// clamped by the series' financial impact type.
func ApplyBusinessRules(series *models.MetricSeries, values []float64) []float64 {
	out := append([]float64(nil), values...)
	for i := range out {
		if series.IsObserved(i) {
			continue
		}
		out[i] = BusinessRule(series.FinancialImpact, out[i], series.Baseline[i])
	}
	return out
}

// SeasonalFactor is 1 + 0.1·sin(2πi/n).
func SeasonalFactor(i, n int) float64 {
	return 1 + SeasonalityAmplitude*features.Seasonality(i, n)
}

// ApplySeasonality returns a copy of values with unobserved periods scaled by
// SeasonalFactor. Observed periods keep their actual value.
func ApplySeasonality(series *models.MetricSeries, values []float64) []float64 {
	n := len(values)
	out := append([]float64(nil), values...)
	for i := range out {
		if series.IsObserved(i) {
			continue
		}
		out[i] *= SeasonalFactor(i, n)
	}
	return out
}

// Margin is the relative half-width for confidence c in percent.
func Margin(c float64) float64 {
	return (1 - c/100) / 2
}

// Bound wraps p with symmetric bounds for confidence c.
func Bound(p, c float64) models.Interval {
	m := Margin(c)
	return models.Interval{
		Value:      p,
		Lower:      p * (1 - m),
		Upper:      p * (1 + m),
		Confidence: c,
	}
}

// Intervals bounds every value at confidence c.
func Intervals(values []float64, c float64) []models.Interval {
	out := make([]models.Interval, len(values))
	for i, v := range values {
		out[i] = Bound(v, c)
	}
	return out
}
