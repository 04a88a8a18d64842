package models

import "time"

// Strategy names one forecasting algorithm.
type Strategy string

const (
	StrategyLinear      Strategy = "linear_regression"
	StrategyFeedForward Strategy = "neural_network"
	StrategySequence    Strategy = "time_series"
	StrategyPolynomial  Strategy = "polynomial"
	StrategyEnsemble    Strategy = "ensemble"
	StrategyFallback    Strategy = "fallback"
)

func (s Strategy) IsValid() bool {
	switch s {
	case StrategyLinear, StrategyFeedForward, StrategySequence, StrategyPolynomial,
		StrategyEnsemble, StrategyFallback:
		return true
	default:
		return false
	}
}

// IsModel reports whether the strategy trains a single model.
func (s Strategy) IsModel() bool {
	switch s {
	case StrategyLinear, StrategyFeedForward, StrategySequence, StrategyPolynomial:
		return true
	default:
		return false
	}
}

// FallbackReason explains why a forecast came from the fallback predictor.
type FallbackReason string

const (
	FallbackNone             FallbackReason = ""
	FallbackRequested        FallbackReason = "requested"
	FallbackInsufficientData FallbackReason = "insufficient_data"
	FallbackTrainingFailure  FallbackReason = "training_failure"
	FallbackCircuitOpen      FallbackReason = "circuit_open"
)

const DefaultConfidenceLevel = 95.0

// PredictionOptions configures one forecasting request.
type PredictionOptions struct {
	Strategy           Strategy `json:"strategy,omitempty"`
	ConfidenceLevel    float64  `json:"confidence_level,omitempty"`
	ApplySeasonality   bool     `json:"apply_seasonality"`
	ApplyTrendAnalysis bool     `json:"apply_trend_analysis"`
}

func DefaultPredictionOptions() PredictionOptions {
	return PredictionOptions{
		ConfidenceLevel:    DefaultConfidenceLevel,
		ApplySeasonality:   false,
		ApplyTrendAnalysis: true,
	}
}

// Interval wraps a point prediction with symmetric bounds.
type Interval struct {
	Value      float64 `json:"value"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// ForecastMeta describes how a forecast was produced.
type ForecastMeta struct {
	RunID          string         `json:"run_id"`
	MetricID       string         `json:"metric_id"`
	Requested      Strategy       `json:"requested_strategy"`
	Used           Strategy       `json:"used_strategy"`
	Fallback       bool           `json:"fallback"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`
	Members        []Strategy     `json:"members,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Duration       time.Duration  `json:"duration_ns"`
}

// Forecast is a plain projected sequence, one value per period.
type Forecast struct {
	ForecastMeta
	Values []float64 `json:"values"`
}

// IntervalForecast carries confidence bounds for every period.
type IntervalForecast struct {
	ForecastMeta
	Intervals []Interval `json:"intervals"`
}

// Values extracts the point predictions.
func (f *IntervalForecast) Values() []float64 {
	values := make([]float64, len(f.Intervals))
	for i, iv := range f.Intervals {
		values[i] = iv.Value
	}
	return values
}

// Evaluation holds error metrics over observed periods.
type Evaluation struct {
	MSE   float64 `json:"mse"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	Count int     `json:"count"`
}

// ForecastRun is a persisted forecast.
type ForecastRun struct {
	ID             string         `json:"id"`
	MetricID       string         `json:"metric_id"`
	Requested      Strategy       `json:"requested_strategy"`
	Used           Strategy       `json:"used_strategy"`
	Fallback       bool           `json:"fallback"`
	FallbackReason FallbackReason `json:"fallback_reason,omitempty"`
	Values         []float64      `json:"values"`
	DurationMs     int64          `json:"duration_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}

func NewForecastRun(f *Forecast) *ForecastRun {
	return &ForecastRun{
		ID:             f.RunID,
		MetricID:       f.MetricID,
		Requested:      f.Requested,
		Used:           f.Used,
		Fallback:       f.Fallback,
		FallbackReason: f.FallbackReason,
		Values:         append([]float64(nil), f.Values...),
		DurationMs:     f.Duration.Milliseconds(),
		CreatedAt:      f.GeneratedAt,
	}
}
