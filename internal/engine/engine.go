// Package engine is the forecasting facade. It validates a series, routes it
// to the requested strategy, degrades to the fallback predictor when training
// is impossible or fails, and applies the post-processing stages.
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/OldStager01/finy-forecast/internal/adjust"
	"github.com/OldStager01/finy-forecast/internal/evaluator"
	"github.com/OldStager01/finy-forecast/internal/events"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/internal/resilience"
	"github.com/OldStager01/finy-forecast/internal/strategy"
	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

// MetricsRecorder receives engine instrumentation.
type MetricsRecorder interface {
	IncForecast(requested, used models.Strategy)
	IncFallback(reason models.FallbackReason)
	IncTrainingFailure(kind models.Strategy)
	IncInvalidInput()
	SetLiveModels(n int64)
	AddCachedModels(delta int)
	SetCircuitBreakerState(kind models.Strategy, state int)
	ObserveForecast(used models.Strategy, d time.Duration)
	ObserveTraining(kind models.Strategy, d time.Duration)
}

type Option func(*Engine)

func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithPublisher(p *events.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

type Engine struct {
	cfg         Config
	metrics     MetricsRecorder
	publisher   *events.Publisher
	breakers    *resilience.Breakers
	live        atomic.Int64
	now         func() time.Time
	newStrategy func(models.Strategy, strategy.Config) (strategy.Strategy, error)
}

func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg.withDefaults(),
		metrics:     noopMetrics{},
		now:         time.Now,
		newStrategy: strategy.New,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cfg.Breaker.Enabled {
		e.breakers = resilience.NewBreakers(resilience.BreakerConfig{
			MaxFailures:   e.cfg.Breaker.MaxFailures,
			Timeout:       e.cfg.Breaker.Timeout,
			Counts:        countsAsTrainingFailure,
			OnStateChange: e.onBreakerChange,
		})
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// LiveModels returns the number of strategy instances currently held outside
// a session. It is zero whenever no call is in flight.
func (e *Engine) LiveModels() int64 {
	return e.live.Load()
}

// BreakerStates reports the circuit state of every strategy that has trained.
func (e *Engine) BreakerStates() map[models.Strategy]resilience.State {
	if e.breakers == nil {
		return map[models.Strategy]resilience.State{}
	}
	return e.breakers.States()
}

// GeneratePredictions returns one value per period. kind overrides
// opts.Strategy when non-empty.
func (e *Engine) GeneratePredictions(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) ([]float64, error) {
	f, err := e.Forecast(ctx, series, kind, opts)
	if err != nil {
		return nil, err
	}
	return f.Values, nil
}

// Forecast is GeneratePredictions with the metadata describing how the values
// were produced.
func (e *Engine) Forecast(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.Forecast, error) {
	return e.forecast(ctx, series, kind, opts, nil)
}

// GenerateIntervals wraps every period of the forecast in a symmetric
// confidence interval.
func (e *Engine) GenerateIntervals(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.IntervalForecast, error) {
	return e.intervals(ctx, series, kind, opts, nil)
}

// EvaluateModel scores predictions against the observed periods. observed
// may be nil to use the positive-actual convention. It returns nil with no
// error when no period is observed.
func (e *Engine) EvaluateModel(predictions, actual []float64, observed []bool) (*models.Evaluation, error) {
	eval, err := evaluator.Evaluate(predictions, actual, observed)
	if err != nil {
		e.metrics.IncInvalidInput()
		return nil, err
	}
	return eval, nil
}

func (e *Engine) intervals(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions, sess *Session) (*models.IntervalForecast, error) {
	f, err := e.forecast(ctx, series, kind, opts, sess)
	if err != nil {
		return nil, err
	}
	resolved := e.resolve(kind, opts)
	return &models.IntervalForecast{
		ForecastMeta: f.ForecastMeta,
		Intervals:    adjust.Intervals(f.Values, resolved.ConfidenceLevel),
	}, nil
}

// resolve fills unset options from the engine defaults.
func (e *Engine) resolve(kind models.Strategy, opts models.PredictionOptions) models.PredictionOptions {
	if kind != "" {
		opts.Strategy = kind
	}
	if opts.Strategy == "" {
		opts.Strategy = e.cfg.DefaultStrategy
	}
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = e.cfg.Defaults.ConfidenceLevel
	}
	return opts
}

func (e *Engine) forecast(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions, sess *Session) (*models.Forecast, error) {
	if err := validation.ValidateSeries(series); err != nil {
		e.metrics.IncInvalidInput()
		return nil, err
	}
	opts = e.resolve(kind, opts)
	if err := validation.ValidateOptions(opts); err != nil {
		e.metrics.IncInvalidInput()
		return nil, err
	}

	start := e.now()
	pub := e.publisher.WithTraceID(logger.TraceIDFromContext(ctx))
	pub.ForecastStarted(series.ID, opts.Strategy)

	raw := e.raw(ctx, series, opts, sess, pub)
	values := e.postProcess(series, raw.values, opts)

	f := &models.Forecast{
		ForecastMeta: models.ForecastMeta{
			RunID:          models.NewUUID(),
			MetricID:       series.ID,
			Requested:      opts.Strategy,
			Used:           raw.used,
			Fallback:       raw.reason != models.FallbackNone,
			FallbackReason: raw.reason,
			Members:        raw.members,
			GeneratedAt:    start.UTC(),
			Duration:       e.now().Sub(start),
		},
		Values: values,
	}

	e.metrics.IncForecast(f.Requested, f.Used)
	e.metrics.ObserveForecast(f.Used, f.Duration)
	if f.Fallback {
		e.metrics.IncFallback(f.FallbackReason)
		pub.FallbackUsed(series.ID, f.Requested, f.FallbackReason)
		logger.WithForecast(series.ID, string(f.Requested)).
			WithField("reason", f.FallbackReason).
			Info("Forecast served by fallback predictor")
	}
	pub.ForecastCompleted(f)

	logger.WithForecast(series.ID, string(f.Used)).
		WithField("duration", f.Duration).
		Debug("Forecast completed")
	return f, nil
}

// postProcess applies seasonality to unobserved periods and then the
// business rules, so the final values always satisfy the rule bounds.
func (e *Engine) postProcess(series *models.MetricSeries, values []float64, opts models.PredictionOptions) []float64 {
	if opts.ApplySeasonality {
		values = adjust.ApplySeasonality(series, values)
	}
	return adjust.ApplyBusinessRules(series, values)
}

func (e *Engine) onBreakerChange(kind models.Strategy, from, to resilience.State) {
	logger.WithStrategy(string(kind)).WithFields(map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	}).Warn("Circuit breaker state changed")
	e.metrics.SetCircuitBreakerState(kind, int(to))
	e.publisher.BreakerChanged(kind, from.String(), to.String())
}

// countsAsTrainingFailure keeps data shortages and caller cancellation from
// tripping a breaker.
func countsAsTrainingFailure(err error) bool {
	switch {
	case errors.Is(err, training.ErrInsufficientData):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

func classify(err error) models.FallbackReason {
	switch {
	case errors.Is(err, training.ErrInsufficientData):
		return models.FallbackInsufficientData
	case errors.Is(err, resilience.ErrCircuitOpen):
		return models.FallbackCircuitOpen
	default:
		return models.FallbackTrainingFailure
	}
}

type noopMetrics struct{}

func (noopMetrics) IncForecast(models.Strategy, models.Strategy) {}
func (noopMetrics) IncFallback(models.FallbackReason) {}
func (noopMetrics) IncTrainingFailure(models.Strategy) {}
func (noopMetrics) IncInvalidInput() {}
func (noopMetrics) SetLiveModels(int64) {}
func (noopMetrics) AddCachedModels(int) {}
func (noopMetrics) SetCircuitBreakerState(models.Strategy, int) {}
func (noopMetrics) ObserveForecast(models.Strategy, time.Duration) {}
func (noopMetrics) ObserveTraining(models.Strategy, time.Duration) {}
