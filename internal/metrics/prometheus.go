package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

const namespace = "finy_forecast"

type Metrics struct {
	registry *prometheus.Registry

	// Counters
	forecastsTotal   *prometheus.CounterVec // requested, used
	fallbacksTotal   *prometheus.CounterVec // reason
	trainingFailures *prometheus.CounterVec // strategy
	invalidInputs    prometheus.Counter

	// Gauges
	liveModels          prometheus.Gauge
	cachedModels        prometheus.Gauge
	circuitBreakerState *prometheus.GaugeVec // 0=closed, 1=open, 2=half-open

	// Histograms
	forecastLatency *prometheus.HistogramVec
	trainingLatency *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics registered on their own registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New(prometheus.NewRegistry())
	})
	return instance
}

// New registers all collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		forecastsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecasts produced, by requested and used strategy",
		}, []string{"requested", "used"}),
		fallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Forecasts served by the fallback predictor, by reason",
		}, []string{"reason"}),
		trainingFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_failures_total",
			Help:      "Strategy trainings that failed",
		}, []string{"strategy"}),
		invalidInputs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_inputs_total",
			Help:      "Requests rejected before training",
		}),
		liveModels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_models",
			Help:      "Trained strategy instances not yet released",
		}),
		cachedModels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_models",
			Help:      "Trained strategy instances held by session caches",
		}),
		circuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per strategy (0 closed, 1 open, 2 half-open)",
		}, []string{"strategy"}),
		forecastLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "End-to-end forecast latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"used"}),
		trainingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Strategy fit latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"strategy"}),
	}
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *Metrics) IncForecast(requested, used models.Strategy) {
	m.forecastsTotal.WithLabelValues(string(requested), string(used)).Inc()
}

func (m *Metrics) IncFallback(reason models.FallbackReason) {
	m.fallbacksTotal.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) IncTrainingFailure(kind models.Strategy) {
	m.trainingFailures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) IncInvalidInput() {
	m.invalidInputs.Inc()
}

func (m *Metrics) SetLiveModels(n int64) {
	m.liveModels.Set(float64(n))
}

func (m *Metrics) AddCachedModels(delta int) {
	m.cachedModels.Add(float64(delta))
}

func (m *Metrics) SetCircuitBreakerState(kind models.Strategy, state int) {
	m.circuitBreakerState.WithLabelValues(string(kind)).Set(float64(state))
}

func (m *Metrics) ObserveForecast(used models.Strategy, d time.Duration) {
	m.forecastLatency.WithLabelValues(string(used)).Observe(d.Seconds())
}

func (m *Metrics) ObserveTraining(kind models.Strategy, d time.Duration) {
	m.trainingLatency.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
}
