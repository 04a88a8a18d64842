package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/internal/strategy"
	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Session keeps trained models between calls so repeated forecasts of an
// unchanged series skip training. Models stay live until they are evicted or
// the session is released.
type Session struct {
	engine *Engine
	mu     sync.Mutex
	cache  *lru.Cache[uint64, strategy.Strategy]
	closed bool
}

// NewSession creates a session holding at most size trained models.
func (e *Engine) NewSession(size int) (*Session, error) {
	s := &Session{engine: e}
	cache, err := lru.NewWithEvict[uint64, strategy.Strategy](size, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *Session) Forecast(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.Forecast, error) {
	return s.engine.forecast(ctx, series, kind, opts, s)
}

func (s *Session) GeneratePredictions(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) ([]float64, error) {
	f, err := s.Forecast(ctx, series, kind, opts)
	if err != nil {
		return nil, err
	}
	return f.Values, nil
}

func (s *Session) GenerateIntervals(ctx context.Context, series *models.MetricSeries, kind models.Strategy, opts models.PredictionOptions) (*models.IntervalForecast, error) {
	return s.engine.intervals(ctx, series, kind, opts, s)
}

// Len returns the number of cached models.
func (s *Session) Len() int {
	return s.cache.Len()
}

// ReleaseAll releases every cached model. The session stays usable.
func (s *Session) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// Close releases every cached model and stops caching further ones.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	s.closed = true
}

func (s *Session) onEvict(_ uint64, model strategy.Strategy) {
	model.Release()
	s.engine.metrics.AddCachedModels(-1)
}

// predict serves kind from the cache, training and caching a new model on a
// miss. Prediction holds the session lock so a model is never evicted while
// in use.
func (s *Session) predict(ctx context.Context, kind models.Strategy, set *training.Set, series *models.MetricSeries, params training.Params) (values []float64, err error) {
	key := fingerprint(series, kind, params, s.engine.cfg.Strategy.Seed)

	s.mu.Lock()
	if model, ok := s.cache.Get(key); ok {
		defer s.mu.Unlock()
		logger.WithForecast(series.ID, string(kind)).Debug("Serving cached model")
		return predictSafely(model, set, series)
	}
	closed := s.closed
	s.mu.Unlock()

	if closed {
		err = s.engine.withStrategy(kind, func(m strategy.Strategy) error {
			if err := s.engine.fit(ctx, m, set); err != nil {
				return err
			}
			values, err = strategy.PredictSeries(m, set, series)
			return err
		})
		return values, err
	}

	model, err := s.train(ctx, kind, set)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok, _ := s.cache.PeekOrAdd(key, model); ok {
		// Another call cached the same model first.
		model.Release()
		model = prev
	} else {
		s.engine.metrics.AddCachedModels(1)
	}
	return predictSafely(model, set, series)
}

// train fits a model that outlives the call on success.
func (s *Session) train(ctx context.Context, kind models.Strategy, set *training.Set) (model strategy.Strategy, err error) {
	model, err = s.engine.newStrategy(kind, s.engine.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTrainingPanic, kind, r)
		}
		if err != nil {
			model.Release()
			model = nil
		}
	}()
	err = s.engine.fit(ctx, model, set)
	return model, err
}

func predictSafely(model strategy.Strategy, set *training.Set, series *models.MetricSeries) (values []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, fmt.Errorf("%w: %s: %v", ErrTrainingPanic, model.Kind(), r)
		}
	}()
	return strategy.PredictSeries(model, set, series)
}

// fingerprint identifies a trained model by everything that shapes it.
func fingerprint(series *models.MetricSeries, kind models.Strategy, params training.Params, seed int64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}

	_, _ = d.WriteString(string(kind))
	putInt(seed)
	putInt(int64(params.SequenceWindow))
	putInt(int64(params.PolynomialDegree))
	if params.UseTrend {
		putInt(1)
	} else {
		putInt(0)
	}

	putInt(int64(series.Periods()))
	for i, b := range series.Baseline {
		putFloat(b)
		if series.IsObserved(i) {
			putFloat(series.Actual[i])
		} else {
			putFloat(math.NaN())
		}
	}
	return d.Sum64()
}
