package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/finy-forecast/internal/ensemble"
	"github.com/OldStager01/finy-forecast/internal/events"
	"github.com/OldStager01/finy-forecast/internal/fallback"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/internal/strategy"
	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// ErrTrainingPanic wraps a panic recovered while a strategy was training or
// predicting.
var ErrTrainingPanic = errors.New("strategy panicked")

type rawResult struct {
	values  []float64
	used    models.Strategy
	reason  models.FallbackReason
	members []models.Strategy
}

// raw produces the unadjusted sequence for the requested strategy. It never
// fails: every error degrades to the fallback predictor.
func (e *Engine) raw(ctx context.Context, series *models.MetricSeries, opts models.PredictionOptions, sess *Session, pub *events.Publisher) rawResult {
	switch {
	case opts.Strategy == models.StrategyFallback:
		return e.fallback(series, models.FallbackRequested)

	case opts.Strategy == models.StrategyEnsemble:
		members := make([]ensemble.Member, 0, len(e.cfg.EnsembleMembers))
		for _, kind := range e.cfg.EnsembleMembers {
			values, err := e.runModel(ctx, kind, series, opts, sess, pub)
			members = append(members, ensemble.Member{Kind: kind, Values: values, Err: err})
		}
		res, err := ensemble.Combine(series, members)
		if err != nil {
			return e.fallback(series, ensembleReason(members))
		}
		return rawResult{values: res.Values, used: models.StrategyEnsemble, members: res.Included}

	default:
		values, err := e.runModel(ctx, opts.Strategy, series, opts, sess, pub)
		if err != nil {
			return e.fallback(series, classify(err))
		}
		return rawResult{values: values, used: opts.Strategy}
	}
}

func (e *Engine) fallback(series *models.MetricSeries, reason models.FallbackReason) rawResult {
	return rawResult{
		values: fallback.Predict(series),
		used:   models.StrategyFallback,
		reason: reason,
	}
}

// ensembleReason picks the fallback reason once every member has failed. It
// is the members' shared reason, or training_failure when they disagree.
func ensembleReason(members []ensemble.Member) models.FallbackReason {
	if len(members) == 0 {
		return models.FallbackTrainingFailure
	}
	reason := classify(members[0].Err)
	for _, m := range members[1:] {
		if classify(m.Err) != reason {
			return models.FallbackTrainingFailure
		}
	}
	return reason
}

// runModel trains kind on series and predicts every period.
func (e *Engine) runModel(ctx context.Context, kind models.Strategy, series *models.MetricSeries, opts models.PredictionOptions, sess *Session, pub *events.Publisher) ([]float64, error) {
	params := e.cfg.trainingParams(opts)
	set, err := training.Build(series, kind, params)
	if err != nil {
		logger.WithForecast(series.ID, string(kind)).
			WithError(err).
			Debug("Not enough labeled periods to train")
		return nil, err
	}

	if e.cfg.TrainingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TrainingTimeout)
		defer cancel()
	}

	var values []float64
	run := func() error {
		var err error
		if sess != nil {
			values, err = sess.predict(ctx, kind, set, series, params)
			return err
		}
		return e.withStrategy(kind, func(s strategy.Strategy) error {
			if err := e.fit(ctx, s, set); err != nil {
				return err
			}
			values, err = strategy.PredictSeries(s, set, series)
			return err
		})
	}

	if e.breakers != nil {
		err = e.breakers.For(kind).Execute(run)
	} else {
		err = run()
	}
	if err != nil {
		values = nil
		if countsAsTrainingFailure(err) && classify(err) == models.FallbackTrainingFailure {
			e.metrics.IncTrainingFailure(kind)
			pub.TrainingFailed(series.ID, kind, err)
		}
		logger.WithForecast(series.ID, string(kind)).
			WithError(err).
			Warn("Strategy failed")
		return nil, err
	}
	return values, nil
}

func (e *Engine) fit(ctx context.Context, s strategy.Strategy, set *training.Set) error {
	start := e.now()
	err := s.Fit(ctx, set)
	e.metrics.ObserveTraining(s.Kind(), e.now().Sub(start))
	return err
}

// withStrategy scopes one strategy instance to fn. The instance is released
// on every exit path, including a panic inside fn.
func (e *Engine) withStrategy(kind models.Strategy, fn func(strategy.Strategy) error) (err error) {
	s, err := e.newStrategy(kind, e.cfg.Strategy)
	if err != nil {
		return err
	}
	e.metrics.SetLiveModels(e.live.Add(1))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTrainingPanic, kind, r)
		}
		s.Release()
		e.metrics.SetLiveModels(e.live.Add(-1))
	}()

	return fn(s)
}
