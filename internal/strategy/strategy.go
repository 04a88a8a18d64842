// Package strategy implements the interchangeable forecasting models.
//
// Every strategy owns numeric buffers that must be handed back with Release
// once the caller is done predicting. Release is idempotent; after it the
// strategy refuses to predict.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

var (
	ErrDiverged        = errors.New("training diverged")
	ErrReleased        = errors.New("strategy released")
	ErrNotFitted       = errors.New("strategy not fitted")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrFeatureShape    = errors.New("feature has wrong dimension")
)

type Strategy interface {
	Kind() models.Strategy
	Fit(ctx context.Context, set *training.Set) error
	PredictOne(feature []float64) (float64, error)
	Release()
}

type Config struct {
	Seed        int64
	FeedForward FeedForwardConfig
	Sequence    SequenceConfig
}

// New constructs an untrained strategy of the given kind.
func New(kind models.Strategy, cfg Config) (Strategy, error) {
	switch kind {
	case models.StrategyLinear:
		return NewLinear(), nil
	case models.StrategyPolynomial:
		return NewPolynomial(), nil
	case models.StrategyFeedForward:
		return NewFeedForward(cfg.FeedForward, cfg.Seed), nil
	case models.StrategySequence:
		return NewSequence(cfg.Sequence, cfg.Seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
}

// PredictSeries produces a full sequence for the series the set was built
// from. Observed periods pass through unchanged; unobserved periods are
// predicted from the same feature construction used for training, floored at
// zero. Unobserved periods with no valid feature vector keep their baseline.
func PredictSeries(s Strategy, set *training.Set, series *models.MetricSeries) ([]float64, error) {
	out := make([]float64, series.Periods())
	for i := range out {
		if series.IsObserved(i) {
			out[i] = series.Actual[i]
			continue
		}
		vec, ok := set.Feature(i)
		if !ok {
			out[i] = series.Baseline[i]
			continue
		}
		p, err := s.PredictOne(vec)
		if err != nil {
			return nil, fmt.Errorf("predict period %d: %w", i, err)
		}
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("predict period %d: %w", i, ErrDiverged)
		}
		out[i] = math.Max(0, p)
	}
	return out, nil
}

func checkExamples(set *training.Set, kind models.Strategy) error {
	if set == nil {
		return fmt.Errorf("%w: no training set", training.ErrInsufficientData)
	}
	if need := training.MinExamples(kind, set.Params); set.Len() < need {
		return fmt.Errorf("%w: %s needs %d examples, have %d", training.ErrInsufficientData, kind, need, set.Len())
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// arena tracks the matrices a strategy allocates so they can be dropped
// together.
type arena struct {
	mats     []*mat.Dense
	released bool
}

func (a *arena) dense(r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	a.mats = append(a.mats, m)
	return m
}

func (a *arena) live() int {
	return len(a.mats)
}

func (a *arena) release() {
	for _, m := range a.mats {
		m.Reset()
	}
	a.mats = nil
	a.released = true
}
