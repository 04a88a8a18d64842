// Package training partitions a metric's periods into labeled and
// to-predict sets and assembles per-strategy feature vectors.
package training

import (
	"errors"
	"fmt"

	"github.com/OldStager01/finy-forecast/internal/features"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

var ErrInsufficientData = errors.New("insufficient labeled data")

const (
	DefaultSequenceWindow   = 6
	DefaultPolynomialDegree = 2
)

// Params tunes feature construction.
type Params struct {
	SequenceWindow   int
	PolynomialDegree int
	UseTrend         bool
}

func (p Params) withDefaults() Params {
	if p.SequenceWindow <= 0 {
		p.SequenceWindow = DefaultSequenceWindow
	}
	if p.PolynomialDegree <= 0 {
		p.PolynomialDegree = DefaultPolynomialDegree
	}
	return p
}

// MinExamples returns the labeled example count a strategy needs to train.
func MinExamples(kind models.Strategy, p Params) int {
	p = p.withDefaults()
	switch kind {
	case models.StrategyLinear, models.StrategySequence:
		return 2
	case models.StrategyFeedForward:
		return 3
	case models.StrategyPolynomial:
		return p.PolynomialDegree + 1
	default:
		return 0
	}
}

// Set is the training data for one strategy over one series.
//
// Features holds flat vectors; for the sequence strategy every vector is the
// flattened window of length SequenceWindow.
type Set struct {
	Kind      models.Strategy
	Params    Params
	Features  [][]float64
	Labels    []float64
	Labeled   []int
	ToPredict []int

	baseline []float64
}

// Len returns the number of labeled examples.
func (s *Set) Len() int {
	return len(s.Labels)
}

// Dim returns the width of a feature vector.
func (s *Set) Dim() int {
	switch s.Kind {
	case models.StrategyLinear:
		return 1
	case models.StrategyFeedForward:
		return features.FeedForwardDim
	case models.StrategyPolynomial:
		return s.Params.PolynomialDegree + 1
	case models.StrategySequence:
		return s.Params.SequenceWindow
	default:
		return 0
	}
}

// Baseline returns the value of the baseline at period i.
func (s *Set) Baseline(i int) float64 {
	return s.baseline[i]
}

// Feature builds the feature vector for period i with the same construction
// used for training. ok is false when the period has no valid vector (a
// sequence period with fewer than SequenceWindow predecessors).
func (s *Set) Feature(i int) (vec []float64, ok bool) {
	switch s.Kind {
	case models.StrategyLinear:
		return []float64{float64(i)}, true
	case models.StrategyFeedForward:
		return features.FeedForwardVector(s.baseline, i, s.Params.UseTrend), true
	case models.StrategyPolynomial:
		return features.PolynomialVector(float64(i), s.Params.PolynomialDegree), true
	case models.StrategySequence:
		window, ok := features.SequenceWindow(s.baseline, i, s.Params.SequenceWindow)
		if !ok {
			return nil, false
		}
		return flatten(window), true
	default:
		return nil, false
	}
}

// Build assembles the training set for kind. It returns ErrInsufficientData
// when fewer than MinExamples labeled examples are available; the returned
// set is still populated so callers can inspect it.
func Build(series *models.MetricSeries, kind models.Strategy, p Params) (*Set, error) {
	if !kind.IsModel() {
		return nil, fmt.Errorf("strategy %q has no training set", kind)
	}
	p = p.withDefaults()

	set := &Set{
		Kind:     kind,
		Params:   p,
		baseline: series.Baseline,
	}

	for i := 0; i < series.Periods(); i++ {
		if !series.IsObserved(i) {
			set.ToPredict = append(set.ToPredict, i)
			continue
		}
		vec, ok := set.Feature(i)
		if !ok {
			continue
		}
		set.Features = append(set.Features, vec)
		set.Labels = append(set.Labels, series.Actual[i])
		set.Labeled = append(set.Labeled, i)
	}

	if need := MinExamples(kind, p); set.Len() < need {
		return set, fmt.Errorf("%w: %s needs %d examples, have %d", ErrInsufficientData, kind, need, set.Len())
	}
	return set, nil
}

func flatten(window [][]float64) []float64 {
	out := make([]float64, 0, len(window))
	for _, step := range window {
		out = append(out, step...)
	}
	return out
}
