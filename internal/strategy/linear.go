package strategy

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Linear is one-feature ordinary least squares over the period index.
type Linear struct {
	buf    arena
	coef   []float64 // intercept, slope
	fitted bool
}

func NewLinear() *Linear {
	return &Linear{}
}

func (l *Linear) Kind() models.Strategy {
	return models.StrategyLinear
}

func (l *Linear) Fit(ctx context.Context, set *training.Set) error {
	if l.buf.released {
		return ErrReleased
	}
	if err := checkExamples(set, models.StrategyLinear); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	xs := make([]float64, set.Len())
	for i, f := range set.Features {
		xs[i] = f[0]
	}

	alpha, beta := stat.LinearRegression(xs, set.Labels, nil, false)
	if !finite(alpha) || !finite(beta) {
		return fmt.Errorf("linear fit: %w", ErrDiverged)
	}

	coef := l.buf.dense(1, 2)
	coef.Set(0, 0, alpha)
	coef.Set(0, 1, beta)
	l.coef = coef.RawRowView(0)
	l.fitted = true
	return nil
}

func (l *Linear) PredictOne(feature []float64) (float64, error) {
	if l.buf.released {
		return 0, ErrReleased
	}
	if !l.fitted {
		return 0, ErrNotFitted
	}
	if len(feature) != 1 {
		return 0, fmt.Errorf("%w: want 1, got %d", ErrFeatureShape, len(feature))
	}
	return l.coef[0] + l.coef[1]*feature[0], nil
}

// Coefficients returns the fitted intercept and slope.
func (l *Linear) Coefficients() (intercept, slope float64) {
	if !l.fitted || l.buf.released {
		return 0, 0
	}
	return l.coef[0], l.coef[1]
}

func (l *Linear) Release() {
	l.buf.release()
	l.coef = nil
	l.fitted = false
}
