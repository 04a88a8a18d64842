package strategy

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Polynomial is a least-squares fit over the polynomial-expanded period index.
// The degree comes from the training set parameters.
type Polynomial struct {
	buf    arena
	beta   *mat.VecDense
	dim    int
	fitted bool
}

func NewPolynomial() *Polynomial {
	return &Polynomial{}
}

func (p *Polynomial) Kind() models.Strategy {
	return models.StrategyPolynomial
}

func (p *Polynomial) Fit(ctx context.Context, set *training.Set) error {
	if p.buf.released {
		return ErrReleased
	}
	if err := checkExamples(set, models.StrategyPolynomial); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows, cols := set.Len(), set.Dim()
	design := p.buf.dense(rows, cols)
	for i, f := range set.Features {
		design.SetRow(i, f)
	}
	y := mat.NewVecDense(rows, append([]float64(nil), set.Labels...))

	coef := p.buf.dense(cols, 1)
	beta := coef.ColView(0).(*mat.VecDense)
	if err := beta.SolveVec(design, y); err != nil {
		return fmt.Errorf("polynomial least squares: %w", err)
	}
	for i := 0; i < cols; i++ {
		if !finite(beta.AtVec(i)) {
			return fmt.Errorf("polynomial fit: %w", ErrDiverged)
		}
	}

	p.beta = beta
	p.dim = cols
	p.fitted = true
	return nil
}

func (p *Polynomial) PredictOne(feature []float64) (float64, error) {
	if p.buf.released {
		return 0, ErrReleased
	}
	if !p.fitted {
		return 0, ErrNotFitted
	}
	if len(feature) != p.dim {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrFeatureShape, p.dim, len(feature))
	}
	return mat.Dot(p.beta, mat.NewVecDense(p.dim, feature)), nil
}

// Coefficients returns the fitted coefficients, lowest degree first.
func (p *Polynomial) Coefficients() []float64 {
	if !p.fitted || p.buf.released {
		return nil
	}
	out := make([]float64, p.dim)
	for i := range out {
		out[i] = p.beta.AtVec(i)
	}
	return out
}

func (p *Polynomial) Release() {
	p.buf.release()
	p.beta = nil
	p.fitted = false
}
