package strategy

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// adamSlot couples a parameter matrix with its gradient and moment buffers.
type adamSlot struct {
	param *mat.Dense
	grad  *mat.Dense
	m     *mat.Dense
	v     *mat.Dense
}

type adam struct {
	lr    float64
	step  int
	slots []adamSlot
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr}
}

// track registers param and allocates matching zeroed gradient and moment
// buffers from buf. It returns the gradient matrix.
func (o *adam) track(buf *arena, param *mat.Dense) *mat.Dense {
	r, c := param.Dims()
	slot := adamSlot{
		param: param,
		grad:  buf.dense(r, c),
		m:     buf.dense(r, c),
		v:     buf.dense(r, c),
	}
	o.slots = append(o.slots, slot)
	return slot.grad
}

func (o *adam) zeroGrad() {
	for _, s := range o.slots {
		s.grad.Zero()
	}
}

// clip rescales all gradients so their joint L2 norm does not exceed limit.
func (o *adam) clip(limit float64) {
	var sq float64
	for _, s := range o.slots {
		g := s.grad.RawMatrix().Data
		sq += floats.Dot(g, g)
	}
	norm := math.Sqrt(sq)
	if norm <= limit || norm == 0 {
		return
	}
	scale := limit / norm
	for _, s := range o.slots {
		s.grad.Scale(scale, s.grad)
	}
}

func (o *adam) update() {
	o.step++
	c1 := 1 - math.Pow(adamBeta1, float64(o.step))
	c2 := 1 - math.Pow(adamBeta2, float64(o.step))
	for _, s := range o.slots {
		p := s.param.RawMatrix().Data
		g := s.grad.RawMatrix().Data
		m := s.m.RawMatrix().Data
		v := s.v.RawMatrix().Data
		for i := range p {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*g[i]
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*g[i]*g[i]
			p[i] -= o.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + adamEpsilon)
		}
	}
}

// finiteParams reports whether every tracked parameter is a real number.
func (o *adam) finiteParams() bool {
	for _, s := range o.slots {
		for _, x := range s.param.RawMatrix().Data {
			if !finite(x) {
				return false
			}
		}
	}
	return true
}

// scaler is a z-score transform. A zero deviation maps to one so constant
// inputs stay finite.
type scaler struct {
	mean, std float64
}

func fitScaler(xs []float64) scaler {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || std == 0 || !finite(std) {
		std = 1
	}
	return scaler{mean: mean, std: std}
}

func (s scaler) apply(x float64) float64 {
	return (x - s.mean) / s.std
}

func (s scaler) invert(z float64) float64 {
	return z*s.std + s.mean
}

// columnScalers fits one scaler per column of rows.
func columnScalers(rows [][]float64, dim int) []scaler {
	out := make([]scaler, dim)
	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		out[j] = fitScaler(col)
	}
	return out
}
