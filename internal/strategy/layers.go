package strategy

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// addRow adds the 1×c row vector b to every row of m in place.
func addRow(m, b *mat.Dense) {
	bias := b.RawRowView(0)
	m.Apply(func(_, j int, v float64) float64 {
		return v + bias[j]
	}, m)
}

// sumColumns writes the column sums of m into the 1×c matrix dst.
func sumColumns(dst, m *mat.Dense) {
	r, c := m.Dims()
	out := dst.RawRowView(0)
	for j := 0; j < c; j++ {
		var s float64
		for i := 0; i < r; i++ {
			s += m.At(i, j)
		}
		out[j] = s
	}
}

// initNormal fills m with draws from N(0, std²).
func initNormal(m *mat.Dense, rng *rand.Rand, std float64) {
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
}

func heStd(fanIn int) float64 {
	return math.Sqrt(2 / float64(fanIn))
}

func relu(_, _ int, v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func meanSquared(pred, want *mat.Dense) float64 {
	p := pred.RawMatrix().Data
	w := want.RawMatrix().Data
	var s float64
	for i := range p {
		d := p[i] - w[i]
		s += d * d
	}
	return s / float64(len(p))
}
