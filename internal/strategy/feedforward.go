package strategy

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

var (
	defaultHidden  = []int{64, 32, 16}
	defaultDropout = []float64{0.2, 0.1}
)

// FeedForwardConfig tunes the feed-forward network. Dropout holds rates for
// the leading hidden layers; layers past the end of the slice use none.
type FeedForwardConfig struct {
	Epochs       int
	LearningRate float64
	Hidden       []int
	Dropout      []float64
}

func (c FeedForwardConfig) withDefaults() FeedForwardConfig {
	if c.Epochs <= 0 {
		c.Epochs = 200
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.01
	}
	if len(c.Hidden) == 0 {
		c.Hidden = defaultHidden
	}
	if c.Dropout == nil {
		c.Dropout = defaultDropout
	}
	return c
}

// FeedForward is a fully connected ReLU regressor trained with full-batch
// Adam on z-scored features and labels.
type FeedForward struct {
	cfg  FeedForwardConfig
	seed int64
	buf  arena

	sizes   []int
	weights []*mat.Dense
	biases  []*mat.Dense
	inputs  []scaler
	label   scaler
	loss    float64
	fitted  bool
}

func NewFeedForward(cfg FeedForwardConfig, seed int64) *FeedForward {
	return &FeedForward{cfg: cfg.withDefaults(), seed: seed}
}

func (f *FeedForward) Kind() models.Strategy {
	return models.StrategyFeedForward
}

// ffPass holds the per-layer buffers of one forward evaluation.
type ffPass struct {
	z    []*mat.Dense
	act  []*mat.Dense
	mask []*mat.Dense
}

func (f *FeedForward) newPass(rows int, alloc func(r, c int) *mat.Dense, dropout bool) *ffPass {
	layers := len(f.weights)
	p := &ffPass{
		z:    make([]*mat.Dense, layers),
		act:  make([]*mat.Dense, layers-1),
		mask: make([]*mat.Dense, layers-1),
	}
	for l := 0; l < layers; l++ {
		p.z[l] = alloc(rows, f.sizes[l+1])
		if l < layers-1 {
			p.act[l] = alloc(rows, f.sizes[l+1])
			if dropout && f.dropoutAt(l) > 0 {
				p.mask[l] = alloc(rows, f.sizes[l+1])
			}
		}
	}
	return p
}

func (f *FeedForward) dropoutAt(l int) float64 {
	if l < len(f.cfg.Dropout) {
		return f.cfg.Dropout[l]
	}
	return 0
}

// forward runs x through the network and returns the output column. When
// rng is non-nil fresh inverted-dropout masks are drawn.
func (f *FeedForward) forward(x mat.Matrix, p *ffPass, rng *rand.Rand) *mat.Dense {
	in := x
	last := len(f.weights) - 1
	for l, w := range f.weights {
		p.z[l].Mul(in, w)
		addRow(p.z[l], f.biases[l])
		if l == last {
			break
		}
		p.act[l].Apply(relu, p.z[l])
		if rng != nil && p.mask[l] != nil {
			rate := f.dropoutAt(l)
			keep := 1 / (1 - rate)
			data := p.mask[l].RawMatrix().Data
			for i := range data {
				if rng.Float64() < rate {
					data[i] = 0
				} else {
					data[i] = keep
				}
			}
			p.act[l].MulElem(p.act[l], p.mask[l])
		}
		in = p.act[l]
	}
	return p.z[last]
}

func (f *FeedForward) Fit(ctx context.Context, set *training.Set) error {
	if f.buf.released {
		return ErrReleased
	}
	if err := checkExamples(set, models.StrategyFeedForward); err != nil {
		return err
	}

	n, dim := set.Len(), set.Dim()
	rng := rand.New(rand.NewSource(f.seed))

	f.sizes = append([]int{dim}, f.cfg.Hidden...)
	f.sizes = append(f.sizes, 1)
	f.weights = f.weights[:0]
	f.biases = f.biases[:0]
	opt := newAdam(f.cfg.LearningRate)
	gradW := make([]*mat.Dense, 0, len(f.sizes)-1)
	gradB := make([]*mat.Dense, 0, len(f.sizes)-1)
	for l := 0; l < len(f.sizes)-1; l++ {
		w := f.buf.dense(f.sizes[l], f.sizes[l+1])
		initNormal(w, rng, heStd(f.sizes[l]))
		b := f.buf.dense(1, f.sizes[l+1])
		f.weights = append(f.weights, w)
		f.biases = append(f.biases, b)
		gradW = append(gradW, opt.track(&f.buf, w))
		gradB = append(gradB, opt.track(&f.buf, b))
	}

	f.inputs = columnScalers(set.Features, dim)
	f.label = fitScaler(set.Labels)
	x := f.buf.dense(n, dim)
	y := f.buf.dense(n, 1)
	for i, row := range set.Features {
		for j, v := range row {
			x.Set(i, j, f.inputs[j].apply(v))
		}
		y.Set(i, 0, f.label.apply(set.Labels[i]))
	}

	pass := f.newPass(n, f.buf.dense, true)
	deltas := make([]*mat.Dense, len(f.weights))
	for l := range deltas {
		deltas[l] = f.buf.dense(n, f.sizes[l+1])
	}

	for epoch := 0; epoch < f.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := f.forward(x, pass, rng)
		f.loss = meanSquared(out, y)

		last := len(f.weights) - 1
		deltas[last].Sub(out, y)
		deltas[last].Scale(2/float64(n), deltas[last])
		for l := last; l >= 0; l-- {
			var prev mat.Matrix = x
			if l > 0 {
				prev = pass.act[l-1]
			}
			gradW[l].Mul(prev.T(), deltas[l])
			sumColumns(gradB[l], deltas[l])
			if l == 0 {
				break
			}
			// Propagate through the pre-update weights.
			d := deltas[l-1]
			d.Mul(deltas[l], f.weights[l].T())
			z := pass.z[l-1]
			d.Apply(func(i, j int, v float64) float64 {
				if z.At(i, j) <= 0 {
					return 0
				}
				return v
			}, d)
			if m := pass.mask[l-1]; m != nil {
				d.MulElem(d, m)
			}
		}
		opt.update()
	}

	if !finite(f.loss) || !opt.finiteParams() {
		return fmt.Errorf("feed-forward after %d epochs: %w", f.cfg.Epochs, ErrDiverged)
	}
	f.fitted = true
	return nil
}

func (f *FeedForward) PredictOne(feature []float64) (float64, error) {
	if f.buf.released {
		return 0, ErrReleased
	}
	if !f.fitted {
		return 0, ErrNotFitted
	}
	if len(feature) != f.sizes[0] {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrFeatureShape, f.sizes[0], len(feature))
	}
	scaled := make([]float64, len(feature))
	for j, v := range feature {
		scaled[j] = f.inputs[j].apply(v)
	}
	pass := f.newPass(1, func(r, c int) *mat.Dense { return mat.NewDense(r, c, nil) }, false)
	out := f.forward(mat.NewDense(1, len(scaled), scaled), pass, nil)
	return f.label.invert(out.At(0, 0)), nil
}

// Loss returns the training loss of the final epoch in scaled units.
func (f *FeedForward) Loss() float64 {
	return f.loss
}

func (f *FeedForward) Release() {
	f.buf.release()
	f.weights = nil
	f.biases = nil
	f.fitted = false
}
