package strategy

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

const gradClip = 5.0

type SequenceConfig struct {
	Window       int
	Epochs       int
	Hidden       int
	LearningRate float64
}

func (c SequenceConfig) withDefaults() SequenceConfig {
	if c.Window <= 0 {
		c.Window = training.DefaultSequenceWindow
	}
	if c.Epochs <= 0 {
		c.Epochs = 100
	}
	if c.Hidden <= 0 {
		c.Hidden = 16
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.01
	}
	return c
}

// Sequence is a single-layer Elman recurrent network that reads a window of
// preceding baseline values and regresses the next actual value. Training
// uses backpropagation through time with gradient-norm clipping.
type Sequence struct {
	cfg  SequenceConfig
	seed int64
	buf  arena

	wx, wh, bh *mat.Dense // input, recurrent, hidden bias
	wy, by     *mat.Dense // readout
	window     int
	input      scaler
	label      scaler
	loss       float64
	fitted     bool
}

func NewSequence(cfg SequenceConfig, seed int64) *Sequence {
	return &Sequence{cfg: cfg.withDefaults(), seed: seed}
}

func (s *Sequence) Kind() models.Strategy {
	return models.StrategySequence
}

// Window returns the number of predecessor periods the network reads.
func (s *Sequence) Window() int {
	return s.cfg.Window
}

// unroll runs the recurrence over steps (each rows×1) and fills hs[1:] with
// hidden states. hs[0] must be zero.
func (s *Sequence) unroll(steps []*mat.Dense, hs []*mat.Dense, tmp *mat.Dense) {
	for t, x := range steps {
		h := hs[t+1]
		h.Mul(x, s.wx)
		tmp.Mul(hs[t], s.wh)
		h.Add(h, tmp)
		addRow(h, s.bh)
		h.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, h)
	}
}

func (s *Sequence) Fit(ctx context.Context, set *training.Set) error {
	if s.buf.released {
		return ErrReleased
	}
	if err := checkExamples(set, models.StrategySequence); err != nil {
		return err
	}

	n, w, hidden := set.Len(), set.Dim(), s.cfg.Hidden
	s.window = w
	rng := rand.New(rand.NewSource(s.seed))
	opt := newAdam(s.cfg.LearningRate)

	s.wx = s.buf.dense(1, hidden)
	s.wh = s.buf.dense(hidden, hidden)
	s.bh = s.buf.dense(1, hidden)
	s.wy = s.buf.dense(hidden, 1)
	s.by = s.buf.dense(1, 1)
	initNormal(s.wx, rng, 1)
	initNormal(s.wh, rng, 1/math.Sqrt(float64(hidden)))
	initNormal(s.wy, rng, 1/math.Sqrt(float64(hidden)))
	gwx := opt.track(&s.buf, s.wx)
	gwh := opt.track(&s.buf, s.wh)
	gbh := opt.track(&s.buf, s.bh)
	gwy := opt.track(&s.buf, s.wy)
	gby := opt.track(&s.buf, s.by)

	var all []float64
	for _, f := range set.Features {
		all = append(all, f...)
	}
	s.input = fitScaler(all)
	s.label = fitScaler(set.Labels)

	steps := make([]*mat.Dense, w)
	for t := range steps {
		steps[t] = s.buf.dense(n, 1)
		for i, f := range set.Features {
			steps[t].Set(i, 0, s.input.apply(f[t]))
		}
	}
	y := s.buf.dense(n, 1)
	for i, v := range set.Labels {
		y.Set(i, 0, s.label.apply(v))
	}

	hs := make([]*mat.Dense, w+1)
	for t := range hs {
		hs[t] = s.buf.dense(n, hidden)
	}
	tmp := s.buf.dense(n, hidden)
	out := s.buf.dense(n, 1)
	dOut := s.buf.dense(n, 1)
	dh := s.buf.dense(n, hidden)
	dz := s.buf.dense(n, hidden)
	g1 := s.buf.dense(1, hidden)
	gh := s.buf.dense(hidden, hidden)

	for epoch := 0; epoch < s.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.unroll(steps, hs, tmp)
		out.Mul(hs[w], s.wy)
		addRow(out, s.by)
		s.loss = meanSquared(out, y)

		opt.zeroGrad()
		dOut.Sub(out, y)
		dOut.Scale(2/float64(n), dOut)
		gwy.Mul(hs[w].T(), dOut)
		sumColumns(gby, dOut)
		dh.Mul(dOut, s.wy.T())

		for t := w; t >= 1; t-- {
			h := hs[t]
			dz.Apply(func(i, j int, v float64) float64 {
				a := h.At(i, j)
				return v * (1 - a*a)
			}, dh)
			g1.Mul(steps[t-1].T(), dz)
			gwx.Add(gwx, g1)
			gh.Mul(hs[t-1].T(), dz)
			gwh.Add(gwh, gh)
			sumColumns(g1, dz)
			gbh.Add(gbh, g1)
			dh.Mul(dz, s.wh.T())
		}

		opt.clip(gradClip)
		opt.update()
	}

	if !finite(s.loss) || !opt.finiteParams() {
		return fmt.Errorf("sequence after %d epochs: %w", s.cfg.Epochs, ErrDiverged)
	}
	s.fitted = true
	return nil
}

func (s *Sequence) PredictOne(feature []float64) (float64, error) {
	if s.buf.released {
		return 0, ErrReleased
	}
	if !s.fitted {
		return 0, ErrNotFitted
	}
	if len(feature) != s.window {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrFeatureShape, s.window, len(feature))
	}

	hidden := s.cfg.Hidden
	steps := make([]*mat.Dense, s.window)
	for t, v := range feature {
		steps[t] = mat.NewDense(1, 1, []float64{s.input.apply(v)})
	}
	hs := make([]*mat.Dense, s.window+1)
	for t := range hs {
		hs[t] = mat.NewDense(1, hidden, nil)
	}
	s.unroll(steps, hs, mat.NewDense(1, hidden, nil))

	var out mat.Dense
	out.Mul(hs[s.window], s.wy)
	return s.label.invert(out.At(0, 0) + s.by.At(0, 0)), nil
}

// Loss returns the training loss of the final epoch in scaled units.
func (s *Sequence) Loss() float64 {
	return s.loss
}

func (s *Sequence) Release() {
	s.buf.release()
	s.wx, s.wh, s.bh, s.wy, s.by = nil, nil, nil, nil, nil
	s.fitted = false
}
