package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

func testSeries(n int, actual ...float64) *models.MetricSeries {
	s := &models.MetricSeries{
		ID:              "m-1",
		FinancialImpact: models.ImpactCostReduction,
		Baseline:        make([]float64, n),
		Actual:          make([]float64, n),
	}
	for i := range s.Baseline {
		s.Baseline[i] = 100 + 2*float64(i)
	}
	copy(s.Actual, actual)
	return s
}

func fitted(t *testing.T, kind models.Strategy, series *models.MetricSeries, cfg Config) (Strategy, *training.Set) {
	t.Helper()
	set, err := training.Build(series, kind, training.Params{UseTrend: true})
	require.NoError(t, err)
	s, err := New(kind, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Fit(context.Background(), set))
	t.Cleanup(s.Release)
	return s, set
}

func fastConfig() Config {
	return Config{
		Seed:        42,
		FeedForward: FeedForwardConfig{Epochs: 60},
		Sequence:    SequenceConfig{Epochs: 40},
	}
}

func TestLinear_ExactLine(t *testing.T) {
	series := testSeries(8, 10, 12, 14, 16)
	s, set := fitted(t, models.StrategyLinear, series, Config{})

	intercept, slope := s.(*Linear).Coefficients()
	assert.InDelta(t, 10, intercept, 1e-9)
	assert.InDelta(t, 2, slope, 1e-9)

	out, err := PredictSeries(s, set, series)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 14, 16}, out[:4])
	assert.InDelta(t, 18, out[4], 1e-9)
	assert.InDelta(t, 24, out[7], 1e-9)
}

func TestLinear_FloorsAtZero(t *testing.T) {
	series := testSeries(8, 30, 20, 10)
	s, set := fitted(t, models.StrategyLinear, series, Config{})

	out, err := PredictSeries(s, set, series)
	require.NoError(t, err)
	for i := 3; i < 8; i++ {
		assert.GreaterOrEqual(t, out[i], 0.0)
	}
	assert.Equal(t, 0.0, out[7])
}

func TestPolynomial_ExactQuadratic(t *testing.T) {
	// y = 1 + x + x^2
	series := testSeries(6, 1, 3, 7, 13)
	s, set := fitted(t, models.StrategyPolynomial, series, Config{})

	coef := s.(*Polynomial).Coefficients()
	require.Len(t, coef, 3)
	assert.InDelta(t, 1, coef[0], 1e-6)
	assert.InDelta(t, 1, coef[1], 1e-6)
	assert.InDelta(t, 1, coef[2], 1e-6)

	out, err := PredictSeries(s, set, series)
	require.NoError(t, err)
	assert.InDelta(t, 21, out[4], 1e-6)
	assert.InDelta(t, 31, out[5], 1e-6)
}

func TestPolynomial_FeatureShape(t *testing.T) {
	s, _ := fitted(t, models.StrategyPolynomial, testSeries(6, 1, 3, 7, 13), Config{})
	_, err := s.PredictOne([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureShape)
}

func TestNetworks_FiniteAndDeterministic(t *testing.T) {
	series := testSeries(12, 95, 97, 99, 100, 104, 106, 107, 110, 111)

	for _, kind := range []models.Strategy{models.StrategyFeedForward, models.StrategySequence} {
		t.Run(string(kind), func(t *testing.T) {
			a, setA := fitted(t, kind, series, fastConfig())
			b, setB := fitted(t, kind, series, fastConfig())

			outA, err := PredictSeries(a, setA, series)
			require.NoError(t, err)
			outB, err := PredictSeries(b, setB, series)
			require.NoError(t, err)

			require.Len(t, outA, 12)
			for i, v := range outA {
				assert.False(t, v < 0, "period %d negative", i)
				assert.InDelta(t, v, outB[i], 1e-9, "period %d not reproducible", i)
			}
			assert.Equal(t, series.Actual[:9], outA[:9])
		})
	}
}

func TestNetworks_SeedChangesWeights(t *testing.T) {
	series := testSeries(12, 95, 97, 99, 100, 104, 106, 107, 110, 111)

	cfgA := fastConfig()
	cfgB := fastConfig()
	cfgB.Seed = 7

	a, setA := fitted(t, models.StrategyFeedForward, series, cfgA)
	b, _ := fitted(t, models.StrategyFeedForward, series, cfgB)

	vec, ok := setA.Feature(10)
	require.True(t, ok)
	pa, err := a.PredictOne(vec)
	require.NoError(t, err)
	pb, err := b.PredictOne(vec)
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)
}

func TestSequence_EarlyPeriodsKeepBaseline(t *testing.T) {
	series := testSeries(12, 0, 0, 0, 0, 0, 0, 107, 110, 111)
	series.Observed = []bool{false, false, false, false, false, false, true, true, true, false, false, false}

	s, set := fitted(t, models.StrategySequence, series, fastConfig())
	out, err := PredictSeries(s, set, series)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		assert.Equal(t, series.Baseline[i], out[i])
	}
}

func TestFit_InsufficientData(t *testing.T) {
	set, err := training.Build(testSeries(8, 5), models.StrategyLinear, training.Params{})
	require.ErrorIs(t, err, training.ErrInsufficientData)

	s := NewLinear()
	defer s.Release()
	assert.ErrorIs(t, s.Fit(context.Background(), set), training.ErrInsufficientData)
}

func TestFit_ContextCancelled(t *testing.T) {
	series := testSeries(12, 95, 97, 99, 100, 104, 106, 107, 110, 111)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, kind := range []models.Strategy{models.StrategyFeedForward, models.StrategySequence} {
		set, err := training.Build(series, kind, training.Params{})
		require.NoError(t, err)
		s, err := New(kind, fastConfig())
		require.NoError(t, err)
		assert.ErrorIs(t, s.Fit(ctx, set), context.Canceled)
		s.Release()
	}
}

func TestRelease(t *testing.T) {
	series := testSeries(12, 95, 97, 99, 100, 104, 106, 107, 110, 111)

	for _, kind := range []models.Strategy{
		models.StrategyLinear,
		models.StrategyPolynomial,
		models.StrategyFeedForward,
		models.StrategySequence,
	} {
		t.Run(string(kind), func(t *testing.T) {
			set, err := training.Build(series, kind, training.Params{})
			require.NoError(t, err)
			s, err := New(kind, fastConfig())
			require.NoError(t, err)
			require.NoError(t, s.Fit(context.Background(), set))

			vec, ok := set.Feature(10)
			require.True(t, ok)

			s.Release()
			s.Release()

			_, err = s.PredictOne(vec)
			assert.ErrorIs(t, err, ErrReleased)
			assert.ErrorIs(t, s.Fit(context.Background(), set), ErrReleased)
		})
	}
}

func TestPredictOne_NotFitted(t *testing.T) {
	s := NewFeedForward(FeedForwardConfig{}, 1)
	_, err := s.PredictOne(make([]float64, 5))
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New(models.StrategyEnsemble, Config{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestArena_Release(t *testing.T) {
	var a arena
	a.dense(2, 2)
	a.dense(3, 1)
	assert.Equal(t, 2, a.live())

	a.release()
	assert.Equal(t, 0, a.live())
	assert.True(t, a.released)
}

func TestScaler(t *testing.T) {
	s := fitScaler([]float64{2, 4, 6})
	assert.InDelta(t, 0, s.apply(4), 1e-12)
	assert.InDelta(t, 6, s.invert(s.apply(6)), 1e-12)

	constant := fitScaler([]float64{5, 5, 5})
	assert.Equal(t, 1.0, constant.std)
	assert.Equal(t, 0.0, constant.apply(5))
}
