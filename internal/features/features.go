// Package features derives trend, seasonality and volatility signals from a
// raw series. All functions are pure.
package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Window is the look-back used by Trend and Volatility.
const Window = 3

// FeedForwardDim is the length of the vector built by FeedForwardVector.
const FeedForwardDim = 5

// Trend is the mean step change over the last min(Window, i) steps ending at i.
func Trend(s []float64, i int) float64 {
	if i <= 0 || i >= len(s) {
		return 0
	}
	steps := minInt(Window, i)
	var sum float64
	for k := 1; k <= steps; k++ {
		sum += s[i-k+1] - s[i-k]
	}
	return sum / float64(steps)
}

// Seasonality is sin(2πi/n).
func Seasonality(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sin(2 * math.Pi * float64(i) / float64(n))
}

// Volatility is the sample standard deviation of the last min(Window, i+1)
// values ending at and including i. It is 0 for i < 2.
func Volatility(s []float64, i int) float64 {
	if i < 2 || i >= len(s) {
		return 0
	}
	size := minInt(Window, i+1)
	return stat.StdDev(s[i-size+1:i+1], nil)
}

// FeedForwardVector builds [baseline[i], i+1, trend, seasonality, volatility].
// The trend slot is zero when withTrend is false.
func FeedForwardVector(baseline []float64, i int, withTrend bool) []float64 {
	trend := 0.0
	if withTrend {
		trend = Trend(baseline, i)
	}
	return []float64{
		baseline[i],
		float64(i + 1),
		trend,
		Seasonality(i, len(baseline)),
		Volatility(baseline, i),
	}
}

// PolynomialVector expands x into [x^0 .. x^degree].
func PolynomialVector(x float64, degree int) []float64 {
	out := make([]float64, degree+1)
	p := 1.0
	for d := 0; d <= degree; d++ {
		out[d] = p
		p *= x
	}
	return out
}

// SequenceWindow returns the w baseline values preceding i, one per step.
// ok is false when fewer than w periods precede i.
func SequenceWindow(baseline []float64, i, w int) (window [][]float64, ok bool) {
	if i < w || i > len(baseline) {
		return nil, false
	}
	window = make([][]float64, w)
	for k := 0; k < w; k++ {
		window[k] = []float64{baseline[i-w+k]}
	}
	return window, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
