package simulator

import (
	"math"
	"math/rand"
)

// Pattern shapes the actual value of period i of n relative to its baseline.
type Pattern interface {
	Apply(baseline float64, i, n int, rng *rand.Rand) float64
	Name() string
}

var (
	PatternSteady             Pattern = &SteadyPattern{}
	PatternGradualImprovement Pattern = &GradualImprovementPattern{Step: 0.03}
	PatternSeasonal           Pattern = &SeasonalPattern{Amplitude: 0.15}
	PatternNoisy              Pattern = &NoisyPattern{Spread: 0.2}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "gradual_improvement":
		return PatternGradualImprovement
	case "seasonal":
		return PatternSeasonal
	case "noisy":
		return PatternNoisy
	default:
		return PatternSteady
	}
}

// PatternNames lists the names ParsePattern understands.
func PatternNames() []string {
	return []string{"steady", "gradual_improvement", "seasonal", "noisy"}
}

// SteadyPattern - actual tracks the baseline
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(baseline float64, _, _ int, _ *rand.Rand) float64 {
	return baseline
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// GradualImprovementPattern - compounding change of Step per period.
// A negative Step models a falling cost.
type GradualImprovementPattern struct {
	Step float64
}

func (p *GradualImprovementPattern) Apply(baseline float64, i, _ int, _ *rand.Rand) float64 {
	return baseline * math.Pow(1+p.Step, float64(i+1))
}

func (p *GradualImprovementPattern) Name() string {
	return "gradual_improvement"
}

// SeasonalPattern - one full cycle across the period count
type SeasonalPattern struct {
	Amplitude float64
}

func (p *SeasonalPattern) Apply(baseline float64, i, n int, _ *rand.Rand) float64 {
	if n <= 0 {
		return baseline
	}
	return baseline * (1 + p.Amplitude*math.Sin(2*math.Pi*float64(i)/float64(n)))
}

func (p *SeasonalPattern) Name() string {
	return "seasonal"
}

// NoisyPattern - uniform noise of ±Spread around the baseline
type NoisyPattern struct {
	Spread float64
}

func (p *NoisyPattern) Apply(baseline float64, _, _ int, rng *rand.Rand) float64 {
	modifier := 1 - p.Spread + 2*p.Spread*rng.Float64()
	return baseline * modifier
}

func (p *NoisyPattern) Name() string {
	return "noisy"
}
