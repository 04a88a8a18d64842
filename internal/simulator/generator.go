// Package simulator generates synthetic metric series for demos, load tests
// and the simulate command.
package simulator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

type Options struct {
	ID              string
	Name            string
	FinancialImpact models.FinancialImpactType
	Periods         int
	// Observed is how many leading periods carry an actual value.
	Observed     int
	BaselineBase float64
	// BaselineDrift is the per-period relative drift of the baseline.
	BaselineDrift float64
	Pattern       Pattern
	Seed          int64
}

func (o Options) withDefaults() Options {
	if o.Periods <= 0 {
		o.Periods = 12
	}
	if o.Observed < 0 {
		o.Observed = 0
	}
	if o.Observed > o.Periods {
		o.Observed = o.Periods
	}
	if o.BaselineBase <= 0 {
		o.BaselineBase = 100
	}
	if o.FinancialImpact == "" {
		o.FinancialImpact = models.ImpactCostReduction
	}
	if o.Pattern == nil {
		o.Pattern = PatternSteady
	}
	if o.ID == "" {
		o.ID = models.NewUUID()
	}
	if o.Name == "" {
		o.Name = fmt.Sprintf("synthetic %s", o.Pattern.Name())
	}
	return o
}

type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds one series. Observed actual values are strictly positive
// so the series reads the same with or without explicit observed flags.
func Generate(opts Options) *models.MetricSeries {
	opts = opts.withDefaults()
	return NewGenerator(opts.Seed).generate(opts)
}

func (g *Generator) generate(opts Options) *models.MetricSeries {
	s := &models.MetricSeries{
		ID:              opts.ID,
		Name:            opts.Name,
		Category:        "synthetic",
		Unit:            "units",
		FinancialImpact: opts.FinancialImpact,
		Baseline:        make([]float64, opts.Periods),
		Actual:          make([]float64, opts.Periods),
		Observed:        make([]bool, opts.Periods),
	}
	for i := 0; i < opts.Periods; i++ {
		s.Baseline[i] = round2(opts.BaselineBase * (1 + opts.BaselineDrift*float64(i)))
		if s.Baseline[i] < 0 {
			s.Baseline[i] = 0
		}
		if i < opts.Observed {
			v := opts.Pattern.Apply(s.Baseline[i], i, opts.Periods, g.rng)
			s.Actual[i] = math.Max(0.01, round2(v))
			s.Observed[i] = true
		}
	}
	return s
}

// Batch generates count series cycling through every pattern.
func (g *Generator) Batch(count int, opts Options) []*models.MetricSeries {
	patterns := PatternNames()
	impacts := []models.FinancialImpactType{
		models.ImpactCostReduction,
		models.ImpactRevenueIncrease,
		models.ImpactCostAvoidance,
	}
	out := make([]*models.MetricSeries, 0, count)
	for k := 0; k < count; k++ {
		o := opts
		o.ID = fmt.Sprintf("synthetic-%03d", k+1)
		o.Name = ""
		o.Pattern = ParsePattern(patterns[k%len(patterns)])
		o.FinancialImpact = impacts[k%len(impacts)]
		out = append(out, g.generate(o.withDefaults()))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
