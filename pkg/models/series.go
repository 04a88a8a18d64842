package models

// FinancialImpactType classifies whether an improvement means lower or higher values.
type FinancialImpactType string

const (
	ImpactCostReduction   FinancialImpactType = "Cost Reduction"
	ImpactCostAvoidance   FinancialImpactType = "Cost Avoidance"
	ImpactRevenueIncrease FinancialImpactType = "Revenue Increase"
)

func (t FinancialImpactType) IsValid() bool {
	switch t {
	case ImpactCostReduction, ImpactCostAvoidance, ImpactRevenueIncrease:
		return true
	default:
		return false
	}
}

// MetricSeries is one tracked business metric with its baseline and the
// actual values observed so far.
//
// Observed marks which periods carry a real reading. When it is nil the
// legacy convention applies and a period is observed iff its actual value is
// positive.
type MetricSeries struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Category        string              `json:"category,omitempty"`
	Unit            string              `json:"unit,omitempty"`
	FinancialImpact FinancialImpactType `json:"financial_impact"`
	CostPerUnit     float64             `json:"cost_per_unit"`
	Baseline        []float64           `json:"baseline"`
	Actual          []float64           `json:"actual"`
	Observed        []bool              `json:"observed,omitempty"`
	Projected       []float64           `json:"projected,omitempty"`
}

// Periods returns the period count of the series.
func (s *MetricSeries) Periods() int {
	return len(s.Baseline)
}

// IsObserved reports whether period i carries an observed actual value.
func (s *MetricSeries) IsObserved(i int) bool {
	if i < 0 || i >= len(s.Actual) {
		return false
	}
	if s.Observed != nil {
		return i < len(s.Observed) && s.Observed[i]
	}
	return s.Actual[i] > 0
}

// ObservedMask returns the observed flag of every period.
func (s *MetricSeries) ObservedMask() []bool {
	mask := make([]bool, s.Periods())
	for i := range mask {
		mask[i] = s.IsObserved(i)
	}
	return mask
}

// ObservedCount returns how many periods carry an observed actual value.
func (s *MetricSeries) ObservedCount() int {
	count := 0
	for i := 0; i < s.Periods(); i++ {
		if s.IsObserved(i) {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers can mutate the copy freely.
func (s *MetricSeries) Clone() *MetricSeries {
	out := *s
	out.Baseline = append([]float64(nil), s.Baseline...)
	out.Actual = append([]float64(nil), s.Actual...)
	if s.Observed != nil {
		out.Observed = append([]bool(nil), s.Observed...)
	}
	if s.Projected != nil {
		out.Projected = append([]float64(nil), s.Projected...)
	}
	return &out
}
