// Package ensemble averages the full prediction sequences of several
// strategies.
package ensemble

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

var ErrNoMembers = errors.New("no ensemble member produced a prediction")

// DefaultMembers are combined when no member list is configured.
var DefaultMembers = []models.Strategy{models.StrategyLinear, models.StrategyFeedForward}

// Member is the outcome of running one constituent strategy.
type Member struct {
	Kind   models.Strategy
	Values []float64
	Err    error
}

// Result is the combined sequence and the members that contributed to it.
type Result struct {
	Values   []float64
	Included []models.Strategy
	Excluded []models.Strategy
}

// Combine returns, for every unobserved period, the arithmetic mean of the
// successful members. Observed periods pass through. Failed members are
// excluded rather than counted as zero.
func Combine(series *models.MetricSeries, members []Member) (*Result, error) {
	n := series.Periods()
	res := &Result{}
	var ok []Member
	for _, m := range members {
		if m.Err != nil {
			res.Excluded = append(res.Excluded, m.Kind)
			continue
		}
		if len(m.Values) != n {
			return nil, fmt.Errorf("member %s returned %d periods, want %d", m.Kind, len(m.Values), n)
		}
		ok = append(ok, m)
		res.Included = append(res.Included, m.Kind)
	}
	if len(ok) == 0 {
		return res, ErrNoMembers
	}

	res.Values = make([]float64, n)
	column := make([]float64, len(ok))
	for i := 0; i < n; i++ {
		if series.IsObserved(i) {
			res.Values[i] = series.Actual[i]
			continue
		}
		for k, m := range ok {
			column[k] = m.Values[i]
		}
		res.Values[i] = stat.Mean(column, nil)
	}
	return res, nil
}
