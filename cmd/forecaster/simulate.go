package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/simulator"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

type simulateFlags struct {
	count    int
	periods  int
	observed int
	pattern  string
	impact   string
	baseline float64
	drift    float64
	seed     int64
	forecast bool
	strategy string
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	flags := &simulateFlags{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate synthetic metric series, optionally forecasting them",
		Long: fmt.Sprintf(`Generates synthetic series as JSON. With --count above one the
series cycle through every pattern and financial impact.

Patterns: %s`, strings.Join(simulator.PatternNames(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			impact := models.FinancialImpactType(flags.impact)
			if !impact.IsValid() {
				return fmt.Errorf("unknown financial impact %q", flags.impact)
			}

			opts := simulator.Options{
				Periods:         flags.periods,
				Observed:        flags.observed,
				FinancialImpact: impact,
				BaselineBase:    flags.baseline,
				BaselineDrift:   flags.drift,
				Pattern:         simulator.ParsePattern(flags.pattern),
				Seed:            flags.seed,
			}

			var series []*models.MetricSeries
			if flags.count == 1 {
				series = []*models.MetricSeries{simulator.Generate(opts)}
			} else {
				series = simulator.NewGenerator(flags.seed).Batch(flags.count, opts)
			}

			if !flags.forecast {
				return writeJSON(cmd.OutOrStdout(), series)
			}

			eng, err := root.offlineEngine(cmd)
			if err != nil {
				return err
			}
			return forecastSummary(cmd, eng, series, models.Strategy(flags.strategy))
		},
	}

	cmd.Flags().IntVarP(&flags.count, "count", "n", 1, "number of series")
	cmd.Flags().IntVar(&flags.periods, "periods", 12, "periods per series")
	cmd.Flags().IntVar(&flags.observed, "observed", 8, "leading periods with an actual value")
	cmd.Flags().StringVar(&flags.pattern, "pattern", "steady", "actual value pattern")
	cmd.Flags().StringVar(&flags.impact, "impact", string(models.ImpactCostReduction), "financial impact type")
	cmd.Flags().Float64Var(&flags.baseline, "baseline", 100, "baseline value of the first period")
	cmd.Flags().Float64Var(&flags.drift, "drift", 0, "relative baseline drift per period")
	cmd.Flags().Int64Var(&flags.seed, "seed", 1, "random seed")
	cmd.Flags().BoolVar(&flags.forecast, "forecast", false, "forecast every series and print a summary")
	cmd.Flags().StringVarP(&flags.strategy, "strategy", "s", "", "strategy used with --forecast")

	return cmd
}

func forecastSummary(cmd *cobra.Command, eng *engine.Engine, series []*models.MetricSeries, kind models.Strategy) error {
	reqs := make([]engine.Request, len(series))
	for i, s := range series {
		reqs[i] = engine.Request{Series: s, Strategy: kind, Options: eng.Config().Defaults}
	}
	results := eng.ForecastAll(cmd.Context(), reqs)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tIMPACT\tUSED\tFALLBACK\tLAST")
	for i, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\t%s\terror: %v\t\t\n", res.MetricID, series[i].FinancialImpact, res.Err)
			continue
		}
		f := res.Forecast
		reason := "-"
		if f.Fallback {
			reason = string(f.FallbackReason)
		}
		last := 0.0
		if n := len(f.Values); n > 0 {
			last = f.Values[n-1]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", res.MetricID, series[i].FinancialImpact, f.Used, reason, last)
	}
	return w.Flush()
}
