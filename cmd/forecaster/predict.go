package main

import (
	"github.com/spf13/cobra"

	"github.com/OldStager01/finy-forecast/api/handlers"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

func newPredictCmd(root *rootOptions) *cobra.Command {
	flags := &predictionFlags{}
	var intervals bool

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast one metric series read as JSON",
		Example: `  forecaster predict -i series.json -s ensemble
  cat series.json | forecaster predict --intervals --confidence 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := root.offlineEngine(cmd)
			if err != nil {
				return err
			}

			var series models.MetricSeries
			if err := readInput(cmd, flags.input, &series); err != nil {
				return err
			}
			opts := flags.options(eng.Config().Defaults)

			if intervals {
				f, err := eng.GenerateIntervals(cmd.Context(), &series, "", opts)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), f)
			}

			f, err := eng.Forecast(cmd.Context(), &series, "", opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), f)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&intervals, "intervals", false, "wrap each prediction in a confidence interval")

	return cmd
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score predictions against observed actual values",
		Long: `Reads {"predictions": [...], "actual": [...], "observed": [...]} and
prints MSE, MAE and RMSE over the observed periods.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := root.offlineEngine(cmd)
			if err != nil {
				return err
			}

			var req handlers.EvaluateRequest
			if err := readInput(cmd, input, &req); err != nil {
				return err
			}

			eval, err := eng.EvaluateModel(req.Predictions, req.Actual, req.Observed)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), eval)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON evaluation file, - for stdin")

	return cmd
}

func newBacktestCmd(root *rootOptions) *cobra.Command {
	flags := &predictionFlags{}
	var holdout int

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Hide the last observed periods, forecast them and score the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := root.offlineEngine(cmd)
			if err != nil {
				return err
			}

			var series models.MetricSeries
			if err := readInput(cmd, flags.input, &series); err != nil {
				return err
			}

			res, err := eng.Backtest(cmd.Context(), &series, "", flags.options(eng.Config().Defaults), holdout)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&holdout, "holdout", 3, "number of trailing observed periods to hide")

	return cmd
}
