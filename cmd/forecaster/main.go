package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/config"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// rootOptions are the flags every command shares.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "forecaster",
		Short:         "Forecast business metrics against their baseline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newPredictCmd(opts))
	cmd.AddCommand(newEvaluateCmd(opts))
	cmd.AddCommand(newBacktestCmd(opts))
	cmd.AddCommand(newSimulateCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))

	return cmd
}

// load reads and validates the configuration and sets up logging.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.App.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

// offlineEngine is an engine without metrics or events, for one-shot
// commands. Logs go to stderr so stdout carries only the result.
func (o *rootOptions) offlineEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return engine.New(engine.FromSettings(cfg.Engine)), nil
}

// readInput decodes JSON from path, or from stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string, dst interface{}) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// predictionFlags are the options shared by predict and backtest.
type predictionFlags struct {
	input        string
	strategy     string
	confidence   float64
	seasonality  bool
	noTrend      bool
	changedFlags func(name string) bool
}

func (p *predictionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.input, "input", "i", "-", "JSON metric series file, - for stdin")
	cmd.Flags().StringVarP(&p.strategy, "strategy", "s", "", "strategy (default from config)")
	cmd.Flags().Float64Var(&p.confidence, "confidence", 0, "confidence level in percent")
	cmd.Flags().BoolVar(&p.seasonality, "seasonality", false, "apply the seasonal adjustment")
	cmd.Flags().BoolVar(&p.noTrend, "no-trend", false, "disable trend features")
	p.changedFlags = func(name string) bool { return cmd.Flags().Changed(name) }
}

// options layers the flags that were set over the engine defaults.
func (p *predictionFlags) options(defaults models.PredictionOptions) models.PredictionOptions {
	opts := defaults
	opts.Strategy = models.Strategy(p.strategy)
	if p.confidence != 0 {
		opts.ConfidenceLevel = p.confidence
	}
	if p.changedFlags("seasonality") {
		opts.ApplySeasonality = p.seasonality
	}
	if p.changedFlags("no-trend") {
		opts.ApplyTrendAnalysis = !p.noTrend
	}
	return opts
}
