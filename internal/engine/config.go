package engine

import (
	"time"

	"github.com/OldStager01/finy-forecast/internal/ensemble"
	"github.com/OldStager01/finy-forecast/internal/strategy"
	"github.com/OldStager01/finy-forecast/internal/training"
	"github.com/OldStager01/finy-forecast/pkg/config"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

type BreakerConfig struct {
	Enabled     bool
	MaxFailures int
	Timeout     time.Duration
}

type Config struct {
	DefaultStrategy  models.Strategy
	Defaults         models.PredictionOptions
	MaxConcurrency   int
	TrainingTimeout  time.Duration
	EnsembleMembers  []models.Strategy
	PolynomialDegree int
	Strategy         strategy.Config
	Breaker          BreakerConfig
}

// DefaultConfig mirrors the configuration file defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy:  models.StrategyLinear,
		Defaults:         models.DefaultPredictionOptions(),
		MaxConcurrency:   4,
		EnsembleMembers:  ensemble.DefaultMembers,
		PolynomialDegree: training.DefaultPolynomialDegree,
		Strategy: strategy.Config{
			Seed:     42,
			Sequence: strategy.SequenceConfig{Window: training.DefaultSequenceWindow},
		},
		Breaker: BreakerConfig{Enabled: true, MaxFailures: 5, Timeout: 30 * time.Second},
	}
}

// FromSettings maps the engine section of the application configuration.
func FromSettings(c config.EngineConfig) Config {
	members := make([]models.Strategy, 0, len(c.EnsembleMembers))
	for _, m := range c.EnsembleMembers {
		members = append(members, models.Strategy(m))
	}
	return Config{
		DefaultStrategy: models.Strategy(c.DefaultStrategy),
		Defaults: models.PredictionOptions{
			ConfidenceLevel:    c.ConfidenceLevel,
			ApplySeasonality:   c.ApplySeasonality,
			ApplyTrendAnalysis: c.ApplyTrendAnalysis,
		},
		MaxConcurrency:   c.MaxConcurrency,
		TrainingTimeout:  c.TrainingTimeout,
		EnsembleMembers:  members,
		PolynomialDegree: c.Polynomial.Degree,
		Strategy: strategy.Config{
			Seed: c.Seed,
			FeedForward: strategy.FeedForwardConfig{
				Epochs:       c.FeedForward.Epochs,
				LearningRate: c.FeedForward.LearningRate,
				Hidden:       c.FeedForward.Hidden,
				Dropout:      c.FeedForward.Dropout,
			},
			Sequence: strategy.SequenceConfig{
				Window:       c.Sequence.Window,
				Epochs:       c.Sequence.Epochs,
				Hidden:       c.Sequence.Hidden,
				LearningRate: c.Sequence.LearningRate,
			},
		},
		Breaker: BreakerConfig{
			Enabled:     c.Breaker.Enabled,
			MaxFailures: c.Breaker.MaxFailures,
			Timeout:     c.Breaker.Timeout,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !c.DefaultStrategy.IsValid() {
		c.DefaultStrategy = d.DefaultStrategy
	}
	if c.Defaults.ConfidenceLevel <= 0 {
		c.Defaults.ConfidenceLevel = d.Defaults.ConfidenceLevel
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if len(c.EnsembleMembers) == 0 {
		c.EnsembleMembers = d.EnsembleMembers
	}
	if c.PolynomialDegree <= 0 {
		c.PolynomialDegree = d.PolynomialDegree
	}
	if c.Strategy.Sequence.Window <= 0 {
		c.Strategy.Sequence.Window = d.Strategy.Sequence.Window
	}
	return c
}

func (c Config) trainingParams(opts models.PredictionOptions) training.Params {
	return training.Params{
		SequenceWindow:   c.Strategy.Sequence.Window,
		PolynomialDegree: c.PolynomialDegree,
		UseTrend:         opts.ApplyTrendAnalysis,
	}
}
