package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Engine validation
	e := c.Engine
	if s := models.Strategy(e.DefaultStrategy); !s.IsValid() {
		errs = append(errs, fmt.Errorf("engine.default_strategy %q is not a known strategy", e.DefaultStrategy))
	}
	if e.ConfidenceLevel <= 0 || e.ConfidenceLevel > 100 {
		errs = append(errs, errors.New("engine.confidence_level must be in (0, 100]"))
	}
	if e.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("engine.max_concurrency must be positive"))
	}
	if e.TrainingTimeout < 0 {
		errs = append(errs, errors.New("engine.training_timeout must not be negative"))
	}
	if len(e.EnsembleMembers) < 2 {
		errs = append(errs, errors.New("engine.ensemble_members must name at least two strategies"))
	}
	for _, m := range e.EnsembleMembers {
		if !models.Strategy(m).IsModel() {
			errs = append(errs, fmt.Errorf("engine.ensemble_members: %q is not a model strategy", m))
		}
	}
	if e.FeedForward.Epochs <= 0 {
		errs = append(errs, errors.New("engine.feed_forward.epochs must be positive"))
	}
	if e.FeedForward.LearningRate <= 0 {
		errs = append(errs, errors.New("engine.feed_forward.learning_rate must be positive"))
	}
	for _, h := range e.FeedForward.Hidden {
		if h <= 0 {
			errs = append(errs, errors.New("engine.feed_forward.hidden sizes must be positive"))
			break
		}
	}
	for _, d := range e.FeedForward.Dropout {
		if d < 0 || d >= 1 {
			errs = append(errs, errors.New("engine.feed_forward.dropout rates must be in [0, 1)"))
			break
		}
	}
	if e.Sequence.Window <= 0 {
		errs = append(errs, errors.New("engine.sequence.window must be positive"))
	}
	if e.Sequence.Epochs <= 0 || e.Sequence.Hidden <= 0 {
		errs = append(errs, errors.New("engine.sequence.epochs and hidden must be positive"))
	}
	if e.Polynomial.Degree < 1 || e.Polynomial.Degree > 6 {
		errs = append(errs, errors.New("engine.polynomial.degree must be between 1 and 6"))
	}
	if e.Breaker.Enabled && (e.Breaker.MaxFailures <= 0 || e.Breaker.Timeout <= 0) {
		errs = append(errs, errors.New("engine.breaker.max_failures and timeout must be positive"))
	}
	if e.Cache.Enabled && e.Cache.Size <= 0 {
		errs = append(errs, errors.New("engine.cache.size must be positive"))
	}

	// Database validation
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
		if c.Database.RetentionRuns < 0 {
			errs = append(errs, errors.New("database.retention_runs must not be negative"))
		}
		if c.Database.RetentionRuns > 0 && c.Database.PruneInterval <= 0 {
			errs = append(errs, errors.New("database.prune_interval must be positive when retention is enabled"))
		}
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.RateLimit > 0 && c.API.RateBurst <= 0 {
		errs = append(errs, errors.New("api.rate_burst must be positive when rate limiting"))
	}
	if c.API.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("api.max_body_bytes must be positive"))
	}
	if c.API.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("api.max_batch_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
