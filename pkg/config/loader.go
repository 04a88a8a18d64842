package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/finy-forecast")
	}

	// Environment variable settings
	v.SetEnvPrefix("FINY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "finy-forecast")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Engine defaults
	v.SetDefault("engine.default_strategy", "linear_regression")
	v.SetDefault("engine.confidence_level", 95.0)
	v.SetDefault("engine.apply_seasonality", false)
	v.SetDefault("engine.apply_trend_analysis", true)
	v.SetDefault("engine.seed", 42)
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.training_timeout", "0s")
	v.SetDefault("engine.ensemble_members", []string{"linear_regression", "neural_network"})
	v.SetDefault("engine.feed_forward.epochs", 200)
	v.SetDefault("engine.feed_forward.learning_rate", 0.01)
	v.SetDefault("engine.feed_forward.hidden", []int{64, 32, 16})
	v.SetDefault("engine.feed_forward.dropout", []float64{0.2, 0.1})
	v.SetDefault("engine.sequence.window", 6)
	v.SetDefault("engine.sequence.epochs", 100)
	v.SetDefault("engine.sequence.hidden", 16)
	v.SetDefault("engine.sequence.learning_rate", 0.01)
	v.SetDefault("engine.polynomial.degree", 2)
	v.SetDefault("engine.breaker.enabled", true)
	v.SetDefault("engine.breaker.max_failures", 5)
	v.SetDefault("engine.breaker.timeout", "30s")
	v.SetDefault("engine.cache.enabled", false)
	v.SetDefault("engine.cache.size", 128)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "finy")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "60s")
	v.SetDefault("database.retention_runs", 100)
	v.SetDefault("database.prune_interval", "10m")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 20.0)
	v.SetDefault("api.rate_burst", 40)
	v.SetDefault("api.max_body_bytes", 1<<20)
	v.SetDefault("api.max_batch_size", 50)
	v.SetDefault("api.history_limit", 20)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 256)
}
