package config

import (
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Database   DatabaseConfig   `mapstructure:"database"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type EngineConfig struct {
	DefaultStrategy    string            `mapstructure:"default_strategy"`
	ConfidenceLevel    float64           `mapstructure:"confidence_level"`
	ApplySeasonality   bool              `mapstructure:"apply_seasonality"`
	ApplyTrendAnalysis bool              `mapstructure:"apply_trend_analysis"`
	Seed               int64             `mapstructure:"seed"`
	MaxConcurrency     int               `mapstructure:"max_concurrency"`
	TrainingTimeout    time.Duration     `mapstructure:"training_timeout"`
	EnsembleMembers    []string          `mapstructure:"ensemble_members"`
	FeedForward        FeedForwardConfig `mapstructure:"feed_forward"`
	Sequence           SequenceConfig    `mapstructure:"sequence"`
	Polynomial         PolynomialConfig  `mapstructure:"polynomial"`
	Breaker            BreakerConfig     `mapstructure:"breaker"`
	Cache              CacheConfig       `mapstructure:"cache"`
}

type FeedForwardConfig struct {
	Epochs       int       `mapstructure:"epochs"`
	LearningRate float64   `mapstructure:"learning_rate"`
	Hidden       []int     `mapstructure:"hidden"`
	Dropout      []float64 `mapstructure:"dropout"`
}

type SequenceConfig struct {
	Window       int     `mapstructure:"window"`
	Epochs       int     `mapstructure:"epochs"`
	Hidden       int     `mapstructure:"hidden"`
	LearningRate float64 `mapstructure:"learning_rate"`
}

type PolynomialConfig struct {
	Degree int `mapstructure:"degree"`
}

type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
	RetentionRuns    int           `mapstructure:"retention_runs"`
	PruneInterval    time.Duration `mapstructure:"prune_interval"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	MaxBatchSize int           `mapstructure:"max_batch_size"`
	HistoryLimit int           `mapstructure:"history_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
