package config

import "time"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	Drift     DriftConfig     `mapstructure:"drift"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Retrain   RetrainConfig   `mapstructure:"retrain"`
	API       APIConfig       `mapstructure:"api"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Events    EventsConfig    `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type StoreConfig struct {
	Type          string `mapstructure:"type"`
	RetentionDays int    `mapstructure:"retention_days"`
	WindowLimit   int    `mapstructure:"window_limit"`
}

type DriftConfig struct {
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
	StabilityWarning  float64 `mapstructure:"stability_warning"`
	StabilityCritical float64 `mapstructure:"stability_critical"`
	HistogramBins     int     `mapstructure:"histogram_bins"`
}

type MonitorConfig struct {
	MinSamples        int           `mapstructure:"min_samples"`
	EvaluateInterval  time.Duration `mapstructure:"evaluate_interval"`
	EvaluateWindow    time.Duration `mapstructure:"evaluate_window"`
	BaseRateTolerance float64       `mapstructure:"base_rate_tolerance"`
	VolumeTolerance   float64       `mapstructure:"volume_tolerance"`
	BaselineHistory   int           `mapstructure:"baseline_history"`
}

type RetrainConfig struct {
	AutoRetrain          bool                 `mapstructure:"auto_retrain"`
	ScheduleInterval     time.Duration        `mapstructure:"schedule_interval"`
	DecisionMetric       string               `mapstructure:"decision_metric"`
	ImprovementThreshold float64              `mapstructure:"improvement_threshold"`
	Timeout              time.Duration        `mapstructure:"timeout"`
	TrainerType          string               `mapstructure:"trainer_type"`
	TrainerEndpoint      string               `mapstructure:"trainer_endpoint"`
	RetryAttempts        int                  `mapstructure:"retry_attempts"`
	CircuitBreaker       CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	RateLimit        int           `mapstructure:"rate_limit"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTDuration      time.Duration `mapstructure:"jwt_duration"`
	OpsUsername      string        `mapstructure:"ops_username"`
	OpsPasswordHash  string        `mapstructure:"ops_password_hash"`
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxLimit         int           `mapstructure:"max_limit"`
	CORS             CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
