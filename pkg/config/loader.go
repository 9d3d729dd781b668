package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file (optional), environment
// variables prefixed with CHURNWATCH_, and built-in defaults, in that order
// of precedence from lowest to highest.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CHURNWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "churnwatch")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "churnwatch")
	v.SetDefault("database.user", "churnwatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.ping_timeout", 5*time.Second)

	v.SetDefault("store.type", "postgres")
	v.SetDefault("store.retention_days", 30)
	v.SetDefault("store.window_limit", 100000)

	v.SetDefault("drift.distance_threshold", 0.1)
	v.SetDefault("drift.stability_warning", 0.1)
	v.SetDefault("drift.stability_critical", 0.25)
	v.SetDefault("drift.histogram_bins", 10)

	v.SetDefault("monitor.min_samples", 30)
	v.SetDefault("monitor.evaluate_interval", 5*time.Minute)
	v.SetDefault("monitor.evaluate_window", 24*time.Hour)
	v.SetDefault("monitor.base_rate_tolerance", 0.5)
	v.SetDefault("monitor.volume_tolerance", 0.5)
	v.SetDefault("monitor.baseline_history", 24)

	v.SetDefault("retrain.auto_retrain", false)
	v.SetDefault("retrain.schedule_interval", 0)
	v.SetDefault("retrain.decision_metric", "accuracy")
	v.SetDefault("retrain.improvement_threshold", 0.01)
	v.SetDefault("retrain.timeout", 30*time.Minute)
	v.SetDefault("retrain.trainer_type", "http")
	v.SetDefault("retrain.trainer_endpoint", "http://localhost:9090")
	v.SetDefault("retrain.retry_attempts", 3)
	v.SetDefault("retrain.circuit_breaker.max_failures", 5)
	v.SetDefault("retrain.circuit_breaker.timeout", 60*time.Second)

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", 15*time.Second)
	v.SetDefault("api.write_timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "")
	v.SetDefault("api.jwt_duration", 24*time.Hour)
	v.SetDefault("api.ops_username", "ops")
	v.SetDefault("api.ops_password_hash", "")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Trace-ID"})
	v.SetDefault("api.cors.allow_credentials", false)

	v.SetDefault("websocket.max_connections", 100)
	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 64)

	v.SetDefault("events.buffer_size", 256)
}
