package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make the service
// misbehave at runtime. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Mode != "development" && c.App.Mode != "production" {
		errs = append(errs, fmt.Sprintf("app.mode must be development or production, got %q", c.App.Mode))
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be in (0, 65535], got %d", c.Database.Port))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, "database.max_connections must be positive")
	}

	switch c.Store.Type {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.type must be postgres or memory, got %q", c.Store.Type))
	}
	if c.Store.WindowLimit <= 0 {
		errs = append(errs, "store.window_limit must be positive")
	}

	if c.Drift.DistanceThreshold <= 0 || c.Drift.DistanceThreshold >= 1 {
		errs = append(errs, "drift.distance_threshold must be in (0, 1)")
	}
	if c.Drift.StabilityWarning <= 0 {
		errs = append(errs, "drift.stability_warning must be positive")
	}
	if c.Drift.StabilityCritical < c.Drift.StabilityWarning {
		errs = append(errs, "drift.stability_critical must be >= drift.stability_warning")
	}
	if c.Drift.HistogramBins < 2 {
		errs = append(errs, "drift.histogram_bins must be at least 2")
	}

	if c.Monitor.MinSamples <= 0 {
		errs = append(errs, "monitor.min_samples must be positive")
	}
	if c.Monitor.EvaluateWindow <= 0 {
		errs = append(errs, "monitor.evaluate_window must be positive")
	}
	if c.Monitor.BaseRateTolerance <= 0 {
		errs = append(errs, "monitor.base_rate_tolerance must be positive")
	}
	if c.Monitor.VolumeTolerance <= 0 {
		errs = append(errs, "monitor.volume_tolerance must be positive")
	}

	if c.Retrain.ImprovementThreshold < 0 {
		errs = append(errs, "retrain.improvement_threshold must not be negative")
	}
	if c.Retrain.DecisionMetric == "" {
		errs = append(errs, "retrain.decision_metric must be set")
	}
	if c.Retrain.Timeout <= 0 {
		errs = append(errs, "retrain.timeout must be positive")
	}
	switch c.Retrain.TrainerType {
	case "http", "mock":
	default:
		errs = append(errs, fmt.Sprintf("retrain.trainer_type must be http or mock, got %q", c.Retrain.TrainerType))
	}
	if c.Retrain.TrainerType == "http" && c.Retrain.TrainerEndpoint == "" {
		errs = append(errs, "retrain.trainer_endpoint must be set for the http trainer")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be in (0, 65535], got %d", c.API.Port))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "" {
		errs = append(errs, "api.jwt_secret must be set in production")
	}
	if c.API.DefaultLimit <= 0 || c.API.DefaultLimit > c.API.MaxLimit {
		errs = append(errs, "api.default_limit must be positive and not exceed api.max_limit")
	}

	if c.WebSocket.MaxConnections <= 0 {
		errs = append(errs, "websocket.max_connections must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
