package config

import (
	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/observability"
)

// ProviderSet is the Wire provider set for configuration.
var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLoggingConfigFromConfig,
	ProvideMetricsConfigFromConfig,
)

// ProvideConfig loads and returns the main configuration.
func ProvideConfig() (*Config, error) {
	return NewConfigLoader().Load()
}

// ProvideLoggingConfigFromConfig converts the logging section for the observability package.
func ProvideLoggingConfigFromConfig(cfg *Config) observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:     observability.ParseLogLevel(cfg.Logging.Level),
		Format:    observability.ParseLogFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	}
}

// ProvideMetricsConfigFromConfig converts the metrics section for the observability package.
func ProvideMetricsConfigFromConfig(cfg *Config) observability.MetricsConfig {
	return observability.MetricsConfig{
		Enabled:   cfg.Metrics.Enabled,
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
		Subsystem: cfg.Metrics.Subsystem,
	}
}
