// Package observability provides structured logging and metrics collection.
package observability

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for observability components.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetricsCollector,
)

// ProvideLogger creates a new logger instance using the provided configuration.
func ProvideLogger(config LoggingConfig) Logger {
	return NewLogger(config)
}

// ProvideMetricsCollector creates a Prometheus collector, or a no-op one when disabled.
func ProvideMetricsCollector(config MetricsConfig) MetricsCollector {
	if !config.Enabled {
		return NopMetrics()
	}

	namespace := config.Namespace
	if namespace == "" {
		namespace = "dawn"
	}

	subsystem := config.Subsystem
	if subsystem == "" {
		subsystem = "pipeline"
	}

	return NewPrometheusCollector(namespace, subsystem)
}
