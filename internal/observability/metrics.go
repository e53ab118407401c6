package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge

	rateLimitHitsTotal *prometheus.CounterVec
	panicsTotal        prometheus.Counter

	startTime prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusCollector creates a collector registered on its own registry.
func NewPrometheusCollector(namespace, subsystem string) MetricsCollector {
	collector := &prometheusCollector{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests run through the pipeline",
			},
			[]string{"method", "status_code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "Time spent running requests through the pipeline",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status_code"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "in_flight_requests",
				Help:      "Current number of requests inside the pipeline",
			},
		),

		rateLimitHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
			[]string{"key"},
		),

		panicsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "panics_total",
				Help:      "Total number of panics recovered in handlers",
			},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "start_time_timestamp",
				Help:      "Start time of the application as Unix timestamp",
			},
		),
	}

	collector.registry.MustRegister(
		collector.requestsTotal,
		collector.requestDuration,
		collector.inFlight,
		collector.rateLimitHitsTotal,
		collector.panicsTotal,
		collector.startTime,
	)
	collector.startTime.SetToCurrentTime()

	return collector
}

func (p *prometheusCollector) RecordRequest(method, status string, duration time.Duration) {
	labels := prometheus.Labels{
		"method":      method,
		"status_code": status,
	}

	p.requestsTotal.With(labels).Inc()
	p.requestDuration.With(labels).Observe(duration.Seconds())
}

func (p *prometheusCollector) IncInFlight() {
	p.inFlight.Inc()
}

func (p *prometheusCollector) DecInFlight() {
	p.inFlight.Dec()
}

func (p *prometheusCollector) RecordRateLimitHit(key string) {
	p.rateLimitHitsTotal.With(prometheus.Labels{"key": key}).Inc()
}

func (p *prometheusCollector) RecordPanic() {
	p.panicsTotal.Inc()
}

// Registry exposes the collector's registry, mainly for tests.
func (p *prometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// MetricsHandler returns the exposition handler for collector.
// Collectors without a registry get a handler answering 404.
func MetricsHandler(collector MetricsCollector) http.Handler {
	promCollector, ok := collector.(*prometheusCollector)
	if !ok {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(promCollector.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

type noopMetricsCollector struct{}

// NopMetrics returns a collector that records nothing.
func NopMetrics() MetricsCollector {
	return noopMetricsCollector{}
}

func (noopMetricsCollector) RecordRequest(string, string, time.Duration) {}
func (noopMetricsCollector) IncInFlight()                                {}
func (noopMetricsCollector) DecInFlight()                                {}
func (noopMetricsCollector) RecordRateLimitHit(string)                   {}
func (noopMetricsCollector) RecordPanic()                                {}
