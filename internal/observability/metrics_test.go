package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Records(t *testing.T) {
	collector := NewPrometheusCollector("dawn", "pipeline").(*prometheusCollector)

	collector.RecordRequest(http.MethodGet, "200", 15*time.Millisecond)
	collector.RecordRequest(http.MethodGet, "200", 5*time.Millisecond)
	collector.RecordRequest(http.MethodPost, "none", time.Millisecond)
	collector.IncInFlight()
	collector.IncInFlight()
	collector.DecInFlight()
	collector.RecordRateLimitHit("203.0.113.9")
	collector.RecordPanic()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.requestsTotal.WithLabelValues(http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.requestsTotal.WithLabelValues(http.MethodPost, "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.rateLimitHitsTotal.WithLabelValues("203.0.113.9")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.panicsTotal))
}

func TestMetricsHandler_Prometheus_Exposes(t *testing.T) {
	collector := NewPrometheusCollector("dawn", "pipeline")
	collector.RecordRequest(http.MethodGet, "404", time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler(collector).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dawn_pipeline_requests_total{method="GET",status_code="404"} 1`)
	assert.Contains(t, rec.Body.String(), "dawn_pipeline_start_time_timestamp")
}

func TestMetricsHandler_Nop_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	MetricsHandler(NopMetrics()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProvideMetricsCollector(t *testing.T) {
	tests := []struct {
		name             string
		config           MetricsConfig
		expectPrometheus bool
	}{
		{name: "ProvideMetricsCollector_Disabled_Nop", config: MetricsConfig{Enabled: false}},
		{name: "ProvideMetricsCollector_Enabled_Prometheus", config: MetricsConfig{Enabled: true}, expectPrometheus: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := ProvideMetricsCollector(tt.config)

			_, isProm := collector.(*prometheusCollector)
			assert.Equal(t, tt.expectPrometheus, isProm)
		})
	}
}
