package middleware

import (
	"strconv"
	"time"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// statusNone labels requests that came back without a response.
const statusNone = "none"

type metricsHandler struct {
	metrics observability.MetricsCollector
}

// NewMetrics returns a handler recording in-flight requests and per-status
// request counts and latencies.
func NewMetrics(metrics observability.MetricsCollector) pipeline.Handler {
	return &metricsHandler{metrics: metrics}
}

func (m *metricsHandler) Name() string {
	return "metrics"
}

func (m *metricsHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	method := req.Method()

	m.metrics.IncInFlight()
	defer m.metrics.DecInFlight()

	started := time.Now()
	out, err := next.Run(req)

	status := statusNone
	switch {
	case err != nil:
		status = strconv.Itoa(dawnerrors.StatusOf(err))
	case out.Response() != nil:
		status = strconv.Itoa(out.Response().StatusCode())
	}
	m.metrics.RecordRequest(method, status, time.Since(started))

	return out, err
}
