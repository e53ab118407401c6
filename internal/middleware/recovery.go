package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// recoveryHandler converts panics below it into request errors.
type recoveryHandler struct {
	logger  observability.Logger
	metrics observability.MetricsCollector
}

func NewRecovery(logger observability.Logger, metrics observability.MetricsCollector) pipeline.Handler {
	return &recoveryHandler{
		logger:  logger,
		metrics: metrics,
	}
}

func (m *recoveryHandler) Name() string {
	return "recovery"
}

func (m *recoveryHandler) Run(req *envelope.Request, next pipeline.Next) (out *envelope.Request, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = m.handlePanic(req, p)
		}
	}()

	return next.Run(req)
}

func (m *recoveryHandler) handlePanic(req *envelope.Request, p interface{}) (*envelope.Request, error) {
	stack := debug.Stack()
	cause := fmt.Errorf("panic: %v", p)

	m.logger.Error(req.Context(), cause, "Panic recovered",
		observability.RequestID(GetRequestID(req)),
		observability.Method(req.Method()),
		observability.Path(req.Path()),
		observability.RemoteAddr(req.RemoteAddr()),
		observability.String("stack", string(stack)),
	)
	m.metrics.RecordPanic()

	// The panicking stage may have left a partial response behind.
	req.TakeResponse()

	return req.Fail(dawnerrors.Wrap(dawnerrors.ErrCodePanic, "internal server error", cause))
}
