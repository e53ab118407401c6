package middleware

import (
	"errors"
	"net/http"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

type errorHandler struct {
	logger observability.Logger
}

// NewErrorHandler returns a handler that turns errors surfacing from next into
// responses. The status comes from the coded cause and defaults to 500. The
// request bundled with the error is the one answered, so extensions set
// further down the pipeline survive.
func NewErrorHandler(logger observability.Logger) pipeline.Handler {
	return &errorHandler{
		logger: logger.WithFields(observability.Component("errors")),
	}
}

func (m *errorHandler) Name() string {
	return "error_handler"
}

func (m *errorHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	out, err := next.Run(req)
	if err == nil {
		return out, nil
	}

	failed := req
	status := dawnerrors.StatusOf(err)
	var re *envelope.RequestError
	if errors.As(err, &re) {
		status = re.HTTPStatus()
		if re.Req != nil {
			failed = re.Req
		}
	}

	fields := []observability.Field{
		observability.RequestID(GetRequestID(failed)),
		observability.Method(failed.Method()),
		observability.Path(failed.Path()),
		observability.Status(status),
	}
	if status >= http.StatusInternalServerError {
		m.logger.Error(failed.Context(), err, "request failed", fields...)
	} else {
		m.logger.Warn(failed.Context(), "request rejected", append(fields, observability.Error(err))...)
	}

	failed.SetResponse(envelope.Text(status, err.Error()))
	return failed, nil
}
