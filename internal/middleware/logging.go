package middleware

import (
	"fmt"
	"slices"
	"time"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// LoggingConfig holds configuration for the request logger.
type LoggingConfig struct {
	// ExcludePaths contains paths that are never logged.
	ExcludePaths []string

	// SkipSuccessfulRequests skips logging for 2xx and 3xx responses.
	SkipSuccessfulRequests bool
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		ExcludePaths: []string{"/favicon.ico"},
	}
}

// loggingHandler logs every request once the rest of the pipeline returns.
type loggingHandler struct {
	config LoggingConfig
	logger observability.Logger
}

// NewLogger returns a handler that runs next and then logs
// "METHOD URI -> status" at a level chosen by the response class.
func NewLogger(logger observability.Logger, config LoggingConfig) pipeline.Handler {
	return &loggingHandler{
		config: config,
		logger: logger.WithFields(observability.Component("access")),
	}
}

func (m *loggingHandler) Name() string {
	return "logger"
}

func (m *loggingHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	if slices.Contains(m.config.ExcludePaths, req.Path()) {
		return next.Run(req)
	}

	method := req.Method()
	uri := req.URL().RequestURI()
	started := time.Now()

	out, err := next.Run(req)
	duration := time.Since(started)

	if err != nil {
		failed := req
		if r, ok := envelope.SplitError(err); ok {
			failed = r
		}
		m.logger.Error(failed.Context(), err, fmt.Sprintf("%s %s -> error", method, uri),
			observability.RequestID(GetRequestID(failed)),
			observability.Duration("duration", duration),
		)
		return out, err
	}

	ctx := out.Context()
	fields := []observability.Field{
		observability.RequestID(GetRequestID(out)),
		observability.Method(method),
		observability.Path(out.Path()),
		observability.Duration("duration", duration),
	}

	res := out.Response()
	if res == nil {
		m.logger.Error(ctx, nil, fmt.Sprintf("%s %s -> no response", method, uri), fields...)
		return out, nil
	}

	status := res.StatusCode()
	fields = append(fields, observability.Status(status))
	msg := fmt.Sprintf("%s %s -> %d", method, uri, status)

	switch {
	case res.IsServerError():
		m.logger.Error(ctx, nil, msg, fields...)
	case res.IsClientError():
		m.logger.Warn(ctx, msg, fields...)
	case m.config.SkipSuccessfulRequests:
	default:
		m.logger.Info(ctx, msg, fields...)
	}

	return out, nil
}
