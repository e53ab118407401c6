package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type slogLogger struct {
	logger *slog.Logger
	fields []Field
}

// NewLogger creates a slog-backed logger writing to config.Output.
func NewLogger(config LoggingConfig) Logger {
	var writer io.Writer
	switch strings.ToLower(config.Output) {
	case "stderr":
		writer = os.Stderr
	default:
		writer = os.Stdout
	}

	return NewLoggerWithWriter(config, writer)
}

// NewLoggerWithWriter creates a slog-backed logger writing to w.
func NewLoggerWithWriter(config LoggingConfig, w io.Writer) Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &slogLogger{
		logger: slog.New(handler),
		fields: make([]Field, 0),
	}
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, err error, msg string, fields ...Field) {
	allFields := make([]Field, 0, len(fields)+1)
	if err != nil {
		allFields = append(allFields, Error(err))
	}
	allFields = append(allFields, fields...)

	l.log(ctx, slog.LevelError, msg, allFields)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	l.logger.LogAttrs(ctx, level, msg, l.buildAttrs(ctx, fields...)...)
}

func (l *slogLogger) WithFields(fields ...Field) Logger {
	newFields := make([]Field, 0, len(l.fields)+len(fields))
	newFields = append(newFields, l.fields...)
	newFields = append(newFields, fields...)

	return &slogLogger{
		logger: l.logger,
		fields: newFields,
	}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(extractContextFields(ctx)...)
}

// buildAttrs combines pre-set fields, context fields, and provided fields into slog attributes.
func (l *slogLogger) buildAttrs(ctx context.Context, fields ...Field) []slog.Attr {
	contextFields := extractContextFields(ctx)
	attrs := make([]slog.Attr, 0, len(l.fields)+len(contextFields)+len(fields))

	for _, field := range l.fields {
		attrs = append(attrs, field.ToSlogAttr())
	}
	for _, field := range contextFields {
		attrs = append(attrs, field.ToSlogAttr())
	}
	for _, field := range fields {
		attrs = append(attrs, field.ToSlogAttr())
	}

	return attrs
}

type nopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(context.Context, string, ...Field)        {}
func (nopLogger) Info(context.Context, string, ...Field)         {}
func (nopLogger) Warn(context.Context, string, ...Field)         {}
func (nopLogger) Error(context.Context, error, string, ...Field) {}
func (n nopLogger) WithFields(...Field) Logger                   { return n }
func (n nopLogger) WithContext(context.Context) Logger           { return n }

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	componentKey contextKey = "component"
)

func extractContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	var fields []Field

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, RequestID(requestID))
	}

	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, Component(component))
	}

	return fields
}

// WithRequestID adds a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component identifier to the context for logging.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

var defaultLoggerConfig = LoggingConfig{
	Level:  LevelInfo,
	Format: FormatJSON,
	Output: "stdout",
}

// Default returns a logger with default configuration.
func Default() Logger {
	return NewLogger(defaultLoggerConfig)
}

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func ParseLogFormat(format string) LogFormat {
	switch strings.ToLower(format) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}
