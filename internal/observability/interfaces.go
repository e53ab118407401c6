package observability

import (
	"context"
	"log/slog"
	"time"
)

// Logger provides structured logging with context awareness.
// It wraps slog functionality with request-scoped fields.
type Logger interface {
	// Debug logs debug-level messages with optional fields.
	Debug(ctx context.Context, msg string, fields ...Field)

	// Info logs info-level messages with optional fields.
	Info(ctx context.Context, msg string, fields ...Field)

	// Warn logs warning-level messages with optional fields.
	Warn(ctx context.Context, msg string, fields ...Field)

	// Error logs error-level messages with error and optional fields.
	Error(ctx context.Context, err error, msg string, fields ...Field)

	// WithFields returns a new logger with the specified fields pre-set.
	WithFields(fields ...Field) Logger

	// WithContext returns a new logger with context-specific fields.
	WithContext(ctx context.Context) Logger
}

// MetricsCollector collects pipeline metrics.
type MetricsCollector interface {
	// RecordRequest records a completed pipeline run.
	// status is the numeric response status, or "none" when no handler answered.
	RecordRequest(method, status string, duration time.Duration)

	// IncInFlight increments the in-flight requests gauge.
	IncInFlight()

	// DecInFlight decrements the in-flight requests gauge.
	DecInFlight()

	// RecordRateLimitHit records a request rejected by the rate limiter.
	RecordRateLimitHit(key string)

	// RecordPanic records a panic recovered inside the pipeline.
	RecordPanic()
}

// Field represents a structured log field with key-value data.
type Field struct {
	Key   string
	Value interface{}
}

// ToSlogAttr converts a Field to a slog.Attr for compatibility.
func (f Field) ToSlogAttr() slog.Attr {
	return slog.Any(f.Key, f.Value)
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field.
func Error(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with an arbitrary value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func RequestID(id string) Field {
	return Field{Key: "request_id", Value: id}
}

func Method(method string) Field {
	return Field{Key: "method", Value: method}
}

func Status(status int) Field {
	return Field{Key: "status", Value: status}
}

func Path(path string) Field {
	return Field{Key: "path", Value: path}
}

func Pattern(pattern string) Field {
	return Field{Key: "pattern", Value: pattern}
}

func RemoteAddr(addr string) Field {
	return Field{Key: "remote_addr", Value: addr}
}

// Component creates a component field for identifying the source.
func Component(component string) Field {
	return Field{Key: "component", Value: component}
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ToSlogLevel converts LogLevel to slog.Level.
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat represents different logging output formats.
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatText
)

func (f LogFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	default:
		return "json"
	}
}

// LoggingConfig configures the logging system.
type LoggingConfig struct {
	Level     LogLevel  `json:"level"`
	Format    LogFormat `json:"format"`
	Output    string    `json:"output"`
	AddSource bool      `json:"add_source"`
}

// MetricsConfig configures the metrics collection system.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
}
