package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/albedosehen/dawn/internal/observability"
)

// MockLogger is a testify mock of observability.Logger. Fields are passed to
// Called as a single []observability.Field argument, so expectations read
// On("Warn", mock.Anything, "message", mock.Anything).
type MockLogger struct {
	mock.Mock
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Error(ctx context.Context, err error, msg string, fields ...observability.Field) {
	m.Called(ctx, err, msg, fields)
}

func (m *MockLogger) WithFields(...observability.Field) observability.Logger {
	return m
}

func (m *MockLogger) WithContext(context.Context) observability.Logger {
	return m
}

// Entry is one line captured by RecordingLogger.
type Entry struct {
	Level   observability.LogLevel
	Message string
	Err     error
	Fields  []observability.Field
}

// Field returns the value of the named field and whether it was present.
func (e Entry) Field(key string) (any, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// RecordingLogger keeps every entry in memory.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
	fields  []observability.Field
	parent  *RecordingLogger
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(_ context.Context, msg string, fields ...observability.Field) {
	l.record(Entry{Level: observability.LevelDebug, Message: msg, Fields: fields})
}

func (l *RecordingLogger) Info(_ context.Context, msg string, fields ...observability.Field) {
	l.record(Entry{Level: observability.LevelInfo, Message: msg, Fields: fields})
}

func (l *RecordingLogger) Warn(_ context.Context, msg string, fields ...observability.Field) {
	l.record(Entry{Level: observability.LevelWarn, Message: msg, Fields: fields})
}

func (l *RecordingLogger) Error(_ context.Context, err error, msg string, fields ...observability.Field) {
	l.record(Entry{Level: observability.LevelError, Message: msg, Err: err, Fields: fields})
}

func (l *RecordingLogger) WithFields(fields ...observability.Field) observability.Logger {
	return &RecordingLogger{
		fields: append(append([]observability.Field{}, l.fields...), fields...),
		parent: l.root(),
	}
}

func (l *RecordingLogger) WithContext(context.Context) observability.Logger {
	return l
}

func (l *RecordingLogger) root() *RecordingLogger {
	if l.parent != nil {
		return l.parent
	}
	return l
}

func (l *RecordingLogger) record(e Entry) {
	e.Fields = append(append([]observability.Field{}, l.fields...), e.Fields...)

	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a snapshot of everything logged so far.
func (l *RecordingLogger) Entries() []Entry {
	r := l.root()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Find returns the first entry with the given message.
func (l *RecordingLogger) Find(msg string) (Entry, bool) {
	for _, e := range l.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

// MockMetricsCollector is a testify mock of observability.MetricsCollector.
type MockMetricsCollector struct {
	mock.Mock
}

func NewMockMetricsCollector() *MockMetricsCollector {
	return &MockMetricsCollector{}
}

func (m *MockMetricsCollector) RecordRequest(method, status string, duration time.Duration) {
	m.Called(method, status, duration)
}

func (m *MockMetricsCollector) IncInFlight() {
	m.Called()
}

func (m *MockMetricsCollector) DecInFlight() {
	m.Called()
}

func (m *MockMetricsCollector) RecordRateLimitHit(key string) {
	m.Called(key)
}

func (m *MockMetricsCollector) RecordPanic() {
	m.Called()
}
