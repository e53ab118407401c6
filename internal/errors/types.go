// Package errors defines the coded errors used across the framework.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a framework error carrying a stable code and the HTTP status it maps to.
type Error struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"http_status,omitempty"`
}

// ErrorCode identifies a specific failure condition.
type ErrorCode int

const (
	// Construction-time errors
	ErrCodeInvalidPattern ErrorCode = iota + 1000
	ErrCodeRouteConflict
	ErrCodeInvalidHandler

	// Per-request errors
	ErrCodeRequestFailed
	ErrCodeQueryMissing
	ErrCodeQueryInvalid
	ErrCodeBodyInvalid
	ErrCodeUnauthorized
	ErrCodeRateLimited
	ErrCodePanic
	ErrCodeUpstream

	// Transport errors
	ErrCodeTransport
	ErrCodeUnexpectedShutdown
	ErrCodeForcedShutdown

	// Configuration errors
	ErrCodeConfigInvalid
	ErrCodeConfigMissing
	ErrCodeConfigValidation

	// TLS errors
	ErrCodeTLSSetup
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (code ErrorCode) String() string {
	switch code {
	case ErrCodeInvalidPattern:
		return "invalid_pattern"
	case ErrCodeRouteConflict:
		return "route_conflict"
	case ErrCodeInvalidHandler:
		return "invalid_handler"
	case ErrCodeRequestFailed:
		return "request_failed"
	case ErrCodeQueryMissing:
		return "query_missing"
	case ErrCodeQueryInvalid:
		return "query_invalid"
	case ErrCodeBodyInvalid:
		return "body_invalid"
	case ErrCodeUnauthorized:
		return "unauthorized"
	case ErrCodeRateLimited:
		return "rate_limited"
	case ErrCodePanic:
		return "panic"
	case ErrCodeUpstream:
		return "upstream"
	case ErrCodeTransport:
		return "transport"
	case ErrCodeUnexpectedShutdown:
		return "unexpected_shutdown"
	case ErrCodeForcedShutdown:
		return "forced_shutdown"
	case ErrCodeConfigInvalid:
		return "config_invalid"
	case ErrCodeConfigMissing:
		return "config_missing"
	case ErrCodeConfigValidation:
		return "config_validation"
	case ErrCodeTLSSetup:
		return "tls_setup"
	default:
		return "unknown_error"
	}
}

func (code ErrorCode) HTTPStatus() int {
	switch code {
	case ErrCodeQueryMissing, ErrCodeQueryInvalid, ErrCodeBodyInvalid:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodeUnexpectedShutdown, ErrCodeForcedShutdown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error for code with the given message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: code.HTTPStatus(),
	}
}

// Wrap creates an error for code wrapping cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Cause:      cause,
		Context:    make(map[string]interface{}),
		HTTPStatus: code.HTTPStatus(),
	}
}

func NewPatternError(pattern, reason string) *Error {
	return &Error{
		Code:       ErrCodeInvalidPattern,
		Message:    fmt.Sprintf("invalid route pattern %q: %s", pattern, reason),
		Context:    map[string]interface{}{"pattern": pattern},
		HTTPStatus: ErrCodeInvalidPattern.HTTPStatus(),
	}
}

func NewConflictError(method, pattern string) *Error {
	return &Error{
		Code:       ErrCodeRouteConflict,
		Message:    fmt.Sprintf("route %s %s conflicts with an existing route", method, pattern),
		Context:    map[string]interface{}{"method": method, "pattern": pattern},
		HTTPStatus: ErrCodeRouteConflict.HTTPStatus(),
	}
}

func NewServerError(code ErrorCode, addr string, cause error) *Error {
	err := &Error{
		Code:       code,
		Message:    fmt.Sprintf("server error: %s", code.String()),
		Cause:      cause,
		Context:    map[string]interface{}{"addr": addr},
		HTTPStatus: code.HTTPStatus(),
	}

	if cause != nil {
		err.Message = fmt.Sprintf("server %s: %s", addr, code.String())
	}

	return err
}

func NewConfigError(code ErrorCode, field string, cause error) *Error {
	err := &Error{
		Code:       code,
		Message:    fmt.Sprintf("configuration error: %s", code.String()),
		Cause:      cause,
		Context:    map[string]interface{}{"field": field},
		HTTPStatus: code.HTTPStatus(),
	}

	if cause != nil {
		err.Message = fmt.Sprintf("configuration field %s", field)
	}

	return err
}

var (
	ErrUnauthorized = &Error{
		Code:       ErrCodeUnauthorized,
		Message:    "missing or invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRateLimited = &Error{
		Code:       ErrCodeRateLimited,
		Message:    "rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrForcedShutdown = &Error{
		Code:       ErrCodeForcedShutdown,
		Message:    "forced shutdown after grace period",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrUnexpectedShutdown = &Error{
		Code:       ErrCodeUnexpectedShutdown,
		Message:    "server stopped unexpectedly",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// StatusOf returns the HTTP status carried by err, or 500 when err is not a coded error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err and whether one was found.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func IsForcedShutdown(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeForcedShutdown
}

func IsUnexpectedShutdown(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnexpectedShutdown
}

func IsTransport(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeTransport
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	status := StatusOf(err)
	return status >= 400 && status < 500
}
