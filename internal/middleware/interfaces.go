// Package middleware provides pipeline handlers for cross-cutting concerns.
// It includes logging, error handling, panic recovery, request IDs, metrics,
// rate limiting, CORS, security headers and authentication.
package middleware

import (
	"context"
	"time"

	"github.com/albedosehen/dawn/internal/envelope"
)

// RateLimiter provides rate limiting functionality.
type RateLimiter interface {
	// Allow checks if a request should be allowed based on the key.
	Allow(ctx context.Context, key string) bool

	// Reset resets the rate limit for a specific key.
	Reset(key string) error

	// Stats returns rate limiting statistics for a key.
	Stats(key string) RateLimitStats

	// Cleanup removes idle rate limit entries.
	Cleanup(ctx context.Context) error
}

// RateLimitStats provides statistics about rate limiting.
type RateLimitStats struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetTime  time.Time     `json:"reset_time"`
	RetryAfter time.Duration `json:"retry_after"`
}

// KeyFunc derives the rate limiting key for a request.
type KeyFunc func(req *envelope.Request) string

// RequestID is the request identifier stored in request extensions.
type RequestID string

// GetRequestID returns the request ID assigned to req, if any.
func GetRequestID(req *envelope.Request) string {
	id, _ := envelope.Ext[RequestID](req)
	return string(id)
}
