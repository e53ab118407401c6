// Package testutil provides mocks and helpers shared by package tests.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/pipeline"
)

const TestTimeout = 10 * time.Second

// NewRequest wraps an httptest request in an envelope.
func NewRequest(method, target string, body io.Reader) *envelope.Request {
	return envelope.NewRequest(httptest.NewRequest(method, target, body))
}

// NewRequestWithHeaders is NewRequest with headers set from a map.
func NewRequestWithHeaders(method, target string, headers map[string]string) *envelope.Request {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return envelope.NewRequest(r)
}

// Respond returns an endpoint answering status with body as text.
func Respond(status int, body string) pipeline.Handler {
	return pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		req.SetResponse(envelope.Text(status, body))
		return req, nil
	})
}

// Run executes h with the identity continuation and fails the test on error.
func Run(t *testing.T, h pipeline.Handler, req *envelope.Request) *envelope.Request {
	t.Helper()

	out, err := pipeline.Execute(h, req)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

// ResponseBody returns the body of req's response as a string, or "" when
// no response is attached.
func ResponseBody(req *envelope.Request) string {
	if res := req.Response(); res != nil {
		return string(res.Body)
	}
	return ""
}

func CreateTestBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("test backend response"))
		}
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// CreateEchoBackend answers every request with "METHOD PATH?QUERY".
func CreateEchoBackend(t *testing.T) *httptest.Server {
	t.Helper()

	return CreateTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(r.Method)
		b.WriteString(" ")
		b.WriteString(r.URL.Path)
		if r.URL.RawQuery != "" {
			b.WriteString("?")
			b.WriteString(r.URL.RawQuery)
		}
		w.Header().Set("X-Backend", "echo")
		_, _ = w.Write([]byte(b.String()))
	})
}

func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			assert.Fail(t, "condition was not met within timeout", msg)
			return
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}

// GetTestConfig returns defaults adjusted for tests: ephemeral port, no TLS,
// short timeouts.
func GetTestConfig() *config.Config {
	cfg := config.GetDefaultConfig()

	cfg.TLS.AutoCert = false
	cfg.TLS.Enabled = false

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.GracefulTimeout = time.Second

	cfg.RateLimit.CleanupInterval = 0

	return cfg
}

func TestContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}
