package middleware

import (
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/testutil"
)

func TestSecurityHeaders_Run(t *testing.T) {
	tests := []struct {
		name       string
		https      bool
		expectHSTS bool
	}{
		{name: "Run_PlainHTTP_NoHSTS", https: false, expectHSTS: false},
		{name: "Run_HTTPS_SetsHSTS", https: true, expectHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := DefaultSecurityConfig()
			h := pipeline.Pair(NewSecurityHeaders(cfg, observability.Nop()), pipeline.EndpointFunc(
				func(req *envelope.Request) (*envelope.Request, error) {
					req.SetResponse(envelope.Text(http.StatusOK, "ok").WithHeader("X-Powered-By", "php"))
					return req, nil
				},
			))
			req := testutil.NewRequest(http.MethodGet, "/", nil)
			if tt.https {
				req.HTTP().TLS = &tls.ConnectionState{}
			}

			// Act
			out := testutil.Run(t, h, req)

			// Assert
			headers := out.Response().Header
			assert.Equal(t, cfg.ContentSecurityPolicy, headers.Get("Content-Security-Policy"))
			assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
			assert.Equal(t, cfg.ReferrerPolicy, headers.Get("Referrer-Policy"))
			assert.Equal(t, "dawn", headers.Get("Server"))
			assert.Empty(t, headers.Get("X-Powered-By"))

			if tt.expectHSTS {
				assert.Equal(t, cfg.StrictTransportSecurity, headers.Get("Strict-Transport-Security"))
			} else {
				assert.Empty(t, headers.Get("Strict-Transport-Security"))
			}
		})
	}
}

func TestSecurityHeaders_Run_EmptyValuesSkipped(t *testing.T) {
	h := pipeline.Pair(
		NewSecurityHeaders(SecurityConfig{FrameOptions: "SAMEORIGIN"}, observability.Nop()),
		testutil.Respond(http.StatusOK, "ok"),
	)

	out := testutil.Run(t, h, testutil.NewRequest(http.MethodGet, "/", nil))

	headers := out.Response().Header
	assert.Equal(t, "SAMEORIGIN", headers.Get("X-Frame-Options"))
	assert.Empty(t, headers.Get("Content-Security-Policy"))
	assert.Empty(t, headers.Get("Server"))
}

func TestSecurityHeaders_Run_NoResponseUntouched(t *testing.T) {
	h := pipeline.Pair(NewSecurityHeaders(DefaultSecurityConfig(), observability.Nop()), pipeline.EndpointFunc(
		func(req *envelope.Request) (*envelope.Request, error) { return req, nil },
	))

	out := testutil.Run(t, h, testutil.NewRequest(http.MethodGet, "/", nil))

	assert.Nil(t, out.Response())
}

func TestSecurityConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*SecurityConfig)
		expectedErr error
	}{
		{name: "Validate_Defaults_Valid", mutate: func(*SecurityConfig) {}},
		{
			name:        "Validate_CSPWithoutDefaultSrc_Invalid",
			mutate:      func(c *SecurityConfig) { c.ContentSecurityPolicy = "script-src 'self'" },
			expectedErr: ErrInvalidCSP,
		},
		{
			name:        "Validate_HSTSWithoutMaxAge_Invalid",
			mutate:      func(c *SecurityConfig) { c.StrictTransportSecurity = "includeSubDomains" },
			expectedErr: ErrInvalidHSTS,
		},
		{
			name:        "Validate_BadFrameOptions_Invalid",
			mutate:      func(c *SecurityConfig) { c.FrameOptions = "ALLOW" },
			expectedErr: ErrInvalidFrameOptions,
		},
		{
			name:   "Validate_AllowFrom_Valid",
			mutate: func(c *SecurityConfig) { c.FrameOptions = "ALLOW-FROM https://example.com" },
		},
		{
			name:   "Validate_Empty_Valid",
			mutate: func(c *SecurityConfig) { *c = SecurityConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSecurityConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
