package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// SecurityConfig holds configuration for security headers. Empty values
// leave the corresponding header unset.
type SecurityConfig struct {
	ContentSecurityPolicy   string
	StrictTransportSecurity string
	FrameOptions            string
	ContentTypeOptions      string
	ReferrerPolicy          string
	PermissionsPolicy       string

	// ServerName replaces the Server header. X-Powered-By is always removed.
	ServerName string
}

// DefaultSecurityConfig returns a secure default configuration.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		ContentSecurityPolicy:   "default-src 'self'; frame-ancestors 'none'",
		StrictTransportSecurity: "max-age=31536000; includeSubDomains",
		FrameOptions:            "DENY",
		ContentTypeOptions:      "nosniff",
		ReferrerPolicy:          "strict-origin-when-cross-origin",
		PermissionsPolicy:       "camera=(), geolocation=(), microphone=()",
		ServerName:              "dawn",
	}
}

// Validate checks the header values for obvious syntax mistakes.
func (c SecurityConfig) Validate() error {
	if c.ContentSecurityPolicy != "" && !strings.Contains(c.ContentSecurityPolicy, "default-src") {
		return dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "content_security_policy",
			ErrInvalidCSP)
	}

	if c.StrictTransportSecurity != "" && !strings.Contains(c.StrictTransportSecurity, "max-age=") {
		return dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "strict_transport_security",
			ErrInvalidHSTS)
	}

	if c.FrameOptions != "" &&
		!slices.Contains([]string{"DENY", "SAMEORIGIN"}, c.FrameOptions) &&
		!strings.HasPrefix(c.FrameOptions, "ALLOW-FROM ") {
		return dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "frame_options",
			ErrInvalidFrameOptions)
	}

	return nil
}

// Security header validation errors.
var (
	ErrInvalidCSP          = errors.New("content security policy must declare default-src")
	ErrInvalidHSTS         = errors.New("strict transport security must declare max-age")
	ErrInvalidFrameOptions = errors.New("frame options must be DENY, SAMEORIGIN or ALLOW-FROM")
)

type securityHeadersHandler struct {
	config SecurityConfig
	logger observability.Logger
}

// NewSecurityHeaders returns a handler that stamps security headers onto
// every response produced further down the pipeline.
func NewSecurityHeaders(config SecurityConfig, logger observability.Logger) pipeline.Handler {
	return &securityHeadersHandler{
		config: config,
		logger: logger,
	}
}

func (m *securityHeadersHandler) Name() string {
	return "security"
}

func (m *securityHeadersHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	out, err := next.Run(req)
	if err != nil {
		return out, err
	}

	res := out.Response()
	if res == nil {
		return out, nil
	}

	secure := out.HTTP().TLS != nil
	m.apply(res, secure)

	m.logger.Debug(out.Context(), "Security headers applied",
		observability.RequestID(GetRequestID(out)),
		observability.Path(out.Path()),
		observability.Bool("https", secure),
	)
	return out, nil
}

func (m *securityHeadersHandler) apply(res *envelope.Response, secure bool) {
	set := func(key, value string) {
		if value != "" {
			res.WithHeader(key, value)
		}
	}

	set("Content-Security-Policy", m.config.ContentSecurityPolicy)
	if secure {
		set("Strict-Transport-Security", m.config.StrictTransportSecurity)
	}
	set("X-Frame-Options", m.config.FrameOptions)
	set("X-Content-Type-Options", m.config.ContentTypeOptions)
	set("Referrer-Policy", m.config.ReferrerPolicy)
	set("Permissions-Policy", m.config.PermissionsPolicy)
	set("Server", m.config.ServerName)

	if res.Header != nil {
		res.Header.Del("X-Powered-By")
	}
}
