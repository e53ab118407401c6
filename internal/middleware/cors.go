package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/router"
)

// CORSConfig holds configuration for CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is a list of origins that may access the resource.
	// "*" allows any origin and "*.example.com" any subdomain.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge indicates how long the results of a preflight request can be cached.
	MaxAge time.Duration
}

// DefaultCORSConfig returns a permissive CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         12 * time.Hour,
	}
}

// Validate rejects configurations browsers would refuse to honor.
func (c CORSConfig) Validate() error {
	if len(c.AllowedOrigins) == 0 {
		return ErrCORSNoOrigins
	}
	if slices.Contains(c.AllowedOrigins, "*") && c.AllowCredentials {
		return ErrCORSWildcardWithCredentials
	}
	if len(c.AllowedMethods) == 0 {
		return ErrCORSNoMethods
	}
	for _, method := range c.AllowedMethods {
		if !slices.Contains(router.StandardMethods, method) {
			return ErrCORSInvalidMethod
		}
	}
	if c.MaxAge < 0 {
		return ErrCORSInvalidMaxAge
	}
	return nil
}

// CORS error definitions.
var (
	ErrCORSNoOrigins               = errors.New("no allowed origins configured")
	ErrCORSWildcardWithCredentials = errors.New("wildcard origin cannot be used with credentials")
	ErrCORSNoMethods               = errors.New("no allowed methods configured")
	ErrCORSInvalidMethod           = errors.New("invalid HTTP method")
	ErrCORSInvalidMaxAge           = errors.New("invalid max age: must be non-negative")
)

type corsHandler struct {
	config CORSConfig
	logger observability.Logger
}

// NewCORS returns a handler implementing CORS. Requests without an Origin
// pass through untouched, disallowed origins get 403 and preflight requests
// are answered directly with 204.
func NewCORS(config CORSConfig, logger observability.Logger) pipeline.Handler {
	return &corsHandler{
		config: config,
		logger: logger,
	}
}

func (m *corsHandler) Name() string {
	return "cors"
}

func (m *corsHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	origin := req.Header().Get("Origin")
	if origin == "" {
		return next.Run(req)
	}

	if !m.isOriginAllowed(origin) {
		m.logger.Warn(req.Context(), "CORS request blocked: origin not allowed",
			observability.RequestID(GetRequestID(req)),
			observability.String("origin", origin),
			observability.Method(req.Method()),
			observability.Path(req.Path()),
		)
		req.SetResponse(envelope.Text(http.StatusForbidden, "origin not allowed"))
		return req, nil
	}

	if isPreflight(req) {
		res := req.SetResponse(envelope.NewResponse().WithStatus(http.StatusNoContent))
		m.setOriginHeaders(res, origin)
		m.setPreflightHeaders(res, req)
		res.Header.Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")

		m.logger.Debug(req.Context(), "CORS preflight request handled",
			observability.RequestID(GetRequestID(req)),
			observability.String("origin", origin),
			observability.String("requested_method", req.Header().Get("Access-Control-Request-Method")),
		)
		return req, nil
	}

	out, err := next.Run(req)
	if err != nil {
		return out, err
	}

	if res := out.Response(); res != nil {
		m.setOriginHeaders(res, origin)
		if len(m.config.ExposedHeaders) > 0 {
			res.WithHeader("Access-Control-Expose-Headers", strings.Join(m.config.ExposedHeaders, ", "))
		}
		addVary(res, "Origin")
	}
	return out, nil
}

func isPreflight(req *envelope.Request) bool {
	return req.Method() == http.MethodOptions &&
		req.Header().Get("Access-Control-Request-Method") != ""
}

func (m *corsHandler) isOriginAllowed(origin string) bool {
	for _, allowed := range m.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			host := origin
			if _, rest, found := strings.Cut(origin, "://"); found {
				host = rest
			}
			if strings.HasSuffix(host, "."+domain) {
				return true
			}
		}
	}
	return false
}

func (m *corsHandler) setOriginHeaders(res *envelope.Response, origin string) {
	if len(m.config.AllowedOrigins) == 1 && m.config.AllowedOrigins[0] == "*" && !m.config.AllowCredentials {
		res.WithHeader("Access-Control-Allow-Origin", "*")
	} else {
		res.WithHeader("Access-Control-Allow-Origin", origin)
	}

	if m.config.AllowCredentials {
		res.WithHeader("Access-Control-Allow-Credentials", "true")
	}
}

func (m *corsHandler) setPreflightHeaders(res *envelope.Response, req *envelope.Request) {
	if len(m.config.AllowedMethods) > 0 {
		res.WithHeader("Access-Control-Allow-Methods", strings.Join(m.config.AllowedMethods, ", "))
	}

	requested := req.Header().Get("Access-Control-Request-Headers")
	if requested != "" && m.areHeadersAllowed(requested) {
		res.WithHeader("Access-Control-Allow-Headers", requested)
	} else if len(m.config.AllowedHeaders) > 0 {
		res.WithHeader("Access-Control-Allow-Headers", strings.Join(m.config.AllowedHeaders, ", "))
	}

	if m.config.MaxAge > 0 {
		res.WithHeader("Access-Control-Max-Age", strconv.Itoa(int(m.config.MaxAge.Seconds())))
	}
}

func (m *corsHandler) areHeadersAllowed(requested string) bool {
	for header := range strings.SplitSeq(requested, ",") {
		header = strings.TrimSpace(header)
		if !slices.ContainsFunc(m.config.AllowedHeaders, func(allowed string) bool {
			return strings.EqualFold(allowed, header)
		}) {
			return false
		}
	}
	return true
}

func addVary(res *envelope.Response, value string) {
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	for _, existing := range res.Header.Values("Vary") {
		for v := range strings.SplitSeq(existing, ",") {
			if strings.EqualFold(strings.TrimSpace(v), value) {
				return
			}
		}
	}
	res.Header.Add("Vary", value)
}
