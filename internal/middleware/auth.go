package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// HeaderAPIKey carries a static API key.
const HeaderAPIKey = "X-API-Key"

// Authentication methods recorded on a Principal.
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodJWT    = "jwt"
)

// Principal identifies the authenticated caller. It is stored in request
// extensions once authentication succeeds.
type Principal struct {
	Method  string
	Subject string
	Claims  jwt.MapClaims
}

// GetPrincipal returns the authenticated caller of req, if any.
func GetPrincipal(req *envelope.Request) (Principal, bool) {
	return envelope.Ext[Principal](req)
}

// AuthConfig configures NewAuth.
type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Empty disables JWT.
	JWTSecret string

	APIKeys []string

	// ExcludePaths bypass authentication entirely.
	ExcludePaths []string
}

var (
	errMissingCredentials = errors.New("missing credentials")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidAuthHeader  = errors.New("invalid authorization header")
)

type authHandler struct {
	apiKeys      map[string]struct{}
	jwtSecret    []byte
	excludePaths []string
	parser       *jwt.Parser
	logger       observability.Logger
}

// NewAuth returns a handler that accepts either a known X-API-Key or an
// HS256-signed bearer JWT and answers 401 otherwise.
func NewAuth(config AuthConfig, logger observability.Logger) pipeline.Handler {
	keys := make(map[string]struct{}, len(config.APIKeys))
	for _, k := range config.APIKeys {
		keys[k] = struct{}{}
	}

	return &authHandler{
		apiKeys:      keys,
		jwtSecret:    []byte(config.JWTSecret),
		excludePaths: config.ExcludePaths,
		parser:       jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		logger:       logger,
	}
}

func (m *authHandler) Name() string {
	return "auth"
}

func (m *authHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	if slices.Contains(m.excludePaths, req.Path()) {
		return next.Run(req)
	}

	principal, err := m.authenticate(req)
	if err != nil {
		m.logger.Warn(req.Context(), "Authentication failed",
			observability.RequestID(GetRequestID(req)),
			observability.Path(req.Path()),
			observability.Error(err),
		)
		res := envelope.Text(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized)).
			WithHeader("WWW-Authenticate", `Bearer realm="dawn"`)
		req.SetResponse(res)
		return req, nil
	}

	envelope.SetExt(req, principal)
	return next.Run(req)
}

func (m *authHandler) authenticate(req *envelope.Request) (Principal, error) {
	if key := req.Header().Get(HeaderAPIKey); key != "" {
		if _, ok := m.apiKeys[key]; !ok {
			return Principal{}, errInvalidAPIKey
		}
		return Principal{Method: AuthMethodAPIKey}, nil
	}

	header := req.Header().Get("Authorization")
	if header == "" {
		return Principal{}, errMissingCredentials
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || len(m.jwtSecret) == 0 {
		return Principal{}, errInvalidAuthHeader
	}

	claims := jwt.MapClaims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.jwtSecret, nil
	}); err != nil {
		return Principal{}, err
	}

	subject, _ := claims.GetSubject()
	return Principal{Method: AuthMethodJWT, Subject: subject, Claims: claims}, nil
}
