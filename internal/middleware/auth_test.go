package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/testutil"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuth_Run(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongSecret := signToken(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "alice"})
	wrongAlg := signToken(t, jwt.SigningMethodHS384, testSecret, jwt.MapClaims{"sub": "alice"})

	tests := []struct {
		name            string
		path            string
		headers         map[string]string
		expectedStatus  int
		expectedMethod  string
		expectedSubject string
	}{
		{
			name:            "Run_ValidBearer_Authenticated",
			headers:         map[string]string{"Authorization": "Bearer " + valid},
			expectedStatus:  http.StatusOK,
			expectedMethod:  AuthMethodJWT,
			expectedSubject: "alice",
		},
		{
			name:           "Run_ValidAPIKey_Authenticated",
			headers:        map[string]string{HeaderAPIKey: "key-1"},
			expectedStatus: http.StatusOK,
			expectedMethod: AuthMethodAPIKey,
		},
		{
			name:           "Run_UnknownAPIKey_Unauthorized",
			headers:        map[string]string{HeaderAPIKey: "nope"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_NoCredentials_Unauthorized",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_NotBearer_Unauthorized",
			headers:        map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_ExpiredToken_Unauthorized",
			headers:        map[string]string{"Authorization": "Bearer " + expired},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_WrongSecret_Unauthorized",
			headers:        map[string]string{"Authorization": "Bearer " + wrongSecret},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_WrongAlgorithm_Unauthorized",
			headers:        map[string]string{"Authorization": "Bearer " + wrongAlg},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Run_ExcludedPath_Bypassed",
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var principal Principal
			var authenticated bool
			h := pipeline.Pair(
				NewAuth(AuthConfig{
					JWTSecret:    testSecret,
					APIKeys:      []string{"key-1"},
					ExcludePaths: []string{"/health"},
				}, observability.Nop()),
				pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
					principal, authenticated = GetPrincipal(req)
					req.SetResponse(envelope.Text(http.StatusOK, "secret"))
					return req, nil
				}),
			)
			path := tt.path
			if path == "" {
				path = "/private"
			}

			// Act
			out := testutil.Run(t, h, testutil.NewRequestWithHeaders(http.MethodGet, path, tt.headers))

			// Assert
			res := out.Response()
			require.NotNil(t, res)
			assert.Equal(t, tt.expectedStatus, res.StatusCode())

			if tt.expectedStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, res.Header.Get("WWW-Authenticate"))
				assert.False(t, authenticated)
				return
			}
			if tt.expectedMethod == "" {
				assert.False(t, authenticated)
				return
			}
			require.True(t, authenticated)
			assert.Equal(t, tt.expectedMethod, principal.Method)
			assert.Equal(t, tt.expectedSubject, principal.Subject)
		})
	}
}

func TestAuth_Run_JWTDisabledWithoutSecret(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, "some-secret", jwt.MapClaims{"sub": "x"})
	h := pipeline.Pair(NewAuth(AuthConfig{APIKeys: []string{"k"}}, observability.Nop()), testutil.Respond(http.StatusOK, "ok"))

	out := testutil.Run(t, h, testutil.NewRequestWithHeaders(http.MethodGet, "/", map[string]string{
		"Authorization": "Bearer " + token,
	}))

	assert.Equal(t, http.StatusUnauthorized, out.Response().StatusCode())
}

func TestAuth_Run_LogsRejectedCredentials(t *testing.T) {
	logger := testutil.NewMockLogger()
	logger.On("Warn", mock.Anything, "Authentication failed", mock.Anything).Return()

	h := pipeline.Pair(NewAuth(AuthConfig{APIKeys: []string{"key-1"}}, logger), testutil.Respond(http.StatusOK, "ok"))

	out := testutil.Run(t, h, testutil.NewRequestWithHeaders(http.MethodGet, "/", map[string]string{
		HeaderAPIKey: "nope",
	}))
	assert.Equal(t, http.StatusUnauthorized, out.Response().StatusCode())

	out = testutil.Run(t, h, testutil.NewRequestWithHeaders(http.MethodGet, "/", map[string]string{
		HeaderAPIKey: "key-1",
	}))
	assert.Equal(t, http.StatusOK, out.Response().StatusCode())

	logger.AssertNumberOfCalls(t, "Warn", 1)
	logger.AssertExpectations(t)
}
