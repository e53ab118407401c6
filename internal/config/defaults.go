package config

import (
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// DefaultStack is the middleware stack used when none is configured.
var DefaultStack = []string{"request_id", "logger", "error_handler", "recovery", "metrics", "security"}

// setDefaults configures all default values for the application configuration.
// Every key needs a default so that AutomaticEnv can bind its DAWN_ variable.
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.graceful_timeout", d.Server.GracefulTimeout)

	v.SetDefault("tls.enabled", d.TLS.Enabled)
	v.SetDefault("tls.auto_cert", d.TLS.AutoCert)
	v.SetDefault("tls.email", "")
	v.SetDefault("tls.domains", []string{})
	v.SetDefault("tls.cache_dir", d.TLS.CacheDir)
	v.SetDefault("tls.staging", d.TLS.Staging)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.add_source", d.Logging.AddSource)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)

	v.SetDefault("health.enabled", d.Health.Enabled)
	v.SetDefault("health.path", d.Health.Path)
	v.SetDefault("health.timeout", d.Health.Timeout)
	v.SetDefault("health.max_concurrency", d.Health.MaxConcurrency)

	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst_size", d.RateLimit.BurstSize)
	v.SetDefault("ratelimit.cleanup_interval", d.RateLimit.CleanupInterval)
	v.SetDefault("ratelimit.trusted_proxies", d.RateLimit.TrustedProxies)

	v.SetDefault("security.headers.content_type_nosniff", d.Security.Headers.ContentTypeNosniff)
	v.SetDefault("security.headers.frame_options", d.Security.Headers.FrameOptions)
	v.SetDefault("security.headers.content_security_policy", d.Security.Headers.ContentSecurityPolicy)
	v.SetDefault("security.headers.strict_transport_security", d.Security.Headers.StrictTransportSecurity)
	v.SetDefault("security.headers.referrer_policy", d.Security.Headers.ReferrerPolicy)
	v.SetDefault("security.headers.permissions_policy", d.Security.Headers.PermissionsPolicy)
	v.SetDefault("security.headers.server_name", d.Security.Headers.ServerName)

	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", d.CORS.ExposedHeaders)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.exclude_paths", d.Auth.ExcludePaths)

	v.SetDefault("middleware.stack", d.Middleware.Stack)
	v.SetDefault("middleware.log_exclude_paths", d.Middleware.ExcludePaths)

	v.SetDefault("proxy.routes", []map[string]interface{}{})
}

// GetDefaultConfig returns a configuration object with all default values applied.
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			GracefulTimeout: 30 * time.Second,
		},
		TLS: TLSConfig{
			CacheDir: "/tmp/certs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "dawn",
			Subsystem: "pipeline",
		},
		Health: HealthConfig{
			Enabled:        true,
			Path:           "/health",
			Timeout:        5 * time.Second,
			MaxConcurrency: 8,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100.0,
			BurstSize:         200,
			CleanupInterval:   10 * time.Minute,
			TrustedProxies:    []string{},
		},
		Security: SecurityConfig{
			Headers: SecurityHeaders{
				ContentTypeNosniff:      true,
				FrameOptions:            "DENY",
				ContentSecurityPolicy:   "default-src 'self'",
				StrictTransportSecurity: "max-age=31536000; includeSubDomains",
				ReferrerPolicy:          "strict-origin-when-cross-origin",
				ServerName:              "dawn",
			},
		},
		CORS: CORSConfig{
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
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         12 * time.Hour,
		},
		Auth: AuthConfig{
			ExcludePaths: []string{"/health", "/metrics"},
		},
		Middleware: MiddlewareConfig{
			Stack:        append([]string(nil), DefaultStack...),
			ExcludePaths: []string{"/favicon.ico"},
		},
	}
}
