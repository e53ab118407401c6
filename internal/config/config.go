// Package config provides configuration management for dawn services.
// It handles loading, validation and live reloading of configuration from a
// YAML file, an optional .env file and environment variables using the DAWN_
// prefix convention.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Config represents the complete application configuration structure.
// All configuration uses the DAWN_ prefix for environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	TLS        TLSConfig        `mapstructure:"tls"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Security   SecurityConfig   `mapstructure:"security"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout" validate:"min=0"`
}

// TLSConfig selects between ACME certificates and static certificate files.
type TLSConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	AutoCert bool     `mapstructure:"auto_cert"`
	Email    string   `mapstructure:"email" validate:"omitempty,email"`
	Domains  []string `mapstructure:"domains" validate:"dive,hostname"`
	CacheDir string   `mapstructure:"cache_dir"`
	Staging  bool     `mapstructure:"staging"`
	CertFile string   `mapstructure:"cert_file"`
	KeyFile  string   `mapstructure:"key_file"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format    string `mapstructure:"format" validate:"oneof=json text"`
	Output    string `mapstructure:"output" validate:"oneof=stdout stderr"`
	AddSource bool   `mapstructure:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path" validate:"required,startswith=/"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path" validate:"required,startswith=/"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`

	// MaxConcurrency bounds the probes run at once; 0 is unbounded.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"min=0"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`

	// TrustedProxies lists the CIDRs whose forwarding headers identify the client.
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"omitempty,dive,cidr"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	Headers SecurityHeaders `mapstructure:"headers"`
}

// SecurityHeaders defines HTTP security headers configuration.
type SecurityHeaders struct {
	ContentTypeNosniff      bool   `mapstructure:"content_type_nosniff"`
	FrameOptions            string `mapstructure:"frame_options"`
	ContentSecurityPolicy   string `mapstructure:"content_security_policy"`
	StrictTransportSecurity string `mapstructure:"strict_transport_security"`
	ReferrerPolicy          string `mapstructure:"referrer_policy"`
	PermissionsPolicy       string `mapstructure:"permissions_policy"`
	ServerName              string `mapstructure:"server_name"`
}

// CORSConfig contains Cross-Origin Resource Sharing configuration.
type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// AuthConfig contains bearer token and API key authentication configuration.
type AuthConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	APIKeys      []string `mapstructure:"api_keys"`
	ExcludePaths []string `mapstructure:"exclude_paths"`
}

// MiddlewareConfig lists the middleware stack, outermost first.
type MiddlewareConfig struct {
	Stack        []string `mapstructure:"stack" validate:"dive,oneof=request_id recovery logger error_handler metrics ratelimit security cors auth"`
	ExcludePaths []string `mapstructure:"log_exclude_paths"`
}

// ProxyConfig lists path prefixes forwarded to upstream services.
type ProxyConfig struct {
	Routes []ProxyRoute `mapstructure:"routes" validate:"dive"`
}

// ProxyRoute forwards every request under Prefix to Target.
type ProxyRoute struct {
	Prefix  string        `mapstructure:"prefix" validate:"required,startswith=/"`
	Target  string        `mapstructure:"target" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// GetCAEndpoint returns the appropriate ACME CA endpoint based on staging configuration.
func (t *TLSConfig) GetCAEndpoint() string {
	if t.Staging {
		return "https://acme-staging-v02.api.letsencrypt.org/directory"
	}
	return "https://acme-v02.api.letsencrypt.org/directory"
}

// GetServerAddress returns the formatted server address for listening.
func (s *ServerConfig) GetServerAddress() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// Uses reports whether the named middleware is part of the stack.
func (m *MiddlewareConfig) Uses(name string) bool {
	return slices.Contains(m.Stack, name)
}
