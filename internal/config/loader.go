package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

const (
	envPrefix      = "DAWN"
	configName     = "dawn"
	defaultEnvFile = ".env"
)

// ConfigLoader defines the interface for loading and validating configuration.
type ConfigLoader interface {
	Load() (*Config, error)
	Watch(ctx context.Context) (<-chan *Config, error)
	Validate(cfg *Config) error
}

// LoaderOption customizes a loader.
type LoaderOption func(*configLoader)

// WithConfigFile reads configuration from path instead of searching the
// default locations.
func WithConfigFile(path string) LoaderOption {
	return func(l *configLoader) {
		l.configFile = path
	}
}

// WithEnvFile preloads environment variables from path. Variables already
// present in the environment are not overridden.
func WithEnvFile(path string) LoaderOption {
	return func(l *configLoader) {
		l.envFile = path
	}
}

// configLoader implements ConfigLoader using Viper for configuration management.
type configLoader struct {
	validator  *validator.Validate
	configFile string
	envFile    string
}

// NewConfigLoader creates a new configuration loader with validation.
func NewConfigLoader(opts ...LoaderOption) ConfigLoader {
	l := &configLoader{
		validator: validator.New(),
		envFile:   defaultEnvFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// newViper prepares a viper instance with file locations, the DAWN_ env
// prefix and defaults, and reads the config file if one exists.
func (l *configLoader) newViper() (*viper.Viper, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, l.envFile, err)
		}
	}

	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/dawn/")
		v.AddConfigPath("$HOME/.dawn")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "config_file", err)
		}
		// No config file is fine; env vars and defaults still apply.
	}

	return v, nil
}

// Load loads configuration from the config file, .env file and environment.
func (l *configLoader) Load() (*Config, error) {
	v, err := l.newViper()
	if err != nil {
		return nil, err
	}
	return l.decode(v)
}

func (l *configLoader) decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "unmarshal", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch monitors configuration changes and returns a channel with updated
// configs. Invalid revisions are skipped and updates stop once ctx is done.
func (l *configLoader) Watch(ctx context.Context) (<-chan *Config, error) {
	v, err := l.newViper()
	if err != nil {
		return nil, err
	}

	initial, err := l.decode(v)
	if err != nil {
		return nil, err
	}

	configCh := make(chan *Config, 1)
	configCh <- initial

	done := make(chan struct{})

	v.OnConfigChange(func(in fsnotify.Event) {
		cfg, err := l.decode(v)
		if err != nil {
			return
		}

		select {
		case <-done:
			return
		default:
		}

		select {
		case configCh <- cfg:
		case <-done:
		case <-ctx.Done():
		}
	})
	v.WatchConfig()

	go func() {
		<-ctx.Done()
		close(done)
	}()

	return configCh, nil
}

// Validate validates the configuration using struct tags and custom validation rules.
func (l *configLoader) Validate(cfg *Config) error {
	if cfg == nil {
		return dawnerrors.New(dawnerrors.ErrCodeConfigMissing, "configuration cannot be nil")
	}

	if err := l.validator.Struct(cfg); err != nil {
		return dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigValidation, "struct", err)
	}

	if err := l.validateCustomRules(cfg); err != nil {
		return dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigValidation, "rules", err)
	}

	return nil
}

// validateCustomRules performs additional validation beyond struct tags.
func (l *configLoader) validateCustomRules(cfg *Config) error {
	if cfg.TLS.Enabled {
		if cfg.TLS.AutoCert {
			if cfg.TLS.Email == "" {
				return fmt.Errorf("TLS email is required when auto-cert is enabled")
			}
			if len(cfg.TLS.Domains) == 0 {
				return fmt.Errorf("TLS domains are required when auto-cert is enabled")
			}
		} else if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert_file and key_file are required when auto-cert is disabled")
		}
	}

	if cfg.Middleware.Uses("ratelimit") {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if cfg.RateLimit.BurstSize <= 0 {
			return fmt.Errorf("rate limit burst size must be positive")
		}
	}

	if cfg.Middleware.Uses("auth") && cfg.Auth.JWTSecret == "" && len(cfg.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth middleware requires a JWT secret or at least one API key")
	}

	seen := make(map[string]struct{}, len(cfg.Middleware.Stack))
	for _, name := range cfg.Middleware.Stack {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("middleware %q is listed more than once", name)
		}
		seen[name] = struct{}{}
	}

	if cfg.Metrics.Enabled && cfg.Health.Enabled && cfg.Metrics.Path == cfg.Health.Path {
		return fmt.Errorf("metrics and health endpoints cannot share a path")
	}

	return nil
}
