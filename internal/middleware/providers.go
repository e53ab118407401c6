package middleware

import (
	"maps"
	"slices"

	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// ProviderSet is a Wire provider set for middleware components.
var ProviderSet = wire.NewSet(
	NewDefaultRegistry,
	ProvideStack,
)

// Factory builds one middleware handler.
type Factory func() (pipeline.Handler, error)

// Registry maps configuration names to middleware factories. It is not safe
// for concurrent registration.
type Registry struct {
	factories map[string]Factory
	cleanups  []func()
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds name to f, replacing any previous binding.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// OnClose schedules fn to run when the registry is closed.
func (r *Registry) OnClose(fn func()) {
	r.cleanups = append(r.cleanups, fn)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

// Build instantiates the named middleware in order. The first name is the
// outermost handler.
func (r *Registry) Build(names []string) (pipeline.List[pipeline.Handler], error) {
	stack := make(pipeline.List[pipeline.Handler], 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, dawnerrors.New(dawnerrors.ErrCodeConfigInvalid, "unknown middleware").
				WithContext("name", name)
		}

		h, err := factory()
		if err != nil {
			return nil, dawnerrors.Wrap(dawnerrors.ErrCodeConfigInvalid, "build middleware", err).
				WithContext("name", name)
		}
		stack = append(stack, h)
	}
	return stack, nil
}

// Close runs the cleanups registered by built middleware, most recent first.
func (r *Registry) Close() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	r.cleanups = nil
}

// NewDefaultRegistry registers every built-in middleware configured from cfg.
func NewDefaultRegistry(
	cfg *config.Config,
	logger observability.Logger,
	metrics observability.MetricsCollector,
) *Registry {
	r := NewRegistry()

	r.Register("request_id", func() (pipeline.Handler, error) {
		return NewRequestID(), nil
	})
	r.Register("recovery", func() (pipeline.Handler, error) {
		return NewRecovery(logger, metrics), nil
	})
	r.Register("logger", func() (pipeline.Handler, error) {
		return NewLogger(logger, LoggingConfig{ExcludePaths: cfg.Middleware.ExcludePaths}), nil
	})
	r.Register("error_handler", func() (pipeline.Handler, error) {
		return NewErrorHandler(logger), nil
	})
	r.Register("metrics", func() (pipeline.Handler, error) {
		return NewMetrics(metrics), nil
	})
	r.Register("ratelimit", func() (pipeline.Handler, error) {
		resolver, err := NewClientIPResolver(cfg.RateLimit.TrustedProxies)
		if err != nil {
			return nil, err
		}
		limiter := NewTokenBucketRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.CleanupInterval,
			logger,
		)
		r.OnClose(limiter.Stop)
		return NewRateLimit(limiter, resolver.ClientIP, logger, metrics), nil
	})
	r.Register("security", func() (pipeline.Handler, error) {
		sc := securityConfigFrom(cfg.Security.Headers)
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		return NewSecurityHeaders(sc, logger), nil
	})
	r.Register("cors", func() (pipeline.Handler, error) {
		cc := CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			ExposedHeaders:   cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}
		if err := cc.Validate(); err != nil {
			return nil, err
		}
		return NewCORS(cc, logger), nil
	})
	r.Register("auth", func() (pipeline.Handler, error) {
		return NewAuth(AuthConfig{
			JWTSecret:    cfg.Auth.JWTSecret,
			APIKeys:      cfg.Auth.APIKeys,
			ExcludePaths: cfg.Auth.ExcludePaths,
		}, logger), nil
	})

	return r
}

func securityConfigFrom(h config.SecurityHeaders) SecurityConfig {
	sc := SecurityConfig{
		ContentSecurityPolicy:   h.ContentSecurityPolicy,
		StrictTransportSecurity: h.StrictTransportSecurity,
		FrameOptions:            h.FrameOptions,
		ReferrerPolicy:          h.ReferrerPolicy,
		PermissionsPolicy:       h.PermissionsPolicy,
		ServerName:              h.ServerName,
	}
	if h.ContentTypeNosniff {
		sc.ContentTypeOptions = "nosniff"
	}
	return sc
}

// ProvideStack builds the configured middleware stack. The returned cleanup
// stops background work started by the stack.
func ProvideStack(cfg *config.Config, registry *Registry) (pipeline.List[pipeline.Handler], func(), error) {
	stack, err := registry.Build(cfg.Middleware.Stack)
	if err != nil {
		registry.Close()
		return nil, nil, err
	}
	return stack, registry.Close, nil
}
