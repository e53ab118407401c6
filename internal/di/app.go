// Package di assembles a dawn application from configuration.
package di

import (
	"context"
	"sync"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/health"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/proxy"
	"github.com/albedosehen/dawn/internal/router"
	"github.com/albedosehen/dawn/internal/server"
	dawntls "github.com/albedosehen/dawn/internal/tls"
)

// AppRoutes registers the application's own routes. It runs after the
// built-in endpoints and proxy mounts are registered.
type AppRoutes func(r *router.Router)

// Application is a fully wired service.
type Application struct {
	Config  *config.Config
	Logger  observability.Logger
	Metrics observability.MetricsCollector
	Router  *router.Router
	Health  *health.Checker
	TLS     dawntls.Manager
	Server  *server.Server

	mu      sync.Mutex
	running bool
}

// ProvideRouter builds the root router: health and metrics endpoints when
// enabled, one mount per proxy route, then the application's routes.
func ProvideRouter(
	cfg *config.Config,
	logger observability.Logger,
	metrics observability.MetricsCollector,
	upstreams proxy.Routes,
	checker *health.Checker,
	routes AppRoutes,
) *router.Router {
	r := router.New(router.WithLogger(logger))

	if cfg.Health.Enabled {
		r.Get(cfg.Health.Path, checker.Handler())
	}
	if cfg.Metrics.Enabled {
		r.Get(cfg.Metrics.Path, pipeline.HTTP(observability.MetricsHandler(metrics)))
	}
	upstreams.Mount(r)

	if routes != nil {
		routes(r)
	}
	return r
}

// ProvideRoot places the configured middleware stack in front of r.
func ProvideRoot(stack pipeline.List[pipeline.Handler], r *router.Router) pipeline.Handler {
	return pipeline.Pair(stack, r)
}

func ProvideApplication(
	cfg *config.Config,
	logger observability.Logger,
	metrics observability.MetricsCollector,
	r *router.Router,
	checker *health.Checker,
	manager dawntls.Manager,
	srv *server.Server,
) *Application {
	return &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Router:  r,
		Health:  checker,
		TLS:     manager,
		Server:  srv,
	}
}

// Run serves until ctx ends. Certificate management runs for as long as
// the server does.
func (a *Application) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if a.TLS != nil {
		if err := a.TLS.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := a.TLS.Stop(context.WithoutCancel(ctx)); err != nil {
				a.Logger.Warn(ctx, "Failed to stop certificate manager", observability.Error(err))
			}
		}()
	}

	a.Logger.Info(ctx, "Starting dawn",
		observability.String("address", a.Config.Server.GetServerAddress()),
		observability.Bool("tls_enabled", a.TLS != nil),
		observability.Int("route_count", len(a.Router.Routes())),
		observability.Int("upstream_count", len(a.Config.Proxy.Routes)),
	)

	err := a.Server.Run(ctx)
	if err != nil {
		a.Logger.Error(ctx, err, "Server exited with error")
		return err
	}

	a.Logger.Info(ctx, "dawn stopped")
	return nil
}

// IsRunning reports whether Run is in progress.
func (a *Application) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
