package proxy

import (
	"context"
	"net/url"

	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/router"
)

// ProviderSet is a Wire provider set for proxy routes.
var ProviderSet = wire.NewSet(
	ProvideRoutes,
)

// Route is a configured upstream mounted under Prefix.
type Route struct {
	Prefix  string
	Handler pipeline.Handler
}

// Routes are the configured upstreams.
type Routes []Route

// NewRoutes builds one endpoint per configured proxy route.
func NewRoutes(routes []config.ProxyRoute, logger observability.Logger) (Routes, error) {
	out := make(Routes, 0, len(routes))
	for _, rc := range routes {
		target, err := url.Parse(rc.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "proxy.routes.target", err).
				WithContext("target", rc.Target)
		}

		out = append(out, Route{
			Prefix:  rc.Prefix,
			Handler: New(target, logger, WithTimeout(rc.Timeout)),
		})

		logger.Info(context.Background(), "Proxy route configured",
			observability.String("prefix", rc.Prefix),
			observability.String("target", target.String()),
			observability.Duration("timeout", rc.Timeout),
		)
	}
	return out, nil
}

// Mount registers every route on r.
func (rs Routes) Mount(r *router.Router) {
	for _, route := range rs {
		r.Mount(route.Prefix, route.Handler)
	}
}

func ProvideRoutes(cfg *config.Config, logger observability.Logger) (Routes, error) {
	return NewRoutes(cfg.Proxy.Routes, logger)
}
