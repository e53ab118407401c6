//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/health"
	"github.com/albedosehen/dawn/internal/middleware"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/proxy"
	"github.com/albedosehen/dawn/internal/server"
	dawntls "github.com/albedosehen/dawn/internal/tls"
)

// applicationSet holds every provider except the configuration source.
var applicationSet = wire.NewSet(
	config.ProvideLoggingConfigFromConfig,
	config.ProvideMetricsConfigFromConfig,

	observability.ProviderSet,
	middleware.ProviderSet,
	proxy.ProviderSet,
	health.ProviderSet,
	dawntls.ProviderSet,
	server.ProviderSet,

	ProvideRouter,
	ProvideRoot,
	ProvideApplication,
)

// InitializeApplication wires an application from configuration loaded from
// dawn.yaml, .env and DAWN_ environment variables.
func InitializeApplication(routes AppRoutes) (*Application, func(), error) {
	wire.Build(
		config.ProvideConfig,
		applicationSet,
	)
	return nil, nil, nil
}

// InitializeApplicationWithConfig wires an application from cfg.
func InitializeApplicationWithConfig(cfg *config.Config, routes AppRoutes) (*Application, func(), error) {
	wire.Build(
		applicationSet,
	)
	return nil, nil, nil
}
