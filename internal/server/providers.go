package server

import (
	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	dawntls "github.com/albedosehen/dawn/internal/tls"
)

// ProviderSet is a Wire provider set for the HTTP server.
var ProviderSet = wire.NewSet(
	ProvideServer,
)

// ProvideServer serves root on the configured address. A non-nil manager
// switches the server to HTTPS and lets it answer ACME challenges.
func ProvideServer(
	cfg *config.Config,
	root pipeline.Handler,
	manager dawntls.Manager,
	logger observability.Logger,
) *Server {
	handler := NewHTTPHandler(root, logger)
	opts := []Option{WithGracefulTimeout(cfg.Server.GracefulTimeout)}

	if manager != nil {
		handler = manager.HTTPHandler(handler)
		opts = append(opts, WithTLS(manager.TLSConfig()))
	}

	return NewFromConfig(cfg.Server, "", handler, logger, opts...)
}
