package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// Run serves h on addr until SIGINT or SIGTERM, then drains in-flight
// requests for DefaultGracefulTimeout before closing connections.
//
// The returned error is a coded error: ErrCodeTransport when the listener
// fails, ErrCodeUnexpectedShutdown when serving stops without a signal and
// ErrCodeForcedShutdown when the drain did not finish in time.
func Run(addr string, h pipeline.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.Default()
	return New(addr, NewHTTPHandler(h, logger), logger).Run(ctx)
}

// Serve runs h with the listen address and timeouts from cfg until ctx ends.
func Serve(
	ctx context.Context,
	cfg config.ServerConfig,
	h pipeline.Handler,
	logger observability.Logger,
	opts ...Option,
) error {
	return NewFromConfig(cfg, "", NewHTTPHandler(h, logger), logger, opts...).Run(ctx)
}
