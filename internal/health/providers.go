package health

import (
	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/observability"
)

// ProviderSet is a Wire provider set for health checking.
var ProviderSet = wire.NewSet(
	ProvideChecker,
)

// ProvideChecker builds a checker with one HTTP probe per configured proxy
// upstream, named "upstream:<prefix>".
func ProvideChecker(cfg *config.Config, logger observability.Logger) *Checker {
	checker := NewChecker(cfg.Health.Timeout, logger)
	checker.SetConcurrency(cfg.Health.MaxConcurrency)
	for _, route := range cfg.Proxy.Routes {
		checker.Register("upstream:"+route.Prefix, HTTPProbe(nil, route.Target, 0))
	}
	return checker
}
