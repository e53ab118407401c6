package tls

import (
	"github.com/google/wire"

	"github.com/albedosehen/dawn/internal/config"
	"github.com/albedosehen/dawn/internal/observability"
)

// ProviderSet is a Wire provider set for TLS management.
var ProviderSet = wire.NewSet(
	ProvideManager,
)

// ProvideManager returns nil when TLS is disabled, an ACME manager when
// AutoCert is set and a static file manager otherwise.
func ProvideManager(cfg *config.Config, logger observability.Logger) (Manager, error) {
	tlsCfg := cfg.TLS
	switch {
	case !tlsCfg.Enabled:
		return nil, nil
	case tlsCfg.AutoCert:
		return NewACMEManager(tlsCfg, logger)
	default:
		return NewStaticManager(tlsCfg.CertFile, tlsCfg.KeyFile, logger)
	}
}
