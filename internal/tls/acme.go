package tls

import (
	"context"
	"crypto/tls"
	"net/http"
	"slices"
	"sync"

	"github.com/caddyserver/certmagic"

	"github.com/albedosehen/dawn/internal/config"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
)

const defaultCacheDir = "./certs"

// acmeManager obtains and renews certificates with CertMagic.
type acmeManager struct {
	magic   *certmagic.Config
	cache   *certmagic.Cache
	issuer  *certmagic.ACMEIssuer
	domains []string
	logger  observability.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewACMEManager configures CertMagic with file storage under cfg.CacheDir
// and an ACME issuer for cfg.Domains. Nothing is requested until Start.
func NewACMEManager(cfg config.TLSConfig, logger observability.Logger) (Manager, error) {
	if cfg.Email == "" {
		return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigMissing, "tls.email", nil)
	}
	if len(cfg.Domains) == 0 {
		return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigMissing, "tls.domains", nil)
	}

	dir := cfg.CacheDir
	if dir == "" {
		dir = defaultCacheDir
	}

	var magic *certmagic.Config
	cache := certmagic.NewCache(certmagic.CacheOptions{
		GetConfigForCert: func(certmagic.Certificate) (*certmagic.Config, error) {
			return magic, nil
		},
	})
	magic = certmagic.New(cache, certmagic.Config{
		Storage: &certmagic.FileStorage{Path: dir},
	})

	issuer := certmagic.NewACMEIssuer(magic, certmagic.ACMEIssuer{
		CA:     cfg.GetCAEndpoint(),
		Email:  cfg.Email,
		Agreed: true,
	})
	magic.Issuers = []certmagic.Issuer{issuer}

	return &acmeManager{
		magic:   magic,
		cache:   cache,
		issuer:  issuer,
		domains: slices.Clone(cfg.Domains),
		logger:  logger.WithFields(observability.Component("tls")),
	}, nil
}

func (m *acmeManager) TLSConfig() *tls.Config {
	cfg := m.magic.TLSConfig()
	for _, proto := range []string{"http/1.1", "h2"} {
		if !slices.Contains(cfg.NextProtos, proto) {
			cfg.NextProtos = append([]string{proto}, cfg.NextProtos...)
		}
	}
	return harden(cfg)
}

func (m *acmeManager) HTTPHandler(next http.Handler) http.Handler {
	return m.issuer.HTTPChallengeHandler(next)
}

func (m *acmeManager) Domains() []string {
	return slices.Clone(m.domains)
}

// Start begins managing the configured domains. Issuance runs in the
// background, so Start returns before certificates exist.
func (m *acmeManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if m.stopped {
		return dawnerrors.New(dawnerrors.ErrCodeTLSSetup, "certificate manager already stopped")
	}

	if err := m.magic.ManageAsync(ctx, m.domains); err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeTLSSetup, "manage certificates", err).
			WithContext("domains", m.domains)
	}
	m.started = true

	m.logger.Info(ctx, "Managing ACME certificates",
		observability.Any("domains", m.domains),
		observability.String("ca", m.issuer.CA),
	)
	return nil
}

func (m *acmeManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The cache runs maintenance from construction, so it is stopped even
	// when Start was never called.
	if m.stopped {
		return nil
	}
	m.cache.Stop()
	m.stopped = true
	m.started = false

	m.logger.Info(ctx, "Stopped ACME certificate maintenance")
	return nil
}
