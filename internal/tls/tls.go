// Package tls builds server TLS configuration from static certificate files
// or from ACME certificates managed by CertMagic.
package tls

import (
	"context"
	"crypto/tls"
	"net/http"
)

// Manager supplies certificates to an HTTPS server.
type Manager interface {
	// TLSConfig returns the configuration to serve HTTPS with.
	TLSConfig() *tls.Config

	// HTTPHandler wraps the plain HTTP handler so it can answer ACME
	// challenges. Managers without challenges return next unchanged.
	HTTPHandler(next http.Handler) http.Handler

	// Domains returns the names certificates are served for. Empty means any.
	Domains() []string

	// Start obtains or loads certificates and begins background renewal.
	Start(ctx context.Context) error

	// Stop ends background work.
	Stop(ctx context.Context) error
}

var cipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// harden applies the minimum version and cipher suites shared by every manager.
func harden(cfg *tls.Config) *tls.Config {
	cfg.MinVersion = tls.VersionTLS12
	cfg.CipherSuites = cipherSuites
	return cfg
}
