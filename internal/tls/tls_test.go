package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/config"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/testutil"
)

// writeKeyPair writes a self-signed certificate for dnsName into dir.
func writeKeyPair(t *testing.T, dir, dnsName string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: dnsName},
		DNSNames:     []string{dnsName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestNewStaticManager_ValidPair_ServesCertificate(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "example.test")

	m, err := NewStaticManager(certFile, keyFile, observability.Nop())
	require.NoError(t, err)

	cfg := m.TLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Contains(t, cfg.NextProtos, "h2")

	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.test"})
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.Equal(t, []string{"example.test"}, m.Domains())
}

func TestNewStaticManager_MissingFiles_ReturnsTLSSetupError(t *testing.T) {
	dir := t.TempDir()

	_, err := NewStaticManager(filepath.Join(dir, "missing.crt"), filepath.Join(dir, "missing.key"), observability.Nop())

	require.Error(t, err)
	var coded *dawnerrors.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, dawnerrors.ErrCodeTLSSetup, coded.Code)
}

func TestStaticManager_HTTPHandler_PassesThrough(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "example.test")
	m, err := NewStaticManager(certFile, keyFile, observability.Nop())
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec := httptest.NewRecorder()
	m.HTTPHandler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStaticManager_Start_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "old.test")

	m, err := NewStaticManager(certFile, keyFile, observability.Nop())
	require.NoError(t, err)

	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer func() { _ = m.Stop(context.Background()) }()

	writeKeyPair(t, dir, "new.test")

	testutil.AssertEventuallyTrue(t, func() bool {
		domains := m.Domains()
		return len(domains) == 1 && domains[0] == "new.test"
	}, 2*time.Second, "certificate was not reloaded")
}

func TestStaticManager_Stop_Idempotent(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "example.test")
	m, err := NewStaticManager(certFile, keyFile, observability.Nop())
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	assert.NoError(t, m.Stop(context.Background()))
	assert.NoError(t, m.Stop(context.Background()))
}

func TestNewACMEManager_Validation(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.TLSConfig
		expectedField string
	}{
		{
			name:          "NewACMEManager_NoEmail_ConfigMissing",
			cfg:           config.TLSConfig{Domains: []string{"example.com"}},
			expectedField: "tls.email",
		},
		{
			name:          "NewACMEManager_NoDomains_ConfigMissing",
			cfg:           config.TLSConfig{Email: "ops@example.com"},
			expectedField: "tls.domains",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewACMEManager(tt.cfg, observability.Nop())

			var coded *dawnerrors.Error
			require.True(t, errors.As(err, &coded))
			assert.Equal(t, dawnerrors.ErrCodeConfigMissing, coded.Code)
			assert.Equal(t, tt.expectedField, coded.Context["field"])
		})
	}
}

func TestNewACMEManager_Staging_UsesStagingCA(t *testing.T) {
	cfg := config.TLSConfig{
		Enabled:  true,
		AutoCert: true,
		Email:    "ops@example.com",
		Domains:  []string{"example.com"},
		CacheDir: t.TempDir(),
		Staging:  true,
	}

	m, err := NewACMEManager(cfg, observability.Nop())
	require.NoError(t, err)
	defer func() { _ = m.Stop(context.Background()) }()

	am := m.(*acmeManager)
	assert.Equal(t, cfg.GetCAEndpoint(), am.issuer.CA)
	assert.Equal(t, []string{"example.com"}, m.Domains())
	assert.Contains(t, m.TLSConfig().NextProtos, "h2")

	rec := httptest.NewRecorder()
	m.HTTPHandler(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProvideManager(t *testing.T) {
	certFile, keyFile := writeKeyPair(t, t.TempDir(), "example.test")

	tests := []struct {
		name        string
		tls         config.TLSConfig
		expectNil   bool
		expectError bool
	}{
		{name: "ProvideManager_Disabled_Nil", tls: config.TLSConfig{}, expectNil: true},
		{name: "ProvideManager_StaticFiles_Manager", tls: config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}},
		{name: "ProvideManager_AutoCertWithoutEmail_Error", tls: config.TLSConfig{Enabled: true, AutoCert: true}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutil.GetTestConfig()
			cfg.TLS = tt.tls

			m, err := ProvideManager(cfg, observability.Nop())

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, m)
				return
			}
			assert.NotNil(t, m)
		})
	}
}
