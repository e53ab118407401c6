package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
)

// staticManager serves one certificate loaded from disk and reloads it when
// either file changes.
type staticManager struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	logger   observability.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStaticManager loads the key pair immediately so a bad path fails at
// startup rather than on the first handshake.
func NewStaticManager(certFile, keyFile string, logger observability.Logger) (Manager, error) {
	m := &staticManager{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger.WithFields(observability.Component("tls")),
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload reads the key pair from disk again. The previous certificate stays
// in use when loading fails.
func (m *staticManager) Reload() error {
	cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeTLSSetup, "load certificate", err).
			WithContext("cert_file", m.certFile).
			WithContext("key_file", m.keyFile)
	}
	if len(cert.Certificate) > 0 && cert.Leaf == nil {
		cert.Leaf, _ = x509.ParseCertificate(cert.Certificate[0])
	}
	m.cert.Store(&cert)
	return nil
}

func (m *staticManager) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return m.cert.Load(), nil
}

func (m *staticManager) TLSConfig() *tls.Config {
	return harden(&tls.Config{
		GetCertificate: m.getCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	})
}

func (m *staticManager) HTTPHandler(next http.Handler) http.Handler {
	return next
}

func (m *staticManager) Domains() []string {
	if leaf := m.cert.Load().Leaf; leaf != nil {
		return leaf.DNSNames
	}
	return nil
}

// Start watches the certificate directory. Editors and cert tools usually
// replace files by rename, so the directory is watched rather than the files.
func (m *staticManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeTLSSetup, "create certificate watcher", err)
	}

	dirs := map[string]struct{}{
		filepath.Dir(m.certFile): {},
		filepath.Dir(m.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return dawnerrors.Wrap(dawnerrors.ErrCodeTLSSetup, "watch certificate directory", err).
				WithContext("dir", dir)
		}
	}

	m.watcher = watcher
	m.done = make(chan struct{})
	go m.watch(ctx, watcher, m.done)

	m.logger.Info(ctx, "Watching certificate files",
		observability.String("cert_file", m.certFile),
		observability.String("key_file", m.keyFile),
	)
	return nil
}

func (m *staticManager) watch(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	certFile := filepath.Clean(m.certFile)
	keyFile := filepath.Clean(m.keyFile)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != certFile && name != keyFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.Reload(); err != nil {
				m.logger.Warn(ctx, "Certificate reload failed, keeping previous certificate",
					observability.Error(err),
				)
				continue
			}
			m.logger.Info(ctx, "Certificate reloaded", observability.String("file", name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error(ctx, err, "Certificate watcher error")
		case <-ctx.Done():
			return
		}
	}
}

func (m *staticManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	watcher, done := m.watcher, m.done
	m.watcher, m.done = nil, nil
	m.mu.Unlock()

	if watcher == nil {
		return nil
	}
	if err := watcher.Close(); err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeTLSSetup, "close certificate watcher", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
