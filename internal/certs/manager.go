package certs

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"tlsfront/internal/config"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

type Resolver interface {
	Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// Manager decides where certificates come from: a user supplied key pair
// in TLS_STORAGE_PATH when it is valid for every configured domain, certmagic
// otherwise. It can switch from the former to the latter at runtime.
type Manager struct {
	config config.Config
	logger zerolog.Logger
	zap    *zap.Logger

	certPath    string
	keyPath     string
	storagePath string

	static *StaticResolver
	magic  *MagicResolver

	useCertMagic atomic.Bool
	magicMu      sync.Mutex

	watchInterval time.Duration
	started       atomic.Bool
}

func NewManager(cfg config.Config, logger zerolog.Logger, zapLogger *zap.Logger) (*Manager, error) {
	m := createManager(cfg, logger, zapLogger)
	if err := m.initialize(); err != nil {
		return nil, err
	}
	return m, nil
}

func createManager(cfg config.Config, logger zerolog.Logger, zapLogger *zap.Logger) *Manager {
	cleanBase := filepath.Clean(cfg.TLSStoragePath())
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	return &Manager{
		config:        cfg,
		logger:        logger.With().Str("component", "certs").Logger(),
		zap:           zapLogger,
		certPath:      filepath.Join(cleanBase, "cert.pem"),
		keyPath:       filepath.Join(cleanBase, "privkey.pem"),
		storagePath:   filepath.Join(cleanBase, "certmagic"),
		static:        NewStaticResolver(),
		watchInterval: 30 * time.Second,
	}
}

func (m *Manager) initialize() error {
	if m.userCertsExistAndValid() {
		return m.initializeWithUserCerts()
	}
	return m.initializeWithCertMagic()
}

func (m *Manager) initializeWithUserCerts() error {
	m.logger.Info().Str("cert", m.certPath).Str("key", m.keyPath).Msg("Using user-provided certificates")

	if err := m.loadUserCerts(); err != nil {
		return fmt.Errorf("failed to load user certificates: %w", err)
	}

	m.useCertMagic.Store(false)
	return nil
}

func (m *Manager) initializeWithCertMagic() error {
	m.logger.Info().Strs("domains", m.config.Domains()).Msg("User certificates missing or incomplete, using CertMagic")

	if err := m.initCertMagic(); err != nil {
		return fmt.Errorf("failed to initialize CertMagic: %w", err)
	}

	m.useCertMagic.Store(true)
	return nil
}

func (m *Manager) userCertsExistAndValid() bool {
	if !m.certFilesExist() {
		return false
	}
	return validateCertDomains(m.certPath, m.config.Domains(), m.logger)
}

func (m *Manager) certFilesExist() bool {
	if _, err := os.Stat(m.certPath); os.IsNotExist(err) {
		m.logger.Debug().Str("path", m.certPath).Msg("Certificate file not found")
		return false
	}
	if _, err := os.Stat(m.keyPath); os.IsNotExist(err) {
		m.logger.Debug().Str("path", m.keyPath).Msg("Key file not found")
		return false
	}
	return true
}

func (m *Manager) loadUserCerts() error {
	cert, err := LoadKeyPair(m.certPath, m.keyPath)
	if err != nil {
		return err
	}

	if err = m.static.Replace(cert); err != nil {
		return err
	}

	m.logger.Info().Strs("hosts", m.static.Hosts()).Msg("Loaded user certificates successfully")
	return nil
}

func (m *Manager) initCertMagic() error {
	m.magicMu.Lock()
	defer m.magicMu.Unlock()

	if m.magic != nil {
		return nil
	}

	if err := m.createStorageDirectory(); err != nil {
		return err
	}

	magic, err := newMagicResolver(magicOptions{
		domains:     m.config.Domains(),
		storagePath: m.storagePath,
		email:       m.config.ACMEEmail(),
		staging:     m.config.ACMEStaging(),
		cfAPIToken:  m.config.CFAPIToken(),
		logger:      m.logger,
		zap:         m.zap,
	})
	if err != nil {
		return err
	}

	m.magic = magic
	return nil
}

func (m *Manager) createStorageDirectory() error {
	if err := os.MkdirAll(m.storagePath, 0700); err != nil {
		return fmt.Errorf("failed to create cert storage directory: %w", err)
	}
	return nil
}

// Start begins background work: certificate management through certmagic, or
// watching the user key pair for changes. It must run after the plain listener
// is bound so HTTP-01 challenges can be answered.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	if m.useCertMagic.Load() {
		return m.currentMagic().obtainCertificates(ctx)
	}

	go newCertWatcher(m).watch(ctx)
	return nil
}

func (m *Manager) Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.useCertMagic.Load() {
		return m.currentMagic().Resolve(hello)
	}
	return m.static.Resolve(hello)
}

func (m *Manager) HTTPChallengeHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if magic := m.currentMagic(); magic != nil && m.useCertMagic.Load() {
			magic.HTTPChallengeHandler(next).ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) UsingCertMagic() bool {
	return m.useCertMagic.Load()
}

func (m *Manager) Close() {
	if magic := m.currentMagic(); magic != nil {
		magic.Stop()
	}
}

func (m *Manager) currentMagic() *MagicResolver {
	m.magicMu.Lock()
	defer m.magicMu.Unlock()
	return m.magic
}

func (m *Manager) switchToCertMagic(ctx context.Context) error {
	if err := m.initCertMagic(); err != nil {
		return err
	}
	if err := m.currentMagic().obtainCertificates(ctx); err != nil {
		return err
	}
	m.useCertMagic.Store(true)
	return nil
}
