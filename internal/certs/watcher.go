package certs

import (
	"context"
	"fmt"
	"os"
	"time"
)

type certWatcher struct {
	m           *Manager
	lastCertMod time.Time
	lastKeyMod  time.Time
}

func newCertWatcher(m *Manager) *certWatcher {
	watcher := &certWatcher{m: m}
	watcher.initializeModTimes()
	return watcher
}

func (cw *certWatcher) initializeModTimes() {
	if info, err := os.Stat(cw.m.certPath); err == nil {
		cw.lastCertMod = info.ModTime()
	}
	if info, err := os.Stat(cw.m.keyPath); err == nil {
		cw.lastKeyMod = info.ModTime()
	}
}

func (cw *certWatcher) watch(ctx context.Context) {
	ticker := time.NewTicker(cw.m.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cw.checkAndReloadCerts(ctx) {
				return
			}
		}
	}
}

// checkAndReloadCerts reports whether watching should stop.
func (cw *certWatcher) checkAndReloadCerts(ctx context.Context) bool {
	certInfo, keyInfo, err := cw.getFileInfo()
	if err != nil {
		return false
	}

	if !cw.filesModified(certInfo, keyInfo) {
		return false
	}

	return cw.handleCertificateChange(ctx, certInfo, keyInfo)
}

func (cw *certWatcher) getFileInfo() (os.FileInfo, os.FileInfo, error) {
	certInfo, certErr := os.Stat(cw.m.certPath)
	keyInfo, keyErr := os.Stat(cw.m.keyPath)

	if certErr != nil || keyErr != nil {
		return nil, nil, fmt.Errorf("file stat error")
	}

	return certInfo, keyInfo, nil
}

func (cw *certWatcher) filesModified(certInfo, keyInfo os.FileInfo) bool {
	return certInfo.ModTime().After(cw.lastCertMod) || keyInfo.ModTime().After(cw.lastKeyMod)
}

func (cw *certWatcher) handleCertificateChange(ctx context.Context, certInfo, keyInfo os.FileInfo) bool {
	log := cw.m.logger
	log.Info().Msg("Certificate files changed, reloading")

	if !validateCertDomains(cw.m.certPath, cw.m.config.Domains(), log) {
		return cw.switchToCertMagic(ctx)
	}

	if err := cw.m.loadUserCerts(); err != nil {
		log.Error().Err(err).Msg("Failed to reload certificates")
		return false
	}

	cw.updateModTimes(certInfo, keyInfo)
	log.Info().Msg("Certificates reloaded successfully")
	return false
}

func (cw *certWatcher) switchToCertMagic(ctx context.Context) bool {
	cw.m.logger.Warn().Msg("New certificates don't cover required domains, switching to CertMagic")

	if err := cw.m.switchToCertMagic(ctx); err != nil {
		cw.m.logger.Error().Err(err).Msg("Failed to initialize CertMagic")
		return false
	}
	return true
}

func (cw *certWatcher) updateModTimes(certInfo, keyInfo os.FileInfo) {
	cw.lastCertMod = certInfo.ModTime()
	cw.lastKeyMod = keyInfo.ModTime()
}
