package sni

import (
	"crypto/tls"

	"github.com/rs/zerolog"
)

// Install returns a copy of base with d as its only certificate selection
// policy. A GetCertificate already present on base is dropped, not chained:
// there is no agreed order for running two policies.
func Install(base *tls.Config, d *Dispatcher, logger zerolog.Logger) *tls.Config {
	var cfg *tls.Config
	if base == nil {
		cfg = &tls.Config{}
	} else {
		cfg = base.Clone()
	}

	if cfg.GetCertificate != nil {
		logger.Warn().Msg("Ignoring the GetCertificate callback in the given TLS options; certificates are selected per host by the built-in resolver")
	}

	cfg.GetCertificate = d.GetCertificate
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}
