package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const renewalWindow = 30 * 24 * time.Hour

func LoadKeyPair(certPath, keyPath string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("parse leaf: %w", err)
		}
		cert.Leaf = leaf
	}
	return &cert, nil
}

func validateCertDomains(certPath string, domains []string, logger zerolog.Logger) bool {
	cert, err := loadAndParseCertificate(certPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", certPath).Msg("Failed to read certificate")
		return false
	}

	if !isCertificateValid(cert, time.Now(), logger) {
		return false
	}

	missing := uncoveredDomains(cert, domains)
	if len(missing) > 0 {
		logger.Warn().Strs("missing", missing).Msg("Certificate does not cover every configured domain")
		return false
	}
	return true
}

func loadAndParseCertificate(certPath string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	return x509.ParseCertificate(block.Bytes)
}

func isCertificateValid(cert *x509.Certificate, now time.Time, logger zerolog.Logger) bool {
	if now.After(cert.NotAfter) {
		logger.Warn().Time("not_after", cert.NotAfter).Msg("Certificate has expired")
		return false
	}

	if now.Add(renewalWindow).After(cert.NotAfter) {
		logger.Warn().Time("not_after", cert.NotAfter).Msg("Certificate expiring soon, will use CertMagic for renewal")
		return false
	}

	return true
}

func uncoveredDomains(cert *x509.Certificate, domains []string) []string {
	var missing []string
	for _, d := range domains {
		if err := cert.VerifyHostname(d); err != nil {
			missing = append(missing, d)
		}
	}
	return missing
}

func extractCertDomains(cert *x509.Certificate) []string {
	var domains []string
	seen := make(map[string]struct{})
	add := func(d string) {
		if d == "" {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}

	if len(cert.DNSNames) == 0 {
		add(cert.Subject.CommonName)
	}
	for _, d := range cert.DNSNames {
		add(d)
	}
	return domains
}
