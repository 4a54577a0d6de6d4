package certs

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/cloudflare"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

type MagicResolver struct {
	magic   *certmagic.Config
	cache   *certmagic.Cache
	issuer  *certmagic.ACMEIssuer
	domains []string
	logger  zerolog.Logger
}

type magicOptions struct {
	domains     []string
	storagePath string
	email       string
	staging     bool
	cfAPIToken  string
	logger      zerolog.Logger
	zap         *zap.Logger
}

func newMagicResolver(opts magicOptions) (*MagicResolver, error) {
	if len(opts.domains) == 0 {
		return nil, fmt.Errorf("no domains to manage")
	}

	mr := &MagicResolver{
		domains: opts.domains,
		logger:  opts.logger,
	}

	storage := &certmagic.FileStorage{Path: opts.storagePath}

	mr.cache = certmagic.NewCache(certmagic.CacheOptions{
		GetConfigForCert: func(cert certmagic.Certificate) (*certmagic.Config, error) {
			return mr.magic, nil
		},
		Logger: opts.zap,
	})

	mr.magic = certmagic.New(mr.cache, certmagic.Config{
		Storage: storage,
		Logger:  opts.zap,
	})

	mr.issuer = createACMEIssuer(mr.magic, opts)
	mr.magic.Issuers = []certmagic.Issuer{mr.issuer}

	return mr, nil
}

func createACMEIssuer(magic *certmagic.Config, opts magicOptions) *certmagic.ACMEIssuer {
	template := certmagic.ACMEIssuer{
		Email:                   opts.email,
		Agreed:                  true,
		DisableTLSALPNChallenge: true,
		Logger:                  opts.zap,
	}

	if opts.cfAPIToken != "" {
		template.DNS01Solver = &certmagic.DNS01Solver{
			DNSManager: certmagic.DNSManager{
				DNSProvider: &cloudflare.Provider{APIToken: opts.cfAPIToken},
			},
		}
		opts.logger.Info().Msg("Using DNS-01 challenges through Cloudflare")
	} else {
		opts.logger.Info().Msg("Using HTTP-01 challenges on the plain listener")
	}

	if opts.staging {
		template.CA = certmagic.LetsEncryptStagingCA
		opts.logger.Info().Msg("Using Let's Encrypt staging server")
	} else {
		template.CA = certmagic.LetsEncryptProductionCA
		opts.logger.Info().Msg("Using Let's Encrypt production server")
	}

	return certmagic.NewACMEIssuer(magic, template)
}

// obtainCertificates hands the domains to certmagic without waiting for
// issuance; handshakes for a domain fail until its certificate is ready.
func (mr *MagicResolver) obtainCertificates(ctx context.Context) error {
	mr.logger.Info().Strs("domains", mr.domains).Msg("Requesting certificates")

	if err := mr.magic.ManageAsync(ctx, mr.domains); err != nil {
		return fmt.Errorf("failed to manage certificates: %w", err)
	}
	return nil
}

func (mr *MagicResolver) Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return mr.magic.GetCertificate(hello)
}

func (mr *MagicResolver) HTTPChallengeHandler(next http.Handler) http.Handler {
	return mr.issuer.HTTPChallengeHandler(next)
}

func (mr *MagicResolver) Domains() []string {
	out := make([]string, len(mr.domains))
	copy(out, mr.domains)
	return out
}

func (mr *MagicResolver) Stop() {
	mr.cache.Stop()
}
