package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

var ErrNoCertificateSource = errors.New("tls config has no certificate source")

type https struct {
	server  *http.Server
	variant Variant
}

// NewHTTPSServer fixes the transport variant and TLS settings for the lifetime
// of the returned Transport. tlsConfig is cloned.
func NewHTTPSServer(tlsConfig *tls.Config, handler http.Handler, variant Variant, logger zerolog.Logger) (Transport, error) {
	if tlsConfig == nil || !hasCertificateSource(tlsConfig) {
		return nil, ErrNoCertificateSource
	}

	server := newServer(handler, logger.With().Str("protocol", "secure").Str("variant", variant.String()).Logger())
	server.TLSConfig = tlsConfig.Clone()

	switch variant {
	case Multiplexed:
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("configure http2: %w", err)
		}
	default:
		server.TLSConfig.NextProtos = []string{"http/1.1"}
		server.TLSNextProto = make(map[string]func(*http.Server, *tls.Conn, http.Handler))
	}

	return &https{
		server:  server,
		variant: variant,
	}, nil
}

func hasCertificateSource(cfg *tls.Config) bool {
	return cfg.GetCertificate != nil || cfg.GetConfigForClient != nil || len(cfg.Certificates) > 0
}

func (ht *https) Listen(address string) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, ht.server.TLSConfig), nil
}

func (ht *https) Serve(listener net.Listener) error {
	return serve(ht.server, listener)
}

func (ht *https) Shutdown(ctx context.Context) error {
	return ht.server.Shutdown(ctx)
}
