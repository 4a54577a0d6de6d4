package sni

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrNoCertificate     = errors.New("resolver returned no certificate")
	ErrMissingServerName = errors.New("client sent no server name")
)

type Resolver interface {
	Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error)
}

type ResolverFunc func(hello *tls.ClientHelloInfo) (*tls.Certificate, error)

func (f ResolverFunc) Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return f(hello)
}

// Respond receives the outcome of one handshake's certificate lookup.
type Respond func(cert *tls.Certificate, err error)

type Dispatcher struct {
	resolver    Resolver
	defaultHost string
	logger      zerolog.Logger
}

func New(resolver Resolver, defaultHost string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver:    resolver,
		defaultHost: Normalize(defaultHost),
		logger:      logger.With().Str("component", "sni").Logger(),
	}
}

// Dispatch resolves the certificate for one handshake and calls respond
// exactly once, whatever the resolver does.
func (d *Dispatcher) Dispatch(hello *tls.ClientHelloInfo, respond Respond) {
	var once sync.Once
	reply := func(cert *tls.Certificate, err error) {
		once.Do(func() { respond(cert, err) })
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("server_name", hello.ServerName).Msg("certificate resolver panicked")
			reply(nil, fmt.Errorf("resolver panic: %v", r))
		}
	}()

	name := Normalize(hello.ServerName)
	if name == "" {
		name = d.defaultHost
	}
	if name == "" {
		reply(nil, ErrMissingServerName)
		return
	}

	h := *hello
	h.ServerName = name

	cert, err := d.resolver.Resolve(&h)
	switch {
	case err != nil:
		d.logger.Debug().Err(err).Str("server_name", name).Msg("handshake rejected")
		reply(nil, fmt.Errorf("resolve %s: %w", name, err))
	case cert == nil:
		reply(nil, fmt.Errorf("resolve %s: %w", name, ErrNoCertificate))
	default:
		reply(cert, nil)
	}
}

func (d *Dispatcher) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	var (
		cert *tls.Certificate
		err  error
	)
	d.Dispatch(hello, func(c *tls.Certificate, e error) {
		cert, err = c, e
	})
	return cert, err
}

func Normalize(hostname string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
}
