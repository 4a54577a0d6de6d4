package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownHost    = errors.New("no certificate for host")
	ErrNoLeaf         = errors.New("certificate has no leaf")
	ErrNoCertificates = errors.New("no certificates given")
)

// StaticResolver serves certificates from memory. Lookups take a read lock
// only, so concurrent handshakes never wait on each other.
type StaticResolver struct {
	mu    sync.RWMutex
	certs map[string]*tls.Certificate
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		certs: make(map[string]*tls.Certificate),
	}
}

func (s *StaticResolver) Set(hostname string, cert *tls.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[normalize(hostname)] = cert
}

// Add registers cert under every name it carries.
func (s *StaticResolver) Add(cert *tls.Certificate) error {
	names, err := certificateNames(cert)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.certs[name] = cert
	}
	return nil
}

// Replace swaps the whole table at once; a failing certificate leaves the
// previous table in place.
func (s *StaticResolver) Replace(certs ...*tls.Certificate) error {
	if len(certs) == 0 {
		return ErrNoCertificates
	}

	next := make(map[string]*tls.Certificate)
	for _, cert := range certs {
		names, err := certificateNames(cert)
		if err != nil {
			return err
		}
		for _, name := range names {
			next[name] = cert
		}
	}

	s.mu.Lock()
	s.certs = next
	s.mu.Unlock()
	return nil
}

func (s *StaticResolver) Resolve(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	name := normalize(hello.ServerName)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if cert, ok := s.certs[name]; ok {
		return cert, nil
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		if cert, ok := s.certs["*"+name[i:]]; ok {
			return cert, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHost, name)
}

func (s *StaticResolver) Hosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]string, 0, len(s.certs))
	for h := range s.certs {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func certificateNames(cert *tls.Certificate) ([]string, error) {
	if cert == nil {
		return nil, ErrNoCertificates
	}

	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return nil, ErrNoLeaf
		}
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("parse leaf: %w", err)
		}
		leaf = parsed
	}

	var names []string
	for _, d := range extractCertDomains(leaf) {
		names = append(names, normalize(d))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: certificate names no host", ErrNoLeaf)
	}
	return names, nil
}

func normalize(hostname string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
}
