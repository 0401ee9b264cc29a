package trustroots

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"
)

// Store is an immutable set of trusted root certificates produced by one
// ingestion pass. It is safe for concurrent use.
type Store struct {
	pool   *x509.CertPool
	certs  []*x509.Certificate
	tally  Tally
	source SourceKind
}

// Len returns the number of certificates added to the store.
func (s *Store) Len() int {
	return len(s.certs)
}

// Certificates returns the store's certificates in ingestion order. The
// slice is a copy; the certificates must not be modified.
func (s *Store) Certificates() []*x509.Certificate {
	return slices.Clone(s.certs)
}

// CertPool returns a copy of the store as an x509.CertPool.
func (s *Store) CertPool() *x509.CertPool {
	return s.pool.Clone()
}

// Contains reports whether cert is one of the store's roots.
func (s *Store) Contains(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	return slices.ContainsFunc(s.certs, cert.Equal)
}

// Tally returns the valid and invalid counts of the ingestion pass that
// built the store.
func (s *Store) Tally() Tally {
	return s.tally
}

// Source returns the kind of source the store was built from.
func (s *Store) Source() SourceKind {
	return s.source
}

// Verify builds chains from leaf to one of the store's roots, using
// intermediates as untrusted chain material. Hostname checks are not done.
func (s *Store) Verify(leaf *x509.Certificate, intermediates ...*x509.Certificate) ([][]*x509.Certificate, error) {
	if leaf == nil {
		return nil, errors.New("verifying chain: nil leaf certificate")
	}
	inter := x509.NewCertPool()
	for _, c := range intermediates {
		inter.AddCert(c)
	}
	chains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         s.pool,
		Intermediates: inter,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("verifying chain: %w", err)
	}
	return chains, nil
}

// TLSConfig returns a client TLS config that trusts exactly the store's roots.
func (s *Store) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    s.CertPool(),
		MinVersion: tls.VersionTLS12,
	}
}

// storeBuilder accumulates certificates for a Store.
type storeBuilder struct {
	pool  *x509.CertPool
	certs []*x509.Certificate
}

func newStoreBuilder() *storeBuilder {
	return &storeBuilder{pool: x509.NewCertPool()}
}

func (b *storeBuilder) add(cert *x509.Certificate) error {
	if cert == nil {
		return errors.New("trustroots: adding nil certificate to store")
	}
	b.pool.AddCert(cert)
	b.certs = append(b.certs, cert)
	return nil
}

func (b *storeBuilder) build(tally Tally, source SourceKind) *Store {
	return &Store{
		pool:   b.pool,
		certs:  b.certs,
		tally:  tally,
		source: source,
	}
}
