package internal

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"slices"
	"testing"
	"time"

	"github.com/sensiblebit/trustroots"
)

// newRoot creates a self-signed root valid from notBefore to notAfter.
func newRoot(t *testing.T, cn string, notBefore, notAfter time.Time) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}

// newValidRoot creates a root valid for roughly a year from now.
func newValidRoot(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	return newRoot(t, cn, time.Now().Add(-time.Hour), time.Now().Add(365*24*time.Hour))
}

// storeOf builds a store from certs plus extra raw candidates.
func storeOf(t *testing.T, certs []*x509.Certificate, extra ...[]byte) *trustroots.Store {
	t.Helper()
	ders := make([][]byte, 0, len(certs)+len(extra))
	for _, c := range certs {
		ders = append(ders, c.Raw)
	}
	ders = append(ders, extra...)
	store, err := trustroots.Build(trustroots.Parse(slices.Values(ders)))
	if err != nil {
		t.Fatal(err)
	}
	return store
}
