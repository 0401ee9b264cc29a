package trustroots

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// DefaultJKSPassword is the store password Java ships its cacerts file with.
const DefaultJKSPassword = "changeit"

// EncodeJKSTrustStore creates a Java KeyStore holding one trusted certificate
// entry per root. Aliases are the first 16 hex characters of each
// certificate's SHA-256 fingerprint, so they are stable across exports.
func EncodeJKSTrustStore(certs []*x509.Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}

	ks := keystore.New()
	now := time.Now()
	for _, cert := range certs {
		alias := Fingerprint(cert)[:16]
		if err := ks.SetTrustedCertificateEntry(alias, keystore.TrustedCertificateEntry{
			CreationTime: now,
			Certificate: keystore.Certificate{
				Type:    "X.509",
				Content: cert.Raw,
			},
		}); err != nil {
			return nil, fmt.Errorf("setting JKS trusted entry %s: %w", alias, err)
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("storing JKS: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJKSTrustStore returns the certificates of every trusted certificate
// entry in a Java KeyStore. Entries that fail to parse are skipped; an error
// is returned only if the store cannot be loaded or holds no usable entries.
func DecodeJKSTrustStore(data []byte, password string) ([]*x509.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}

	var certs []*x509.Certificate
	for _, alias := range ks.Aliases() {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			continue
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, errors.New("JKS contains no trusted certificate entries")
	}
	return certs, nil
}
