package trustroots

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"
	"time"
)

// Fingerprint returns the SHA-256 fingerprint of a certificate as a lowercase hex string.
func Fingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

// ColonFingerprint returns the SHA-256 fingerprint of a certificate in
// uppercase colon-separated hex (AA:BB:CC:...), as OpenSSL prints it.
func ColonFingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		end := min(i+2, len(h))
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, ":")
}

// ExpiresWithin reports whether the certificate expires within d of now.
func ExpiresWithin(cert *x509.Certificate, d time.Duration, now time.Time) bool {
	return now.Add(d).After(cert.NotAfter)
}
