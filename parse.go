package trustroots

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrParseCertificate wraps every per-certificate decoding failure.
var ErrParseCertificate = errors.New("trustroots: failed to parse certificate")

// ParseDER decodes a single DER-encoded X.509 certificate. Parsing is atomic:
// either a complete certificate or an error wrapping ErrParseCertificate.
func ParseDER(der []byte) (*x509.Certificate, error) {
	if len(der) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParseCertificate)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
	}
	return cert, nil
}

// Parse lazily decodes each DER string in seq. Every input yields exactly one
// pair: a certificate and nil, or nil and the parse error.
func Parse(seq iter.Seq[[]byte]) iter.Seq2[*x509.Certificate, error] {
	return func(yield func(*x509.Certificate, error) bool) {
		if seq == nil {
			return
		}
		for der := range seq {
			if !yield(ParseDER(der)) {
				return
			}
		}
	}
}

var (
	pemCertBegin = []byte("-----BEGIN CERTIFICATE-----")
	pemCertEnd   = []byte("-----END CERTIFICATE-----")
)

// pemBlocks yields one candidate per CERTIFICATE section in data: the
// decoded DER when the section is well formed, otherwise the raw section
// text, which then fails to parse and is counted as invalid. Other block
// types are skipped.
func pemBlocks(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		rest := data
		for {
			start := bytes.Index(rest, pemCertBegin)
			if start < 0 {
				return
			}
			rest = rest[start:]
			body := rest[len(pemCertBegin):]

			// A section ends after its END line, or where the next BEGIN
			// starts when the END line is missing.
			cut := len(rest)
			end := bytes.Index(body, pemCertEnd)
			next := bytes.Index(body, pemCertBegin)
			switch {
			case next >= 0 && (end < 0 || next < end):
				cut = len(pemCertBegin) + next
			case end >= 0:
				cut = len(pemCertBegin) + end + len(pemCertEnd)
				if nl := bytes.IndexByte(rest[cut:], '\n'); nl >= 0 {
					cut += nl + 1
				}
			}
			section := rest[:cut]
			rest = rest[cut:]

			der := section
			if block, _ := pem.Decode(section); block != nil && block.Type == "CERTIFICATE" {
				der = block.Bytes
			}
			if !yield(der) {
				return
			}
		}
	}
}

// IsPEM reports whether data looks like PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

// DecodeBundle splits the contents of a certificate file into candidate DER
// strings. PEM CERTIFICATE blocks are returned decoded, a corrupt block as
// its raw text. Otherwise a PKCS#7 (P7B) container is unpacked, or the whole
// input is returned as one DER candidate, so corrupt data is counted rather
// than dropped.
// Empty input yields no candidates.
func DecodeBundle(data []byte) [][]byte {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if IsPEM(data) {
		return slices.Collect(pemBlocks(data))
	}
	if _, err := x509.ParseCertificate(data); err == nil {
		return [][]byte{data}
	}
	if certs, err := DecodePKCS7(data); err == nil {
		ders := make([][]byte, 0, len(certs))
		for _, cert := range certs {
			ders = append(ders, cert.Raw)
		}
		return ders
	}
	return [][]byte{data}
}
