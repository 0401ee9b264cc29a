package internal

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sensiblebit/trustroots"
)

// expiringWindow is how close to NotAfter a root counts as expiring.
const expiringWindow = 90 * 24 * time.Hour

// RootInfo holds display details for one root certificate.
type RootInfo struct {
	Subject   string `json:"subject"`
	Serial    string `json:"serial"`
	NotBefore string `json:"not_before"`
	NotAfter  string `json:"not_after"`
	KeyAlgo   string `json:"key_algorithm"`
	KeySize   string `json:"key_size"`
	SHA256    string `json:"sha256_fingerprint"`
	Expired   bool   `json:"expired,omitempty"`
	Expiring  bool   `json:"expiring,omitempty"`
}

// StatusResult summarizes a load of the root store.
type StatusResult struct {
	Source   string `json:"source"`
	Loaded   bool   `json:"loaded"`
	Roots    int    `json:"roots"`
	Valid    int    `json:"valid"`
	Invalid  int    `json:"invalid"`
	Expired  int    `json:"expired"`
	Expiring int    `json:"expiring"`
	Error    string `json:"error,omitempty"`
}

// DescribeRoot returns the display details of cert as of now.
func DescribeRoot(cert *x509.Certificate, now time.Time) RootInfo {
	return RootInfo{
		Subject:   cert.Subject.String(),
		Serial:    cert.SerialNumber.String(),
		NotBefore: cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:  cert.NotAfter.UTC().Format(time.RFC3339),
		KeyAlgo:   cert.PublicKeyAlgorithm.String(),
		KeySize:   publicKeySize(cert.PublicKey),
		SHA256:    trustroots.Fingerprint(cert),
		Expired:   now.After(cert.NotAfter),
		Expiring:  !now.After(cert.NotAfter) && trustroots.ExpiresWithin(cert, expiringWindow, now),
	}
}

// DescribeStore returns display details for every root in the store, in
// ingestion order. A nil store yields nil.
func DescribeStore(store *trustroots.Store, now time.Time) []RootInfo {
	if store == nil {
		return nil
	}
	certs := store.Certificates()
	infos := make([]RootInfo, 0, len(certs))
	for _, cert := range certs {
		infos = append(infos, DescribeRoot(cert, now))
	}
	return infos
}

// Status summarizes the outcome of loading a store from kind. err is the
// load error, if any.
func Status(kind trustroots.SourceKind, store *trustroots.Store, err error, now time.Time) StatusResult {
	r := StatusResult{Source: kind.String()}
	if err != nil {
		r.Error = err.Error()
		var be *trustroots.BuildError
		if errors.As(err, &be) {
			r.Valid, r.Invalid = be.Tally.Valid, be.Tally.Invalid
		}
	}
	if store == nil {
		return r
	}
	r.Loaded = true
	r.Roots = store.Len()
	r.Valid, r.Invalid = store.Tally().Valid, store.Tally().Invalid
	for _, info := range DescribeStore(store, now) {
		if info.Expired {
			r.Expired++
		}
		if info.Expiring {
			r.Expiring++
		}
	}
	return r
}

func publicKeySize(pub any) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("%d", k.N.BitLen())
	case *ecdsa.PublicKey:
		return k.Curve.Params().Name
	case ed25519.PublicKey:
		return "256"
	default:
		return "unknown"
	}
}

// FormatStatus formats a status result as text or JSON.
func FormatStatus(r StatusResult, format string) (string, error) {
	switch format {
	case "text":
		var sb strings.Builder
		fmt.Fprintf(&sb, "  Source: %s\n", r.Source)
		if r.Loaded {
			fmt.Fprintf(&sb, "   Roots: %d%s\n", r.Roots, CertAnnotation(r.Expired, r.Expiring))
		} else {
			sb.WriteString("   Roots: none available\n")
		}
		fmt.Fprintf(&sb, "   Valid: %d\n", r.Valid)
		fmt.Fprintf(&sb, " Invalid: %d\n", r.Invalid)
		if r.Error != "" {
			fmt.Fprintf(&sb, "   Error: %s\n", r.Error)
		}
		return sb.String(), nil
	case "json":
		return MarshalJSON(r)
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

// FormatRoots formats root details as a table, plain text or JSON.
func FormatRoots(infos []RootInfo, format string) (string, error) {
	switch format {
	case "table":
		return formatRootsTable(infos), nil
	case "text":
		var sb strings.Builder
		for i, r := range infos {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "Root:\n")
			fmt.Fprintf(&sb, "  Subject:     %s\n", r.Subject)
			fmt.Fprintf(&sb, "  Serial:      %s\n", r.Serial)
			fmt.Fprintf(&sb, "  Not Before:  %s\n", r.NotBefore)
			fmt.Fprintf(&sb, "  Not After:   %s%s\n", r.NotAfter, expiryTag(r))
			fmt.Fprintf(&sb, "  Key:         %s %s\n", r.KeyAlgo, r.KeySize)
			fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
		}
		return sb.String(), nil
	case "json":
		return MarshalJSON(infos)
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, text or json)", format)
	}
}

func formatRootsTable(infos []RootInfo) string {
	if len(infos) == 0 {
		return "No root certificates\n"
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"#", "Subject", "Not After", "Key", "SHA-256"})

	rows := make([][]string, 0, len(infos))
	for i, r := range infos {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.Subject,
			r.NotAfter[:10] + expiryTag(r),
			r.KeyAlgo + " " + r.KeySize,
			r.SHA256[:16],
		})
	}
	_ = table.Bulk(rows)
	_ = table.Render()
	return buf.String()
}

func expiryTag(r RootInfo) string {
	switch {
	case r.Expired:
		return " [expired]"
	case r.Expiring:
		return " [expiring]"
	default:
		return ""
	}
}

// MarshalJSON renders v as indented JSON with a trailing newline.
func MarshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return string(data) + "\n", nil
}
