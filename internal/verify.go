package internal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/sensiblebit/trustroots"
)

// VerifyInput holds the endpoint and options for VerifyEndpoint.
type VerifyInput struct {
	// Target is an https:// URL or a host[:port]. The port defaults to 443.
	Target string
	// Store holds the roots the presented chain is verified against.
	Store *trustroots.Store
	// Timeout bounds the TCP connect. Zero means no timeout beyond ctx.
	Timeout time.Duration
	// ServerName overrides the SNI and hostname checked against the leaf.
	ServerName string
	// ExpiryDuration flags a leaf that expires within this window.
	ExpiryDuration time.Duration
}

// ChainCert holds display information for one certificate in the chain.
type ChainCert struct {
	Subject string `json:"subject"`
	Expiry  string `json:"expiry"`
	SHA256  string `json:"sha256"`
	IsRoot  bool   `json:"is_root,omitempty"`
}

// VerifyResult holds the results of verifying an endpoint's chain.
type VerifyResult struct {
	Target     string      `json:"target"`
	Subject    string      `json:"subject"`
	SANs       []string    `json:"sans,omitempty"`
	NotAfter   string      `json:"not_after"`
	ChainValid bool        `json:"chain_valid"`
	ChainErr   string      `json:"chain_error,omitempty"`
	Chain      []ChainCert `json:"chain,omitempty"`
	Expiry     *bool       `json:"expires_within,omitempty"`
	ExpiryInfo string      `json:"expiry_info,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
}

// splitTarget returns the host and port of a URL or host[:port] target.
func splitTarget(target string) (string, string, error) {
	if target == "" {
		return "", "", errors.New("empty target")
	}
	if strings.Contains(target, "://") {
		parsed, err := url.Parse(target)
		if err != nil {
			return "", "", fmt.Errorf("parsing URL: %w", err)
		}
		host, port := parsed.Hostname(), parsed.Port()
		if host == "" {
			return "", "", fmt.Errorf("no host in %q", target)
		}
		if port == "" {
			port = "443"
		}
		return host, port, nil
	}
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return target, "443", nil
	}
	return host, port, nil
}

// fetchPeerChain dials the endpoint and returns the certificates it presents.
// The handshake does not verify the chain; VerifyEndpoint does that against
// the store so a failure can still be reported in detail.
func fetchPeerChain(ctx context.Context, host, port, serverName string, timeout time.Duration) ([]*x509.Certificate, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true, //nolint:gosec // chain is verified against the store afterwards
			MinVersion:         tls.VersionTLS12,
		},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("tls dial to %s:%s: %w", host, port, err)
	}
	defer func() { _ = conn.Close() }()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates returned by %s:%s", host, port)
	}
	return certs, nil
}

// VerifyEndpoint connects to the target over TLS and verifies the presented
// chain and hostname against the store. Connection failures are returned as
// errors; verification failures are recorded in the result.
func VerifyEndpoint(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	if input.Store == nil {
		return nil, trustroots.ErrNoRoots
	}
	host, port, err := splitTarget(input.Target)
	if err != nil {
		return nil, err
	}
	serverName := input.ServerName
	if serverName == "" {
		serverName = host
	}

	peers, err := fetchPeerChain(ctx, host, port, serverName, input.Timeout)
	if err != nil {
		return nil, err
	}
	leaf := peers[0]

	result := &VerifyResult{
		Target:   net.JoinHostPort(host, port),
		Subject:  leaf.Subject.String(),
		SANs:     leaf.DNSNames,
		NotAfter: leaf.NotAfter.UTC().Format(time.RFC3339),
	}

	chains, err := input.Store.Verify(leaf, peers[1:]...)
	if err == nil {
		err = leaf.VerifyHostname(serverName)
	}
	result.ChainValid = err == nil
	if err != nil {
		result.ChainErr = err.Error()
		result.Errors = append(result.Errors, fmt.Sprintf("chain validation: %s", err))
	}
	if len(chains) > 0 {
		result.Chain = buildChainDisplay(chains[0], input.Store)
	} else {
		result.Chain = buildChainDisplay(peers, input.Store)
	}

	if input.ExpiryDuration > 0 {
		expires := trustroots.ExpiresWithin(leaf, input.ExpiryDuration, time.Now())
		result.Expiry = &expires
		if expires {
			result.ExpiryInfo = fmt.Sprintf("certificate expires within %s (not after: %s)", input.ExpiryDuration, result.NotAfter)
			result.Errors = append(result.Errors, result.ExpiryInfo)
		} else {
			result.ExpiryInfo = fmt.Sprintf("certificate does not expire within %s", input.ExpiryDuration)
		}
	}

	return result, nil
}

// buildChainDisplay creates the display chain, marking certificates that are
// roots in the store.
func buildChainDisplay(certs []*x509.Certificate, store *trustroots.Store) []ChainCert {
	chain := make([]ChainCert, 0, len(certs))
	for _, c := range certs {
		chain = append(chain, ChainCert{
			Subject: c.Subject.String(),
			Expiry:  c.NotAfter.UTC().Format("2006-01-02"),
			SHA256:  trustroots.ColonFingerprint(c),
			IsRoot:  store.Contains(c),
		})
	}
	return chain
}

// daysUntil returns the number of days from now until t, rounded down.
func daysUntil(t time.Time) int {
	return int(math.Floor(time.Until(t).Hours() / 24))
}

// FormatVerifyResult formats a verify result as human-readable text.
func FormatVerifyResult(r *VerifyResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "     Target: %s\n", r.Target)
	fmt.Fprintf(&sb, "Certificate: %s\n", r.Subject)

	if len(r.SANs) > 0 {
		fmt.Fprintf(&sb, "       SANs: %s\n", strings.Join(r.SANs, ", "))
	}

	notAfter, err := time.Parse(time.RFC3339, r.NotAfter)
	if err == nil {
		fmt.Fprintf(&sb, "  Not After: %s (%d days)\n", r.NotAfter, daysUntil(notAfter))
	} else {
		fmt.Fprintf(&sb, "  Not After: %s\n", r.NotAfter)
	}

	if r.ChainValid {
		sb.WriteString("      Chain: VALID\n")
	} else {
		fmt.Fprintf(&sb, "      Chain: INVALID (%s)\n", r.ChainErr)
	}

	if len(r.Chain) > 0 {
		sb.WriteString("\nChain:\n")
		for i, c := range r.Chain {
			tag := ""
			if c.IsRoot {
				tag = "  [root]"
			}
			fmt.Fprintf(&sb, "  %d: %s  (expires %s)%s\n", i, c.Subject, c.Expiry, tag)
			fmt.Fprintf(&sb, "     SHA-256: %s\n", c.SHA256)
		}
	}

	if r.Expiry != nil {
		fmt.Fprintf(&sb, "\n  Expiry: %s\n", r.ExpiryInfo)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "\nVerification FAILED (%d error(s))\n", len(r.Errors))
	} else {
		sb.WriteString("\nVerification OK\n")
	}

	return sb.String()
}
