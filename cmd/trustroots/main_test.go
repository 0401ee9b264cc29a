package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensiblebit/trustroots"
)

// fakeLoader records the source configurations it is asked to load and
// returns a fixed result.
type fakeLoader struct {
	mu    sync.Mutex
	store *trustroots.Store
	err   error
	got   []trustroots.SourceConfig
}

func (f *fakeLoader) load(cfg trustroots.SourceConfig) (*trustroots.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, cfg)
	return f.store, f.err
}

func newTestRoot(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func testStore(t *testing.T, certs ...*x509.Certificate) *trustroots.Store {
	t.Helper()
	ders := make([][]byte, 0, len(certs))
	for _, c := range certs {
		ders = append(ders, c.Raw)
	}
	store, err := trustroots.Build(trustroots.Parse(slices.Values(ders)))
	require.NoError(t, err)
	return store
}

// run executes the CLI with args against loader and returns its stdout.
func run(t *testing.T, loader *fakeLoader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&app{loadRoots: loader.load})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveSources(t *testing.T) {
	// WHY: Flags override the config file, which overrides the defaults, and
	// only flags that were actually set take part.
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trustroots.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
sources:
  embedded: false
  native: true
native:
  certDirs: [/srv/certs]
log:
  level: debug
`), 0644))

	tests := []struct {
		name string
		args []string
		want trustroots.SourceConfig
	}{
		{"defaults", nil, trustroots.SourceConfig{Embedded: true}},
		{"native added", []string{"--native"}, trustroots.SourceConfig{Embedded: true, Native: true}},
		{"native only", []string{"--embedded=false", "--native"}, trustroots.SourceConfig{Native: true}},
		{"prefer native", []string{"--native", "--prefer", "native"}, trustroots.SourceConfig{Embedded: true, Native: true, Prefer: trustroots.PreferNative}},
		{"none", []string{"--embedded=false"}, trustroots.SourceConfig{}},
		{"cert overrides", []string{"--native", "--cert-file", "/a.pem,/b.pem", "--cert-dir", "/d"}, trustroots.SourceConfig{
			Embedded: true, Native: true, CertFiles: []string{"/a.pem", "/b.pem"}, CertDirs: []string{"/d"},
		}},
		{"config file", []string{"--config", cfgPath}, trustroots.SourceConfig{Native: true, CertDirs: []string{"/srv/certs"}}},
		{"flag beats config", []string{"--config", cfgPath, "--embedded"}, trustroots.SourceConfig{Embedded: true, Native: true, CertDirs: []string{"/srv/certs"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loader := &fakeLoader{store: testStore(t, newTestRoot(t, "Resolve Root"))}
			_, err := run(t, loader, append([]string{"status"}, tt.args...)...)
			require.NoError(t, err)
			require.Len(t, loader.got, 1)
			assert.Equal(t, tt.want, loader.got[0])
		})
	}
}

func TestResolveSources_Errors(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	_, err := run(t, loader, "status", "--prefer", "bogus")
	require.ErrorIs(t, err, trustroots.ErrUnknownSource)

	_, err = run(t, loader, "status", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Empty(t, loader.got, "loader must not run when resolution fails")
}

func TestStatus(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{store: testStore(t, newTestRoot(t, "Status Root A"), newTestRoot(t, "Status Root B"))}
	out, err := run(t, loader, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: embedded")
	assert.Contains(t, out, "Roots: 2")

	out, err = run(t, loader, "status", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"roots": 2`)
}

func TestStatus_Absent(t *testing.T) {
	// WHY: An absent store exits non-zero but still prints the recorded cause.
	t.Parallel()

	loader := &fakeLoader{err: trustroots.ErrSourceUnavailable}
	out, err := run(t, loader, "status", "--embedded=false", "--native")
	require.ErrorIs(t, err, errStoreAbsent)
	assert.Contains(t, out, "Source: native")
	assert.Contains(t, out, "none available")
	assert.Contains(t, out, "unavailable")
}

func TestList(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{store: testStore(t, newTestRoot(t, "List Root"))}
	out, err := run(t, loader, "list", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "CN=List Root")

	out, err = run(t, loader, "list", "--expired")
	require.NoError(t, err)
	assert.NotContains(t, out, "List Root")

	_, err = run(t, loader, "list", "--format", "xml")
	require.Error(t, err)

	_, err = run(t, &fakeLoader{}, "list")
	require.ErrorIs(t, err, trustroots.ErrNoRoots)
}

func TestExportAndCatalog(t *testing.T) {
	// WHY: A catalog written by export reads back with the same roots.
	t.Parallel()

	loader := &fakeLoader{store: testStore(t, newTestRoot(t, "Catalog Root"))}

	out, err := run(t, loader, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN CERTIFICATE")

	dbPath := filepath.Join(t.TempDir(), "roots.db")
	_, err = run(t, loader, "export", "--format", "sqlite", "--out", dbPath)
	require.NoError(t, err)

	out, err = run(t, loader, "catalog", dbPath, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "CN=Catalog Root")

	_, err = run(t, loader, "export", "--format", "sqlite")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	t.Cleanup(srv.Close)

	trusted := &fakeLoader{store: testStore(t, srv.Certificate())}
	out, err := run(t, trusted, "verify", srv.URL, "--timeout", "5s", "--expiry", "1d")
	require.NoError(t, err)
	assert.Contains(t, out, "Verification OK")

	untrusted := &fakeLoader{store: testStore(t, newTestRoot(t, "Other Root"))}
	out, err = run(t, untrusted, "verify", srv.URL, "--format", "json")
	require.ErrorIs(t, err, errVerificationFailed)
	assert.Contains(t, out, `"chain_valid": false`)

	_, err = run(t, trusted, "verify", srv.URL, "--expiry", "xd")
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"720h", 720 * time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"d", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify_BadFormatRejectedBeforeLoading(t *testing.T) {
	// WHY: A bad --format must fail fast, before the store is loaded or the
	// endpoint is dialed.
	t.Parallel()

	loader := &fakeLoader{store: testStore(t, newTestRoot(t, "Format Root"))}
	_, err := run(t, loader, "verify", "127.0.0.1:1", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
	assert.Empty(t, loader.got, "store must not be loaded for an invalid format")
}

// loadDefaultRoots installs sources into the process-wide store, which can
// happen only once per test binary, so all of its assertions live here.
func TestLoadDefaultRoots(t *testing.T) {
	a := &app{loadRoots: loadDefaultRoots, sources: trustroots.SourceConfig{}}

	store, err := a.roots()
	assert.Nil(t, store)
	require.ErrorIs(t, err, trustroots.ErrNoRoots)
	assert.Contains(t, err.Error(), "source: none")

	_, err = loadDefaultRoots(trustroots.DefaultSourceConfig())
	require.ErrorIs(t, err, trustroots.ErrAlreadyInitialized)
}
