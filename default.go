package trustroots

import (
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
)

// ErrNoRoots is returned by TLSConfig and Transport when the default store
// is absent.
var ErrNoRoots = errors.New("trustroots: no root certificate store available")

var (
	defaultMu      sync.Mutex
	defaultSources = DefaultSourceConfig()
	defaultCache   = NewCache(CacheInput{Load: loadDefault})
)

func loadDefault() (*Store, error) {
	defaultMu.Lock()
	cfg := defaultSources
	defaultMu.Unlock()
	return Load(cfg)
}

// SetDefaultSources replaces the source configuration of the process-wide
// store. It must be called before the first Roots call and fails with
// ErrAlreadyInitialized afterwards.
func SetDefaultSources(cfg SourceConfig) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache.started.Load() {
		return ErrAlreadyInitialized
	}
	defaultSources = cfg
	return nil
}

// Roots returns the process-wide root store, loading it on first use. It is
// nil when no source is configured or the source failed to load.
func Roots() *Store {
	return defaultCache.Get()
}

// RootsErr returns the error recorded while loading the process-wide store.
func RootsErr() error {
	return defaultCache.Err()
}

// TLSConfig returns a client TLS config trusting the process-wide roots.
func TLSConfig() (*tls.Config, error) {
	store := Roots()
	if store == nil {
		return nil, ErrNoRoots
	}
	return store.TLSConfig(), nil
}

// Transport returns a clone of http.DefaultTransport whose TLS config trusts
// the process-wide roots.
func Transport() (*http.Transport, error) {
	cfg, err := TLSConfig()
	if err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = cfg
	return tr, nil
}
