package trustroots

import (
	"errors"
	"sync"
	"testing"
)

// The process-wide store can be initialized only once per test binary, so
// every assertion about it lives in this one test.
func TestDefaultStore_Lifecycle(t *testing.T) {
	if err := SetDefaultSources(SourceConfig{}); err != nil {
		t.Fatalf("SetDefaultSources before first use: %v", err)
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Roots() != nil {
				t.Error("expected no store with no sources configured")
			}
		}()
	}
	wg.Wait()

	if RootsErr() != nil {
		t.Errorf("RootsErr() = %v, want nil", RootsErr())
	}
	if _, err := TLSConfig(); !errors.Is(err, ErrNoRoots) {
		t.Errorf("TLSConfig() error = %v, want ErrNoRoots", err)
	}
	if _, err := Transport(); !errors.Is(err, ErrNoRoots) {
		t.Errorf("Transport() error = %v, want ErrNoRoots", err)
	}
	if err := SetDefaultSources(DefaultSourceConfig()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("SetDefaultSources after first use = %v, want ErrAlreadyInitialized", err)
	}
	if Roots() != nil {
		t.Error("store changed after initialization")
	}
}
