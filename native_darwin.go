//go:build darwin

package trustroots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// keychains are searched for trusted roots, system roots first.
var keychains = []string{
	"/System/Library/Keychains/SystemRootCertificates.keychain",
	"/Library/Keychains/System.keychain",
}

const securityTimeout = 30 * time.Second

func loadNativeRoots(_ SourceConfig) ([][]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), securityTimeout)
	defer cancel()

	set := newDERSet()
	var errs []error
	for _, kc := range keychains {
		out, err := exec.CommandContext(ctx, "/usr/bin/security", "find-certificate", "-a", "-p", kc).Output()
		if err != nil {
			errs = append(errs, fmt.Errorf("exporting %s: %w", kc, err))
			continue
		}
		set.add(DecodeBundle(out)...)
		slog.Debug("read keychain roots", "keychain", kc)
	}

	if len(set.ders) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set.ders, nil
}
