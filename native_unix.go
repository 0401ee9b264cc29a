//go:build unix && !darwin

package trustroots

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	certFileEnv = "SSL_CERT_FILE"
	certDirEnv  = "SSL_CERT_DIR"
)

// certFiles are the bundle files shipped by common distributions; the first
// readable one is used.
var certFiles = []string{
	"/etc/ssl/certs/ca-certificates.crt",                // Debian/Ubuntu/Gentoo etc.
	"/etc/pki/tls/certs/ca-bundle.crt",                  // Fedora/RHEL 6
	"/etc/ssl/ca-bundle.pem",                            // OpenSUSE
	"/etc/pki/tls/cacert.pem",                           // OpenELEC
	"/etc/pki/ca-trust/extracted/pem/tls-ca-bundle.pem", // CentOS/RHEL 7
	"/etc/ssl/cert.pem",                                 // Alpine, OpenBSD
	"/usr/local/share/certs/ca-root-nss.crt",            // FreeBSD
	"/usr/local/etc/ssl/cert.pem",                       // FreeBSD
}

// certDirs hold one certificate per file; every readable one is used.
var certDirs = []string{
	"/etc/ssl/certs",     // SLES10/SLES11
	"/etc/pki/tls/certs", // Fedora/RHEL
}

// nativeLocations resolves the bundle files and directories to read.
// Configured locations win over SSL_CERT_FILE and SSL_CERT_DIR, which win
// over the well-known defaults.
func nativeLocations(cfg SourceConfig) (files, dirs []string) {
	files, dirs = certFiles, certDirs
	if f := os.Getenv(certFileEnv); f != "" {
		files = []string{f}
	}
	if d := os.Getenv(certDirEnv); d != "" {
		dirs = strings.Split(d, ":")
	}
	if len(cfg.CertFiles) > 0 {
		if f := os.Getenv(certFileEnv); f != "" {
			slog.Debug("configured cert files take precedence over environment", "env", certFileEnv, "ignored", f)
		}
		files = cfg.CertFiles
	}
	if len(cfg.CertDirs) > 0 {
		if d := os.Getenv(certDirEnv); d != "" {
			slog.Debug("configured cert dirs take precedence over environment", "env", certDirEnv, "ignored", d)
		}
		dirs = cfg.CertDirs
	}
	return files, dirs
}

func loadNativeRoots(cfg SourceConfig) ([][]byte, error) {
	return loadNativeRootsFrom(nativeLocations(cfg))
}

func loadNativeRootsFrom(files, dirs []string) ([][]byte, error) {
	set := newDERSet()
	var errs []error
	readAny := false

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("reading %s: %w", file, err))
			}
			continue
		}
		readAny = true
		set.add(DecodeBundle(data)...)
		slog.Debug("read native root bundle", "path", file)
		break
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("reading directory %s: %w", dir, err))
			}
			continue
		}
		readAny = true
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				// Dangling hash links and unreadable files are common.
				slog.Debug("skipping native root file", "path", path, "error", err)
				continue
			}
			if !IsPEM(data) {
				continue
			}
			set.add(DecodeBundle(data)...)
		}
	}

	if !readAny {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, errors.New("no system root certificate locations found")
	}
	return set.ders, nil
}
