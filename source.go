// Package trustroots provides a process-wide trusted root CA store for TLS
// clients: source selection (embedded Mozilla bundle or the host trust
// store), tolerant parsing of DER certificates into a store, and a lazily
// computed, exactly-once cache of the result.
package trustroots

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

var (
	// ErrSourceUnavailable is returned when the native trust store could not
	// be enumerated at all.
	ErrSourceUnavailable = errors.New("trustroots: certificate source unavailable")

	// ErrUnknownSource is returned when a source or precedence name is not recognized.
	ErrUnknownSource = errors.New("trustroots: unknown certificate source")
)

// SourceKind identifies where root certificates are read from.
type SourceKind int

const (
	// SourceNone means no source is configured; the store is absent.
	SourceNone SourceKind = iota
	// SourceEmbedded is the compiled-in Mozilla root bundle.
	SourceEmbedded
	// SourceNative is the host operating system's trust store.
	SourceNative
)

// String returns the config name of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceEmbedded:
		return "embedded"
	case SourceNative:
		return "native"
	default:
		return "none"
	}
}

// ParseSourceKind converts a config name ("embedded", "native", "none") to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "embedded", "mozilla":
		return SourceEmbedded, nil
	case "native", "system":
		return SourceNative, nil
	case "none", "":
		return SourceNone, nil
	default:
		return SourceNone, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Precedence decides which source wins when both are enabled.
type Precedence int

const (
	// PreferEmbedded uses the embedded bundle when both sources are enabled.
	PreferEmbedded Precedence = iota
	// PreferNative uses the native store when both sources are enabled.
	PreferNative
)

// String returns the config name of the precedence.
func (p Precedence) String() string {
	if p == PreferNative {
		return "native"
	}
	return "embedded"
}

// ParsePrecedence converts "embedded" or "native" to a Precedence. The empty
// string selects PreferEmbedded.
func ParsePrecedence(s string) (Precedence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "embedded", "":
		return PreferEmbedded, nil
	case "native":
		return PreferNative, nil
	default:
		return PreferEmbedded, fmt.Errorf("%w: precedence %q", ErrUnknownSource, s)
	}
}

// SourceConfig enables certificate sources. It is resolved once, when the
// store is first loaded.
type SourceConfig struct {
	// Embedded enables the compiled-in Mozilla bundle.
	Embedded bool
	// Native enables the host operating system's trust store.
	Native bool
	// Prefer picks the winner when both sources are enabled.
	Prefer Precedence
	// CertFiles replaces the well-known bundle file locations of the native
	// Unix source. The first readable file is used.
	CertFiles []string
	// CertDirs replaces the well-known certificate directories of the native
	// Unix source. Every readable directory is used.
	CertDirs []string
}

// DefaultSourceConfig enables the embedded bundle only.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{Embedded: true}
}

// Select resolves the configuration to exactly one source kind. It performs
// no I/O.
func (c SourceConfig) Select() SourceKind {
	switch {
	case c.Embedded && c.Native:
		if c.Prefer == PreferNative {
			return SourceNative
		}
		return SourceEmbedded
	case c.Embedded:
		return SourceEmbedded
	case c.Native:
		return SourceNative
	default:
		return SourceNone
	}
}

// Selector opens the source chosen by Config. The function fields replace
// the package defaults when non-nil.
type Selector struct {
	Config SourceConfig

	// EmbeddedRoots yields the embedded bundle. Defaults to EmbeddedRoots.
	EmbeddedRoots func() iter.Seq[[]byte]
	// NativeRoots queries the host trust store. Defaults to NativeRoots.
	NativeRoots func(SourceConfig) ([][]byte, error)
}

// Open resolves the source kind and returns its DER certificates as a lazy
// sequence. The native store is queried only when it is the selected kind.
// A failed native query returns an error wrapping ErrSourceUnavailable and a
// nil sequence. SourceNone returns a nil sequence and a nil error.
func (s Selector) Open() (SourceKind, iter.Seq[[]byte], error) {
	kind := s.Config.Select()
	switch kind {
	case SourceEmbedded:
		embedded := s.EmbeddedRoots
		if embedded == nil {
			embedded = EmbeddedRoots
		}
		return kind, embedded(), nil
	case SourceNative:
		native := s.NativeRoots
		if native == nil {
			native = NativeRoots
		}
		ders, err := native(s.Config)
		if err != nil {
			if !errors.Is(err, ErrSourceUnavailable) {
				err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
			}
			return kind, nil, err
		}
		return kind, slices.Values(ders), nil
	default:
		return SourceNone, nil, nil
	}
}
