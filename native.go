package trustroots

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
)

// NativeRoots enumerates the host operating system's trust store and returns
// its certificates as DER strings. The query fails as a whole, with an error
// wrapping ErrSourceUnavailable, only when nothing could be read.
func NativeRoots(cfg SourceConfig) ([][]byte, error) {
	ders, err := loadNativeRoots(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	slog.Debug("loaded native root certificates", "count", len(ders))
	return ders, nil
}

// derSet collects DER strings in insertion order, dropping exact duplicates.
type derSet struct {
	seen map[[sha256.Size]byte]struct{}
	ders [][]byte
}

func newDERSet() *derSet {
	return &derSet{seen: make(map[[sha256.Size]byte]struct{})}
}

func (s *derSet) add(ders ...[]byte) {
	for _, der := range ders {
		sum := sha256.Sum256(der)
		if _, ok := s.seen[sum]; ok {
			continue
		}
		s.seen[sum] = struct{}{}
		s.ders = append(s.ders, der)
	}
}
