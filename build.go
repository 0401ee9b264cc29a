package trustroots

import (
	"crypto/x509"
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

// ErrAllCertificatesInvalid is returned when a source supplied at least one
// candidate certificate and none of them parsed.
var ErrAllCertificatesInvalid = errors.New("trustroots: all candidate certificates invalid")

// Tally counts the outcome of one ingestion pass. Each candidate increments
// exactly one counter.
type Tally struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// Total returns the number of candidates processed.
func (t Tally) Total() int {
	return t.Valid + t.Invalid
}

// BuildError reports a failed ingestion pass together with its tally.
type BuildError struct {
	Tally Tally
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v (valid=%d, invalid=%d)", e.Err, e.Tally.Valid, e.Tally.Invalid)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Build folds a sequence of parse results into a Store. Parse failures are
// counted and logged at debug level, and do not stop ingestion. If every
// candidate failed (and there was at least one), Build returns a *BuildError
// wrapping ErrAllCertificatesInvalid and no store. An empty sequence
// produces an empty store.
func Build(results iter.Seq2[*x509.Certificate, error]) (*Store, error) {
	return buildFrom(results, SourceNone)
}

func buildFrom(results iter.Seq2[*x509.Certificate, error], source SourceKind) (*Store, error) {
	var tally Tally
	sb := newStoreBuilder()

	if results != nil {
		for cert, err := range results {
			if err == nil && cert == nil {
				err = fmt.Errorf("%w: nil certificate", ErrParseCertificate)
			}
			if err != nil {
				slog.Debug("skipping root certificate", "index", tally.Total(), "source", source, "error", err)
				tally.Invalid++
				continue
			}
			if err := sb.add(cert); err != nil {
				return nil, &BuildError{Tally: tally, Err: err}
			}
			tally.Valid++
		}
	}

	if tally.Valid == 0 && tally.Invalid > 0 {
		return nil, &BuildError{Tally: tally, Err: ErrAllCertificatesInvalid}
	}

	slog.Debug("built root certificate store", "source", source, "valid", tally.Valid, "invalid", tally.Invalid)
	return sb.build(tally, source), nil
}
