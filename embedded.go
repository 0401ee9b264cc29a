package trustroots

import (
	"iter"

	"github.com/breml/rootcerts/embedded"
)

// EmbeddedRoots returns the compiled-in Mozilla root bundle as DER
// certificates. PEM blocks are decoded lazily as the sequence is consumed;
// blocks that are not CERTIFICATE blocks are skipped.
func EmbeddedRoots() iter.Seq[[]byte] {
	return pemBlocks([]byte(embedded.MozillaCACertificatesPEM()))
}
