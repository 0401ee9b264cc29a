package internal

import (
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mattn/go-isatty"

	"github.com/sensiblebit/trustroots"
)

// ExportFormats lists the formats accepted by EncodeStore and WriteExport.
var ExportFormats = []string{"pem", "p7b", "jks", "p12", "sqlite"}

// ErrEmptyStore is returned when exporting a store with no roots.
var ErrEmptyStore = errors.New("store contains no root certificates")

// ExportInput holds parameters for WriteExport.
type ExportInput struct {
	Store    *trustroots.Store
	Format   string // one of ExportFormats
	Password string // jks and p12 only
	OutPath  string // "" or "-" writes to Stdout
	Stdout   io.Writer
}

// EncodeStore serializes the store's roots in a file format. sqlite is not
// handled here because it needs a file path.
func EncodeStore(store *trustroots.Store, format, password string) ([]byte, error) {
	if store == nil || store.Len() == 0 {
		return nil, ErrEmptyStore
	}
	certs := store.Certificates()
	switch format {
	case "pem":
		var buf bytes.Buffer
		for _, cert := range certs {
			fmt.Fprintf(&buf, "# %s\n", cert.Subject.String())
			if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
				return nil, fmt.Errorf("encoding PEM: %w", err)
			}
		}
		return buf.Bytes(), nil
	case "p7b":
		return trustroots.EncodePKCS7(certs)
	case "jks":
		return trustroots.EncodeJKSTrustStore(certs, password)
	case "p12":
		return trustroots.EncodePKCS12TrustStore(certs, password)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// isBinaryFormat reports whether the format's output is not printable text.
func isBinaryFormat(format string) bool {
	return format != "pem"
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// WriteExport encodes the store and writes it to OutPath, or to Stdout when
// OutPath is empty or "-". Binary formats are refused on a terminal, and
// sqlite always needs a file path.
func WriteExport(in ExportInput) error {
	if !slices.Contains(ExportFormats, in.Format) {
		return fmt.Errorf("unsupported export format %q (use %v)", in.Format, ExportFormats)
	}
	toStdout := in.OutPath == "" || in.OutPath == "-"

	if in.Format == "sqlite" {
		if toStdout {
			return errors.New("sqlite export requires --out")
		}
		if in.Store == nil || in.Store.Len() == 0 {
			return ErrEmptyStore
		}
		return SaveCatalog(in.Store, in.OutPath)
	}

	data, err := EncodeStore(in.Store, in.Format, in.Password)
	if err != nil {
		return err
	}

	if toStdout {
		if isBinaryFormat(in.Format) && isTerminal(in.Stdout) {
			return fmt.Errorf("refusing to write binary %s output to a terminal (use --out)", in.Format)
		}
		_, err := in.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(in.OutPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", in.OutPath, err)
	}
	return nil
}
