package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/trustroots"
)

// CatalogRow maps a row in the roots table of an exported catalog.
type CatalogRow struct {
	SHA256    string    `db:"sha256"`
	Subject   string    `db:"subject"`
	Serial    string    `db:"serial_number"`
	NotBefore time.Time `db:"not_before"`
	NotAfter  time.Time `db:"not_after"`
	KeyAlgo   string    `db:"key_algorithm"`
	Source    string    `db:"source"`
	DER       []byte    `db:"der"`
}

// Catalog is an SQLite catalog of root certificates.
type Catalog struct {
	*sqlx.DB
}

// openMemCatalog creates an in-memory catalog with the roots schema.
func openMemCatalog() (*Catalog, error) {
	// Pin to a single connection: each :memory: connection is a separate
	// database.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{DB: db}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	_, err := c.Exec(`
		CREATE TABLE IF NOT EXISTS roots (
			sha256         text PRIMARY KEY,
			subject        text NOT NULL,
			serial_number  text NOT NULL,
			not_before     timestamp NOT NULL,
			not_after      timestamp NOT NULL,
			key_algorithm  text NOT NULL,
			source         text NOT NULL,
			der            blob NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating roots table: %w", err)
	}
	_, err = c.Exec(`CREATE INDEX IF NOT EXISTS idx_roots_not_after ON roots (not_after);`)
	if err != nil {
		return fmt.Errorf("creating not_after index: %w", err)
	}
	return nil
}

// insertStore writes every root of store into the catalog in one transaction.
func (c *Catalog) insertStore(store *trustroots.Store) error {
	tx, err := c.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, cert := range store.Certificates() {
		row := CatalogRow{
			SHA256:    trustroots.Fingerprint(cert),
			Subject:   cert.Subject.String(),
			Serial:    cert.SerialNumber.String(),
			NotBefore: cert.NotBefore.UTC(),
			NotAfter:  cert.NotAfter.UTC(),
			KeyAlgo:   cert.PublicKeyAlgorithm.String(),
			Source:    store.Source().String(),
			DER:       cert.Raw,
		}
		if _, err := tx.NamedExec(`
			INSERT OR IGNORE INTO roots (sha256, subject, serial_number, not_before, not_after, key_algorithm, source, der)
			VALUES (:sha256, :subject, :serial_number, :not_before, :not_after, :key_algorithm, :source, :der)
		`, row); err != nil {
			return fmt.Errorf("inserting root %s: %w", row.SHA256[:16], err)
		}
	}
	return tx.Commit()
}

// SaveCatalog writes the store to an SQLite file at path. The catalog is
// built in memory and copied out with VACUUM INTO, which fails if path
// already exists.
func SaveCatalog(store *trustroots.Store, path string) error {
	c, err := openMemCatalog()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.insertStore(store); err != nil {
		return err
	}
	if _, err := c.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("saving catalog to %s: %w", path, err)
	}
	slog.Info("catalog saved to disk", "path", path, "roots", store.Len())
	return nil
}

// LoadCatalog reads every row of the catalog at path, ordered by expiry.
func LoadCatalog(path string) ([]CatalogRow, error) {
	c, err := openMemCatalog()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	if _, err := c.Exec("ATTACH DATABASE ? AS diskdb", path); err != nil {
		return nil, fmt.Errorf("attaching database %s: %w", path, err)
	}
	defer func() {
		if _, err := c.Exec("DETACH DATABASE diskdb"); err != nil {
			slog.Warn("detaching database", "path", path, "error", err)
		}
	}()

	var rows []CatalogRow
	if err := c.Select(&rows, "SELECT * FROM diskdb.roots ORDER BY not_after, sha256"); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return rows, nil
}

// CatalogStore rebuilds a trust store from catalog rows. Rows whose DER no
// longer parses count as invalid, exactly as a live source would.
func CatalogStore(rows []CatalogRow) (*trustroots.Store, error) {
	return trustroots.Build(trustroots.Parse(func(yield func([]byte) bool) {
		for _, r := range rows {
			if !yield(r.DER) {
				return
			}
		}
	}))
}
