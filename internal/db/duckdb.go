package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// DB is the ledger of fetched crates. It records which rustdoc archive in the
// CAS belongs to which crate version; indexes themselves are never stored.
type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_crate_id START 1;`,

		`CREATE TABLE IF NOT EXISTS crates (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			requested TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT '',
			key_count INTEGER NOT NULL DEFAULT 0,
			item_count INTEGER NOT NULL DEFAULT 0,
			fetched_at TIMESTAMP,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(name, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crates_name ON crates (name)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Crate operations ---

type Crate struct {
	ID          int
	Name        string
	Version     string
	Requested   string
	ContentHash string
	KeyCount    int
	ItemCount   int
	FetchedAt   *time.Time
	LastUsedAt  time.Time
}

const crateColumns = `id, name, version, requested, content_hash, key_count, item_count, fetched_at, last_used_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCrate(row scanner) (*Crate, error) {
	var c Crate
	err := row.Scan(&c.ID, &c.Name, &c.Version, &c.Requested, &c.ContentHash,
		&c.KeyCount, &c.ItemCount, &c.FetchedAt, &c.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCrate records that name@version was fetched as the given archive.
// requested is what the caller asked for, e.g. "latest".
func (db *DB) UpsertCrate(name, version, requested, contentHash string) (*Crate, error) {
	existing, err := db.GetCrate(name, version)
	if err != nil {
		return nil, fmt.Errorf("checking crate: %w", err)
	}

	if existing != nil {
		_, err := db.conn.Exec(
			`UPDATE crates SET requested = ?, content_hash = ?, fetched_at = CURRENT_TIMESTAMP,
			 last_used_at = CURRENT_TIMESTAMP WHERE id = ?`,
			requested, contentHash, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating crate: %w", err)
		}
		return db.GetCrate(name, version)
	}

	_, err = db.conn.Exec(
		`INSERT INTO crates (id, name, version, requested, content_hash, fetched_at)
		 VALUES (nextval('seq_crate_id'), ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		name, version, requested, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting crate: %w", err)
	}
	return db.GetCrate(name, version)
}

// SetCounts stores the size of the index last built from the crate's archive.
func (db *DB) SetCounts(crateID, keys, items int) error {
	_, err := db.conn.Exec(`UPDATE crates SET key_count = ?, item_count = ? WHERE id = ?`, keys, items, crateID)
	return err
}

func (db *DB) TouchCrate(crateID int) error {
	_, err := db.conn.Exec(`UPDATE crates SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, crateID)
	return err
}

func (db *DB) GetCrate(name, version string) (*Crate, error) {
	c, err := scanCrate(db.conn.QueryRow(
		`SELECT `+crateColumns+` FROM crates WHERE name = ? AND version = ?`,
		name, version,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetLatestCrate returns the most recently fetched version of the named crate.
func (db *DB) GetLatestCrate(name string) (*Crate, error) {
	c, err := scanCrate(db.conn.QueryRow(
		`SELECT `+crateColumns+`
		 FROM crates WHERE name = ? AND fetched_at IS NOT NULL AND content_hash != ''
		 ORDER BY fetched_at DESC LIMIT 1`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) ListCrates() ([]Crate, error) {
	rows, err := db.conn.Query(`SELECT ` + crateColumns + ` FROM crates ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crates []Crate
	for rows.Next() {
		c, err := scanCrate(rows)
		if err != nil {
			return nil, err
		}
		crates = append(crates, *c)
	}
	return crates, rows.Err()
}

// CountHash returns how many ledger rows refer to an archive. Identical
// rustdoc output published under two versions shares one archive.
func (db *DB) CountHash(contentHash string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM crates WHERE content_hash = ?`, contentHash).Scan(&n)
	return n, err
}

func (db *DB) DeleteCrate(crateID int) error {
	_, err := db.conn.Exec(`DELETE FROM crates WHERE id = ?`, crateID)
	return err
}

// ClearCrates drops every ledger row.
func (db *DB) ClearCrates() error {
	_, err := db.conn.Exec(`DELETE FROM crates`)
	return err
}
