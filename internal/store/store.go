package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the search index: documents,
// index entries (posting lists), type declarations and packages.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  path            TEXT NOT NULL UNIQUE,
  context         TEXT NOT NULL DEFAULT '',
  kind            TEXT NOT NULL,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS index_entries (
  category        TEXT NOT NULL,
  key             TEXT NOT NULL,
  doc_id          INTEGER NOT NULL REFERENCES documents(id),
  PRIMARY KEY (category, key, doc_id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS type_decls (
  id              INTEGER PRIMARY KEY,
  doc_id          INTEGER NOT NULL REFERENCES documents(id),
  qualified       TEXT NOT NULL,
  simple          TEXT NOT NULL,
  package         TEXT NOT NULL DEFAULT '',
  kind            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS packages (
  name            TEXT NOT NULL,
  context         TEXT NOT NULL DEFAULT '',
  doc_id          INTEGER NOT NULL REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_context ON documents(context);
CREATE INDEX IF NOT EXISTS idx_index_entries_doc ON index_entries(doc_id);
CREATE INDEX IF NOT EXISTS idx_type_decls_qualified ON type_decls(qualified);
CREATE INDEX IF NOT EXISTS idx_type_decls_simple ON type_decls(simple);
CREATE INDEX IF NOT EXISTS idx_type_decls_doc ON type_decls(doc_id);
CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name);
CREATE INDEX IF NOT EXISTS idx_packages_doc ON packages(doc_id);
`

// DeleteDocumentData transactionally removes everything extracted from a
// document, then the document row itself.
func (s *Store) DeleteDocumentData(docID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM index_entries WHERE doc_id = ?",
		"DELETE FROM type_decls WHERE doc_id = ?",
		"DELETE FROM packages WHERE doc_id = ?",
		"DELETE FROM documents WHERE id = ?",
	} {
		if _, err := tx.Exec(q, docID); err != nil {
			return fmt.Errorf("delete document data: %w", err)
		}
	}
	return tx.Commit()
}

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return v, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
