package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// --- Document operations ---

func (s *Store) InsertDocument(d *Document) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO documents (path, context, kind, hash, last_indexed) VALUES (?, ?, ?, ?, ?)",
		d.Path, d.Context, d.Kind, d.Hash, d.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

const documentCols = "id, path, context, kind, hash, last_indexed"

func scanDocument(scanner interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	var hash sql.NullString
	var indexed sql.NullTime
	if err := scanner.Scan(&d.ID, &d.Path, &d.Context, &d.Kind, &hash, &indexed); err != nil {
		return nil, err
	}
	d.Hash = hash.String
	d.LastIndexed = indexed.Time
	return d, nil
}

func (s *Store) queryDocuments(query string, args ...any) ([]*Document, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentByPath returns the document at path, or nil when it is not indexed.
func (s *Store) DocumentByPath(path string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow("SELECT "+documentCols+" FROM documents WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by path: %w", err)
	}
	return d, nil
}

// maxIDsPerQuery keeps IN lists under SQLite's host parameter limit.
const maxIDsPerQuery = 500

// DocumentsByIDs returns the documents with the given IDs ordered by ID.
// Unknown IDs are skipped.
func (s *Store) DocumentsByIDs(ids []int64) ([]*Document, error) {
	var docs []*Document
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		chunk := ids[start:min(start+maxIDsPerQuery, len(ids))]
		got, err := s.queryDocuments(
			"SELECT "+documentCols+" FROM documents WHERE id IN ("+placeholderList(len(chunk))+")",
			int64sToArgs(chunk)...,
		)
		if err != nil {
			return nil, fmt.Errorf("documents by ids: %w", err)
		}
		docs = append(docs, got...)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// DocumentsByContext lists the documents of a context ordered by path.
func (s *Store) DocumentsByContext(context string) ([]*Document, error) {
	docs, err := s.queryDocuments(
		"SELECT "+documentCols+" FROM documents WHERE context = ? ORDER BY path", context,
	)
	if err != nil {
		return nil, fmt.Errorf("documents by context: %w", err)
	}
	return docs, nil
}

// DocumentCount returns the number of indexed documents.
func (s *Store) DocumentCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("document count: %w", err)
	}
	return n, nil
}

// --- Extracted data ---

func (s *Store) InsertPosting(p *Posting) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO index_entries (category, key, doc_id) VALUES (?, ?, ?)",
		p.Category, p.Key, p.DocID,
	)
	if err != nil {
		return fmt.Errorf("insert posting: %w", err)
	}
	return nil
}

func (s *Store) InsertTypeDecl(td *TypeDecl) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO type_decls (doc_id, qualified, simple, package, kind) VALUES (?, ?, ?, ?, ?)",
		td.DocID, td.Qualified, td.Simple, td.Package, td.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert type decl: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	td.ID = id
	return id, nil
}

func (s *Store) InsertPackage(p *Package) error {
	_, err := s.db.Exec(
		"INSERT INTO packages (name, context, doc_id) VALUES (?, ?, ?)",
		p.Name, p.Context, p.DocID,
	)
	if err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}
