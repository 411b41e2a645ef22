package store

import (
	"fmt"
	"strings"
)

// EntriesByPrefix returns every key of category starting with prefix along
// with its posting list, ordered by key. Case-insensitive lookups fold
// ASCII letters; keys themselves are stored in original case.
func (s *Store) EntriesByPrefix(category, prefix string, caseSensitive bool) ([]Entry, error) {
	query := "SELECT key, doc_id FROM index_entries WHERE category = ?"
	args := []any{category}
	switch {
	case prefix == "":
	case caseSensitive:
		query += " AND key >= ?"
		args = append(args, prefix)
		if upper, ok := prefixUpperBound(prefix); ok {
			query += " AND key < ?"
			args = append(args, upper)
		}
	default:
		query += ` AND key LIKE ? ESCAPE '\'`
		args = append(args, likeEscaper.Replace(prefix)+"%")
	}
	query += " ORDER BY key, doc_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("entries by prefix: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var key string
		var docID int64
		if err := rows.Scan(&key, &docID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if n := len(entries); n > 0 && entries[n-1].Key == key {
			entries[n-1].Docs = append(entries[n-1].Docs, docID)
			continue
		}
		entries = append(entries, Entry{Category: category, Key: key, Docs: []int64{docID}})
	}
	return entries, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixUpperBound returns the smallest string greater than every string
// starting with prefix. ok is false when no such bound exists.
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

const typeDeclCols = `t.id, t.doc_id, t.qualified, t.simple, t.package, t.kind, d.path, d.context, d.kind`

func (s *Store) queryTypeDecls(query string, args ...any) ([]*TypeDecl, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var decls []*TypeDecl
	for rows.Next() {
		td := &TypeDecl{}
		if err := rows.Scan(&td.ID, &td.DocID, &td.Qualified, &td.Simple, &td.Package, &td.Kind,
			&td.Path, &td.Context, &td.DocKind); err != nil {
			return nil, fmt.Errorf("scan type decl: %w", err)
		}
		decls = append(decls, td)
	}
	return decls, rows.Err()
}

// TypeDeclsByQualified returns declarations of a fully qualified type name,
// ordered by document path.
func (s *Store) TypeDeclsByQualified(qualified string) ([]*TypeDecl, error) {
	decls, err := s.queryTypeDecls(
		"SELECT "+typeDeclCols+" FROM type_decls t JOIN documents d ON d.id = t.doc_id WHERE t.qualified = ? ORDER BY d.path",
		qualified,
	)
	if err != nil {
		return nil, fmt.Errorf("type decls by qualified: %w", err)
	}
	return decls, nil
}

// TypeDeclsBySimple returns declarations with the given simple name.
func (s *Store) TypeDeclsBySimple(simple string) ([]*TypeDecl, error) {
	decls, err := s.queryTypeDecls(
		"SELECT "+typeDeclCols+" FROM type_decls t JOIN documents d ON d.id = t.doc_id WHERE t.simple = ? ORDER BY t.qualified, d.path",
		simple,
	)
	if err != nil {
		return nil, fmt.Errorf("type decls by simple: %w", err)
	}
	return decls, nil
}

// Packages lists declared packages ordered by context then name. An empty
// context lists every context.
func (s *Store) Packages(context string) ([]*Package, error) {
	query := `SELECT p.name, p.context, MIN(d.path), MIN(p.doc_id)
		FROM packages p JOIN documents d ON d.id = p.doc_id`
	var args []any
	if context != "" {
		query += " WHERE p.context = ?"
		args = append(args, context)
	}
	query += " GROUP BY p.context, p.name ORDER BY p.context, p.name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("packages: %w", err)
	}
	defer rows.Close()
	var pkgs []*Package
	for rows.Next() {
		p := &Package{}
		if err := rows.Scan(&p.Name, &p.Context, &p.Path, &p.DocID); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}
