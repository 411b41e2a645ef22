package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Document IDs in the batch are already real;
// type declarations receive real IDs in place of their fake ones.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	postStmt, err := tx.Prepare("INSERT OR IGNORE INTO index_entries (category, key, doc_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("commit batch: prepare postings: %w", err)
	}
	defer postStmt.Close()
	for _, p := range batch.Postings {
		if _, err := postStmt.Exec(p.Category, p.Key, p.DocID); err != nil {
			return fmt.Errorf("commit batch: posting %s %q: %w", p.Category, p.Key, err)
		}
	}

	for i := range batch.TypeDecls {
		td := &batch.TypeDecls[i]
		res, err := tx.Exec(
			"INSERT INTO type_decls (doc_id, qualified, simple, package, kind) VALUES (?, ?, ?, ?, ?)",
			td.DocID, td.Qualified, td.Simple, td.Package, td.Kind,
		)
		if err != nil {
			return fmt.Errorf("commit batch: type decl %q: %w", td.Qualified, err)
		}
		realID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		td.ID = realID
	}

	for _, p := range batch.Packages {
		if _, err := tx.Exec(
			"INSERT INTO packages (name, context, doc_id) VALUES (?, ?, ?)",
			p.Name, p.Context, p.DocID,
		); err != nil {
			return fmt.Errorf("commit batch: package %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}
