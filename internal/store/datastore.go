package store

// DataStore is the interface for extraction-phase writes. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	InsertPosting(p *Posting) error
	InsertTypeDecl(td *TypeDecl) (int64, error)
	InsertPackage(p *Package) error
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
