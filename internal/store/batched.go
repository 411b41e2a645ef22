package store

import "sync"

// BatchedStore buffers extraction inserts in memory so parsing workers never
// touch SQLite. Type declarations get fake (negative) IDs until CommitBatch
// assigns real ones.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Postings  []Posting
	TypeDecls []TypeDecl
	Packages  []Package

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertPosting(p *Posting) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Postings = append(b.Postings, *p)
	return nil
}

func (b *BatchedStore) InsertTypeDecl(td *TypeDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	td.ID = fakeID
	b.TypeDecls = append(b.TypeDecls, *td)
	return fakeID, nil
}

func (b *BatchedStore) InsertPackage(p *Package) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Packages = append(b.Packages, *p)
	return nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Postings) + len(b.TypeDecls) + len(b.Packages)
}
