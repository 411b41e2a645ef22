package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_BuffersWithoutTouchingDatabase(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d := insertTestDocument(t, s, "/src/A.java", "core")

	batch := NewBatchedStore()
	require.NoError(t, batch.InsertPosting(&Posting{Category: "ref", Key: "Widget", DocID: d.ID}))
	id, err := batch.InsertTypeDecl(&TypeDecl{DocID: d.ID, Qualified: "A", Simple: "A", Kind: "class"})
	require.NoError(t, err)
	assert.Negative(t, id, "batched IDs should be negative")
	require.NoError(t, batch.InsertPackage(&Package{Name: "", Context: "core", DocID: d.ID}))
	assert.Equal(t, 3, batch.Len())

	entries, err := s.EntriesByPrefix("ref", "Widget", true)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is visible before commit")
}

func TestCommitBatch_WritesAllRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d := insertTestDocument(t, s, "/src/A.java", "core")

	batch := NewBatchedStore()
	require.NoError(t, batch.InsertPosting(&Posting{Category: "ref", Key: "Widget", DocID: d.ID}))
	// Duplicate postings collapse.
	require.NoError(t, batch.InsertPosting(&Posting{Category: "ref", Key: "Widget", DocID: d.ID}))
	_, err := batch.InsertTypeDecl(&TypeDecl{DocID: d.ID, Qualified: "a.A", Simple: "A", Package: "a", Kind: "class"})
	require.NoError(t, err)
	require.NoError(t, batch.InsertPackage(&Package{Name: "a", Context: "core", DocID: d.ID}))

	require.NoError(t, s.CommitBatch(batch))
	assert.Positive(t, batch.TypeDecls[0].ID, "commit assigns real IDs")

	entries, err := s.EntriesByPrefix("ref", "Widget", true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []int64{d.ID}, entries[0].Docs)

	decls, err := s.TypeDeclsByQualified("a.A")
	require.NoError(t, err)
	assert.Len(t, decls, 1)

	pkgs, err := s.Packages("core")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "a", pkgs[0].Name)
}
