package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestDocument inserts a source document and returns it with ID set.
func insertTestDocument(t *testing.T, s *Store, path, context string) *Document {
	t.Helper()
	d := &Document{Path: path, Context: context, Kind: KindSource, Hash: "abc123", LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertDocument(d)
	require.NoError(t, err)
	require.Positive(t, id)
	return d
}

func insertTestPosting(t *testing.T, s *Store, category, key string, docID int64) {
	t.Helper()
	require.NoError(t, s.InsertPosting(&Posting{Category: category, Key: key, DocID: docID}))
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"documents", "index_entries", "type_decls", "packages", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("key_format")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("key_format", "1"))
	require.NoError(t, s.SetMetadata("key_format", "2"))
	v, err = s.GetMetadata("key_format")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

// =============================================================================
// Documents
// =============================================================================

func TestDocuments_IDsStartAtOne(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d := insertTestDocument(t, s, "/src/A.java", "core")
	assert.Equal(t, int64(1), d.ID)
}

func TestDocumentByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestDocument(t, s, "/src/A.java", "core")

	d, err := s.DocumentByPath("/src/A.java")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "core", d.Context)
	assert.Equal(t, KindSource, d.Kind)
	assert.False(t, d.IsBinary())

	missing, err := s.DocumentByPath("/src/B.java")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentsByIDs_OrderedAndSkipsUnknown(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestDocument(t, s, "/src/A.java", "core")
	b := insertTestDocument(t, s, "/src/B.java", "core")

	docs, err := s.DocumentsByIDs([]int64{b.ID, 99, a.ID})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "/src/A.java", docs[0].Path)
	assert.Equal(t, "/src/B.java", docs[1].Path)
}

func TestDeleteDocumentData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d := insertTestDocument(t, s, "/src/A.java", "core")
	insertTestPosting(t, s, "ref", "Widget", d.ID)
	_, err := s.InsertTypeDecl(&TypeDecl{DocID: d.ID, Qualified: "a.A", Simple: "A", Package: "a", Kind: "class"})
	require.NoError(t, err)
	require.NoError(t, s.InsertPackage(&Package{Name: "a", Context: "core", DocID: d.ID}))

	require.NoError(t, s.DeleteDocumentData(d.ID))

	entries, err := s.EntriesByPrefix("ref", "", true)
	require.NoError(t, err)
	assert.Empty(t, entries)
	decls, err := s.TypeDeclsByQualified("a.A")
	require.NoError(t, err)
	assert.Empty(t, decls)
	pkgs, err := s.Packages("")
	require.NoError(t, err)
	assert.Empty(t, pkgs)
	gone, err := s.DocumentByPath("/src/A.java")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// =============================================================================
// Index entries
// =============================================================================

func TestEntriesByPrefix_GroupsPostings(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestDocument(t, s, "/src/A.java", "core")
	b := insertTestDocument(t, s, "/src/B.java", "core")
	insertTestPosting(t, s, "ref", "Widget", b.ID)
	insertTestPosting(t, s, "ref", "Widget", a.ID)
	insertTestPosting(t, s, "ref", "WidgetFactory", a.ID)
	insertTestPosting(t, s, "ref", "Gadget", a.ID)
	insertTestPosting(t, s, "fieldDecl", "Widget", a.ID)

	entries, err := s.EntriesByPrefix("ref", "Widget", true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Widget", entries[0].Key)
	assert.Equal(t, []int64{a.ID, b.ID}, entries[0].Docs)
	assert.Equal(t, "WidgetFactory", entries[1].Key)
	assert.Equal(t, "ref", entries[1].Category)
}

func TestEntriesByPrefix_CaseFolding(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestDocument(t, s, "/src/A.java", "core")
	insertTestPosting(t, s, "ref", "Widget", a.ID)
	insertTestPosting(t, s, "ref", "wid_get", a.ID)

	sensitive, err := s.EntriesByPrefix("ref", "wid", true)
	require.NoError(t, err)
	require.Len(t, sensitive, 1)
	assert.Equal(t, "wid_get", sensitive[0].Key)

	folded, err := s.EntriesByPrefix("ref", "WID", false)
	require.NoError(t, err)
	assert.Len(t, folded, 2)

	// "_" is literal, not a LIKE wildcard.
	literal, err := s.EntriesByPrefix("ref", "wid_", false)
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "wid_get", literal[0].Key)
}

func TestPrefixUpperBound(t *testing.T) {
	t.Parallel()
	upper, ok := prefixUpperBound("run/")
	require.True(t, ok)
	assert.Equal(t, "run0", upper)
	_, ok = prefixUpperBound("\xff\xff")
	assert.False(t, ok)
}

// =============================================================================
// Type declarations & packages
// =============================================================================

func TestTypeDecls_Lookups(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	d := insertTestDocument(t, s, "/src/com/acme/Widget.java", "core")
	_, err := s.InsertTypeDecl(&TypeDecl{DocID: d.ID, Qualified: "com.acme.Widget", Simple: "Widget", Package: "com.acme", Kind: "class"})
	require.NoError(t, err)
	_, err = s.InsertTypeDecl(&TypeDecl{DocID: d.ID, Qualified: "com.acme.Widget.Part", Simple: "Part", Package: "com.acme", Kind: "interface"})
	require.NoError(t, err)

	byQ, err := s.TypeDeclsByQualified("com.acme.Widget")
	require.NoError(t, err)
	require.Len(t, byQ, 1)
	assert.Equal(t, "/src/com/acme/Widget.java", byQ[0].Path)
	assert.Equal(t, "core", byQ[0].Context)
	assert.Equal(t, KindSource, byQ[0].DocKind)

	bySimple, err := s.TypeDeclsBySimple("Part")
	require.NoError(t, err)
	require.Len(t, bySimple, 1)
	assert.Equal(t, "interface", bySimple[0].Kind)
	assert.Equal(t, "com.acme.Widget.Part", bySimple[0].Qualified)

	none, err := s.TypeDeclsBySimple("Gadget")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPackages_GroupedByContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestDocument(t, s, "/core/b/A.java", "core")
	b := insertTestDocument(t, s, "/core/a/B.java", "core")
	c := insertTestDocument(t, s, "/app/C.java", "app")
	require.NoError(t, s.InsertPackage(&Package{Name: "com.acme", Context: "core", DocID: a.ID}))
	require.NoError(t, s.InsertPackage(&Package{Name: "com.acme", Context: "core", DocID: b.ID}))
	require.NoError(t, s.InsertPackage(&Package{Name: "com.app", Context: "app", DocID: c.ID}))

	all, err := s.Packages("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "app", all[0].Context)
	assert.Equal(t, "com.acme", all[1].Name)
	assert.Equal(t, "/core/a/B.java", all[1].Path)

	core, err := s.Packages("core")
	require.NoError(t, err)
	assert.Len(t, core, 1)
}

func TestContentHash_Stable(t *testing.T) {
	t.Parallel()
	h1 := ContentHash([]byte("class A {}"))
	h2 := ContentHash([]byte("class A {}"))
	h3 := ContentHash([]byte("class B {}"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16)
}
