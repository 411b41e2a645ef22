package index

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader is an in-memory index: category -> key -> doc IDs.
type fakeReader struct {
	entries map[string]map[string][]int64
	docs    map[int64]*store.Document
	queries []string
}

func newFakeReader() *fakeReader {
	return &fakeReader{entries: map[string]map[string][]int64{}, docs: map[int64]*store.Document{}}
}

func (f *fakeReader) add(cat pattern.Category, key string, ids ...int64) {
	if f.entries[string(cat)] == nil {
		f.entries[string(cat)] = map[string][]int64{}
	}
	f.entries[string(cat)][key] = append(f.entries[string(cat)][key], ids...)
	for _, id := range ids {
		if f.docs[id] == nil {
			f.docs[id] = &store.Document{ID: id, Path: "/doc" + string(rune('0'+id)) + ".java", Kind: store.KindSource}
		}
	}
}

func (f *fakeReader) EntriesByPrefix(category, prefix string, caseSensitive bool) ([]store.Entry, error) {
	f.queries = append(f.queries, category+":"+prefix)
	var out []store.Entry
	for key, ids := range f.entries[category] {
		ok := strings.HasPrefix(key, prefix)
		if !caseSensitive {
			ok = strings.HasPrefix(strings.ToLower(key), strings.ToLower(prefix))
		}
		if ok {
			out = append(out, store.Entry{Category: category, Key: key, Docs: ids})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeReader) DocumentsByIDs(ids []int64) ([]*store.Document, error) {
	var out []*store.Document
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type pathScope map[string]bool

func (s pathScope) Encloses(d *store.Document) bool { return s[d.Path] }

func collect(t *testing.T, r *Retriever, p pattern.Pattern, scope Scope) []int64 {
	t.Helper()
	var ids []int64
	err := r.Retrieve(context.Background(), p, scope, func(c Candidate) error {
		ids = append(ids, c.Doc.ID)
		return nil
	})
	require.NoError(t, err)
	return ids
}

// =============================================================================
// BitVector
// =============================================================================

func TestBitVector_SetHasIDs(t *testing.T) {
	t.Parallel()
	b := NewBitVector(10)
	for _, id := range []int64{130, 1, 64, 63, 0, -5} {
		b.Set(id)
	}
	assert.Equal(t, []int64{1, 63, 64, 130}, b.IDs())
	assert.True(t, b.Has(64))
	assert.False(t, b.Has(0), "id 0 is reserved")
	assert.False(t, b.Has(500))
	assert.Equal(t, 4, b.Len())
}

func TestBitVector_AndReportsEmpty(t *testing.T) {
	t.Parallel()
	a := NewBitVector(0)
	a.Set(1)
	a.Set(200)
	b := NewBitVector(0)
	b.Set(2)
	assert.False(t, a.And(b))
	assert.True(t, a.IsEmpty())

	c := NewBitVector(0)
	c.Set(3)
	c.Set(200)
	d := NewBitVector(0)
	d.Set(200)
	assert.True(t, c.And(d))
	assert.Equal(t, []int64{200}, c.IDs())
}

func TestBitVector_OrGrows(t *testing.T) {
	t.Parallel()
	a := NewBitVector(0)
	a.Set(1)
	b := NewBitVector(0)
	b.Set(300)
	a.Or(b)
	assert.Equal(t, []int64{1, 300}, a.IDs())
}

// =============================================================================
// Retriever
// =============================================================================

func TestRetrieve_PackageSegmentsIntersect(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "com", 1, 2)
	f.add(pattern.CatRef, "acme", 2, 3)
	f.add(pattern.CatRef, "widget", 2)

	r := NewRetriever(f)
	assert.Equal(t, []int64{2}, collect(t, r, pattern.NewPackageRef("com.acme.widget"), nil))
	// Most specific segment first.
	assert.Equal(t, []string{"ref:widget", "ref:acme", "ref:com"}, f.queries)
}

func TestRetrieve_EmptyIntersectionShortCircuits(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "widget", 1)
	f.add(pattern.CatRef, "acme", 2)
	f.add(pattern.CatRef, "com", 1, 2)

	r := NewRetriever(f)
	assert.Empty(t, collect(t, r, pattern.NewPackageRef("com.acme.widget"), nil))
	assert.Equal(t, []string{"ref:widget", "ref:acme"}, f.queries, "com is never queried")
}

func TestRetrieve_FiltersDecodedKeys(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatMethodDecl, pattern.MethodKey("run", 0), 1)
	f.add(pattern.CatMethodDecl, pattern.MethodKey("run", 1), 2)
	f.add(pattern.CatMethodDecl, pattern.MethodKey("runAll", 0), 3)

	r := NewRetriever(f)
	p := pattern.NewMethod("run", pattern.WithArity(0), pattern.WithLimit(pattern.Declarations))
	assert.Equal(t, []int64{1}, collect(t, r, p, nil))
}

func TestRetrieve_PayloadCarriesDecodedKeys(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatConstructorRef, pattern.ConstructorRefKey("Widget", 2), 1)

	r := NewRetriever(f)
	var got []Candidate
	err := r.Retrieve(context.Background(), pattern.NewConstructor("Widget"), nil, func(c Candidate) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Keys, 1)
	assert.Equal(t, "Widget", got[0].Keys[0].Name)
	assert.Equal(t, 2, got[0].Keys[0].Arity)
}

func TestRetrieve_OrUnionsDocuments(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "Widget", 1, 3)
	f.add(pattern.CatRef, "Gadget", 3, 4)

	r := NewRetriever(f)
	p := pattern.Or(pattern.NewTypeRef("Widget"), pattern.NewTypeRef("Gadget"))
	assert.Equal(t, []int64{1, 3, 4}, collect(t, r, p, nil))
}

func TestRetrieve_AndOfPatterns(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "Widget", 1, 3)
	f.add(pattern.CatMethodRef, pattern.MethodKey("run", 0), 3, 4)

	r := NewRetriever(f)
	p := pattern.And(pattern.NewTypeRef("Widget"), pattern.NewMethod("run", pattern.WithLimit(pattern.References)))
	assert.Equal(t, []int64{3}, collect(t, r, p, nil))
}

func TestRetrieve_ScopeFilters(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "Widget", 1, 2)

	r := NewRetriever(f)
	scope := pathScope{f.docs[2].Path: true}
	assert.Equal(t, []int64{2}, collect(t, r, pattern.NewTypeRef("Widget"), scope))
}

func TestRetrieve_CaseInsensitive(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "Widget", 1)

	r := NewRetriever(f)
	p := pattern.NewTypeRef("widget", pattern.WithRule(pattern.MatchRule{Mode: pattern.Exact}))
	assert.Equal(t, []int64{1}, collect(t, r, p, nil))
}

func TestRetrieve_Cancelled(t *testing.T) {
	t.Parallel()
	f := newFakeReader()
	f.add(pattern.CatRef, "Widget", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRetriever(f).Retrieve(ctx, pattern.NewPackageRef("a.b"), nil, func(Candidate) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.queries)
}

func TestRetrieve_PackageDeclIsNotIndexed(t *testing.T) {
	t.Parallel()
	err := NewRetriever(newFakeReader()).Retrieve(context.Background(), pattern.NewPackageDecl("com"), nil,
		func(Candidate) error { return nil })
	assert.ErrorIs(t, err, ErrNotIndexed)
}
