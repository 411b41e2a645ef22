package quarry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/quarry/internal/config"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestEngine returns an engine over a fresh project directory, which is
// returned as the second value.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, append([]Option{WithContexts(root)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, root
}

// writeFile writes a project file and returns its absolute path.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func collect(t *testing.T, e *Engine, p Pattern, scope *Scope) []Match {
	t.Helper()
	var out []Match
	err := e.Search(context.Background(), p, scope, SinkFunc(func(m Match) error {
		out = append(out, m)
		return nil
	}))
	require.NoError(t, err)
	return out
}

func handles(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Handle
	}
	return out
}

const (
	baseJava = `package com.acme;

public class Base {
    public void run() {}
}
`
	widgetJava = `package com.acme;

public class Widget extends Base implements Tool {
    public void run() {}
}
`
	toolJava = `package com.acme;

public interface Tool {}
`
	otherJava = `package com.acme;

class Other {
    void run() {}
}
`
	holderJava = `package com.acme;

class Holder {
    Widget a;
    Widget b;
}
`
)

// =============================================================================
// Construction
// =============================================================================

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())
	require.Len(t, e.Contexts(), 1)
	assert.Equal(t, config.DefaultContext, e.Contexts()[0].Name)
	assert.Equal(t, config.DefaultBatchSize, e.batchSize)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_StaleKeyFormat(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	v, err := e.Store().GetMetadata(keyFormatKey)
	require.NoError(t, err)
	assert.Equal(t, pattern.KeyFormat, v)
	require.NoError(t, e.Store().SetMetadata(keyFormatKey, "0"))
	require.NoError(t, e.Close())

	_, err = New(dbPath)
	require.ErrorIs(t, err, ErrStaleIndex)
}

func TestWithConfig(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	c, err := config.Parse(root, []byte(`
batch_size = 7
workers = 3

[[context]]
name = "main"
roots = ["src/main"]
`))
	require.NoError(t, err)

	e, err := New(filepath.Join(t.TempDir(), "test.db"), WithConfig(c))
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, root, e.root)
	assert.Equal(t, 7, e.batchSize)
	assert.Equal(t, 3, e.workers)
	require.Len(t, e.Contexts(), 1)
	assert.Equal(t, "main", e.Contexts()[0].Name)
}

func TestCompile(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	p, err := e.Compile(context.Background(), `method("run", {"params": []})`)
	require.NoError(t, err)
	m, ok := p.(*pattern.MethodPattern)
	require.True(t, ok)
	assert.Equal(t, "run", m.Name)
	assert.False(t, m.NeedsResolve())

	_, err = e.Compile(context.Background(), `method(`)
	require.ErrorIs(t, err, ErrNoPattern)
}

func TestCompileFile_ScriptsFS(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"runs.risor": &fstest.MapFile{Data: []byte(`method("run", {"arity": 0})`)},
	}
	e, _ := newTestEngine(t, WithScriptsFS(fsys))

	p, err := e.CompileFile(context.Background(), "runs.risor")
	require.NoError(t, err)
	m, ok := p.(*pattern.MethodPattern)
	require.True(t, ok)
	assert.Equal(t, "run", m.Name)

	_, err = e.CompileFile(context.Background(), "missing.risor")
	require.Error(t, err)
}

// =============================================================================
// Indexing
// =============================================================================

func TestIndexFiles_SkipsNonJava(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "readme.txt", "hello")

	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	n, err := e.Store().DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndexFiles_SkipsUnchanged(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "com/acme/Base.java", baseJava)
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	first, err := e.Store().DocumentByPath(path)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, store.ContentHash([]byte(baseJava)), first.Hash)
	assert.Equal(t, config.DefaultContext, first.Context)

	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	second, err := e.Store().DocumentByPath(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestIndexFiles_ReindexesChanged(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "com/acme/Base.java", baseJava)
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	writeFile(t, root, "com/acme/Base.java", "package com.acme;\n\npublic class Base {\n    public void stop() {}\n}\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	assert.Empty(t, collect(t, e, pattern.NewMethod("run"), nil))
	assert.Equal(t, []string{"com.acme.Base#stop()"}, handles(collect(t, e, pattern.NewMethod("stop"), nil)))
	n, err := e.Store().DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexFiles_CountsErrors(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	good := writeFile(t, root, "com/acme/Base.java", baseJava)
	missing := filepath.Join(root, "com/acme/Gone.java")

	err := e.IndexFiles(context.Background(), []string{good, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing had 1 error(s)")

	// The readable file is still indexed.
	assert.Len(t, collect(t, e, pattern.NewMethod("run"), nil), 1)
}

func TestIndexFiles_Cancelled(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t, WithParallel(false))
	path := writeFile(t, root, "com/acme/Base.java", baseJava)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.IndexFiles(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIndexFiles_ParallelMatchesSerial(t *testing.T) {
	t.Parallel()
	serial, root := newTestEngine(t, WithParallel(false))
	parallel, err := New(filepath.Join(t.TempDir(), "parallel.db"), WithContexts(root), WithWorkers(4))
	require.NoError(t, err)
	defer parallel.Close()

	var paths []string
	for rel, src := range map[string]string{
		"com/acme/Base.java":   baseJava,
		"com/acme/Widget.java": widgetJava,
		"com/acme/Tool.java":   toolJava,
		"com/acme/Other.java":  otherJava,
		"com/acme/Holder.java": holderJava,
	} {
		paths = append(paths, writeFile(t, root, rel, src))
	}
	ctx := context.Background()
	require.NoError(t, serial.IndexFiles(ctx, paths))
	require.NoError(t, parallel.IndexFiles(ctx, paths))

	for _, p := range []Pattern{
		pattern.NewMethod("run"),
		pattern.NewTypeRef("Widget"),
		pattern.NewTypeDecl("*", pattern.WithRule(pattern.MatchRule{Mode: pattern.Glob, CaseSensitive: true})),
	} {
		assert.Equal(t, collect(t, serial, p, nil), collect(t, parallel, p, nil), p.String())
	}
}

func TestIndexDirectory_WalksAndContexts(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/main/com/acme/Base.java", baseJava)
	writeFile(t, root, "src/test/com/acme/Other.java", otherJava)
	writeFile(t, root, "build/com/acme/Gen.java", "package com.acme;\nclass Gen { void run() {} }\n")
	writeFile(t, root, ".hidden/H.java", "class H { void run() {} }\n")

	e, err := New(filepath.Join(t.TempDir(), "test.db"), WithContexts(root,
		Context{Name: "main", Roots: []string{"src/main"}},
		Context{Name: "test", Roots: []string{"src/test"}},
	))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	got := collect(t, e, pattern.NewMethod("run"), nil)
	assert.Equal(t, []string{"com.acme.Base#run()", "com.acme.Other#run()"}, handles(got))

	main, err := e.Store().DocumentsByContext("main")
	require.NoError(t, err)
	require.Len(t, main, 1)
	assert.Equal(t, filepath.Join(root, "src/main/com/acme/Base.java"), main[0].Path)
}

// =============================================================================
// Search scenarios
// =============================================================================

func TestSearch_MethodDeclarationArity(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "com/acme/AB.java", `package com.acme;

class A { void run() {} }
class B { void run(int x) {} }
`)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	p, err := e.Compile(context.Background(), `method("run", {"params": [], "limit": "decl"})`)
	require.NoError(t, err)
	got := collect(t, e, p, nil)
	require.Len(t, got, 1)
	assert.Equal(t, Match{
		Path:     path,
		Start:    len("package com.acme;\n\nclass A { void "),
		End:      len("package com.acme;\n\nclass A { void run"),
		Line:     3,
		Column:   16,
		Handle:   "com.acme.A#run()",
		Accuracy: Accurate,
	}, got[0])
}

func TestSearch_UnqualifiedTypeRefsAreAccurate(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Widget.java", "package com.acme;\n\nclass Widget {}\n"),
		writeFile(t, root, "com/acme/Holder.java", holderJava),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	got := collect(t, e, pattern.NewTypeRef("Widget"), nil)
	require.Len(t, got, 2)
	for i, m := range got {
		assert.Equal(t, Accurate, m.Accuracy)
		assert.Equal(t, 4+i, m.Line)
		assert.Equal(t, 5, m.Column)
	}
	assert.Equal(t, []string{"com.acme.Holder#a", "com.acme.Holder#b"}, handles(got))
}

func TestSearch_ResolutionAbortReportsInaccurate(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "p/A.java", "package p;\nclass A extends missing.Dep { void m() { go(); } }\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	p := pattern.NewMethod("go", pattern.WithDeclaringType(pattern.ParseTypeName("p.A")))
	got := collect(t, e, p, nil)
	require.Len(t, got, 1)
	assert.Equal(t, Inaccurate, got[0].Accuracy)
	assert.Equal(t, "p.A#m()", got[0].Handle)
}

func TestSearch_FieldDeclarationsSkipMethodBodies(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Local.java", "package com.acme;\nclass Local { void m() { int total = 1; total++; } }\n"),
		writeFile(t, root, "com/acme/Sum.java", "package com.acme;\nclass Sum { int total; void m() { int total = 2; } }\n"),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	p, err := e.Compile(context.Background(), `field("total", {"limit": "decl"})`)
	require.NoError(t, err)
	got := collect(t, e, p, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "com.acme.Sum#total", got[0].Handle)
	assert.Equal(t, Accurate, got[0].Accuracy)
}

func TestSearch_Idempotent(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Base.java", baseJava),
		writeFile(t, root, "com/acme/Widget.java", widgetJava),
		writeFile(t, root, "com/acme/Holder.java", holderJava),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	p := pattern.Or(pattern.NewMethod("run"), pattern.NewTypeRef("Widget"))
	first := collect(t, e, p, nil)
	require.NotEmpty(t, first)
	assert.Equal(t, first, collect(t, e, p, nil))
}

func TestSearch_BatchSizeDoesNotChangeResults(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	small, err := New(filepath.Join(t.TempDir(), "small.db"), WithContexts(root), WithBatchSize(1))
	require.NoError(t, err)
	defer small.Close()

	var paths []string
	for rel, src := range map[string]string{
		"com/acme/Base.java":   baseJava,
		"com/acme/Widget.java": widgetJava,
		"com/acme/Tool.java":   toolJava,
		"com/acme/Other.java":  otherJava,
	} {
		paths = append(paths, writeFile(t, root, rel, src))
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))
	require.NoError(t, small.IndexFiles(context.Background(), paths))

	p := pattern.NewSuperTypeRef("com.acme.Base")
	assert.Equal(t, collect(t, e, p, nil), collect(t, small, p, nil))
}

func TestSearch_OrdersByContextThenPath(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	e, err := New(filepath.Join(t.TempDir(), "test.db"), WithContexts(root,
		Context{Name: "test", Roots: []string{"src/test"}},
		Context{Name: "main", Roots: []string{"src/main"}},
	))
	require.NoError(t, err)
	defer e.Close()

	paths := []string{
		writeFile(t, root, "src/test/a/A.java", "package a;\nclass A { void run() {} }\n"),
		writeFile(t, root, "src/main/z/Z.java", "package z;\nclass Z { void run() {} }\n"),
		writeFile(t, root, "src/main/b/B.java", "package b;\nclass B { void run() {} }\n"),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	got := collect(t, e, pattern.NewMethod("run"), nil)
	assert.Equal(t, []string{"b.B#run()", "z.Z#run()", "a.A#run()"}, handles(got))

	got = collect(t, e, pattern.NewMethod("run"), NewScope(InContexts("test")))
	assert.Equal(t, []string{"a.A#run()"}, handles(got))

	got = collect(t, e, pattern.NewMethod("run"), NewScope(ExcludePaths("src/main/z/**")))
	assert.Equal(t, []string{"b.B#run()", "a.A#run()"}, handles(got))

	got = collect(t, e, pattern.NewMethod("run"), NewScope(IncludePaths("**/Z.java")))
	assert.Equal(t, []string{"z.Z#run()"}, handles(got))
}

func TestSearch_InvalidGlob(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	err := e.Search(context.Background(), pattern.NewMethod("run"), NewScope(IncludePaths("[")), SinkFunc(func(Match) error { return nil }))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad glob")
}

func TestSearch_HierarchyFocus(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Base.java", baseJava),
		writeFile(t, root, "com/acme/Widget.java", widgetJava),
		writeFile(t, root, "com/acme/Tool.java", toolJava),
		writeFile(t, root, "com/acme/Other.java", otherJava),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	p := pattern.NewMethod("run", pattern.WithLimit(pattern.Declarations))
	all := collect(t, e, p, nil)
	assert.Equal(t, []string{"com.acme.Base#run()", "com.acme.Other#run()", "com.acme.Widget#run()"}, handles(all))

	focused := collect(t, e, p, NewScope(WithHierarchyFocus("com.acme.Base")))
	assert.Equal(t, []string{"com.acme.Base#run()", "com.acme.Widget#run()"}, handles(focused))

	none := collect(t, e, p, NewScope(WithHierarchyFocus("com.acme.Missing")))
	assert.Empty(t, none)
}

func TestSearch_SkipsUnreadableDocuments(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	gone := writeFile(t, root, "com/acme/Base.java", baseJava)
	kept := writeFile(t, root, "com/acme/Other.java", otherJava)
	require.NoError(t, e.IndexFiles(context.Background(), []string{gone, kept}))
	require.NoError(t, os.Remove(gone))

	got := collect(t, e, pattern.NewMethod("run"), nil)
	assert.Equal(t, []string{"com.acme.Other#run()"}, handles(got))
}

func TestSearch_Cancellation(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "com/acme/Holder.java", holderJava)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := e.Search(ctx, pattern.NewTypeRef("Widget"), nil, SinkFunc(func(Match) error {
			t.Fatal("no match expected after cancellation")
			return nil
		}))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("from sink", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var got []Match
		err := e.Search(ctx, pattern.NewTypeRef("Widget"), nil, SinkFunc(func(m Match) error {
			got = append(got, m)
			cancel()
			return nil
		}))
		require.ErrorIs(t, err, context.Canceled)
		assert.Len(t, got, 1)
	})
}

func TestSearch_SinkErrorStops(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	path := writeFile(t, root, "com/acme/Holder.java", holderJava)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	stop := errors.New("enough")
	calls := 0
	err := e.Search(context.Background(), pattern.NewTypeRef("Widget"), nil, SinkFunc(func(Match) error {
		calls++
		return stop
	}))
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

// =============================================================================
// Packages
// =============================================================================

func TestSearchPackages(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Widget.java", "package com.acme;\nclass Widget {}\n"),
		writeFile(t, root, "com/acme/Holder.java", holderJava),
		writeFile(t, root, "com/acme/app/App.java", "package com.acme.app;\nclass App {}\n"),
		writeFile(t, root, "org/x/X.java", "package org.x;\nclass X {}\n"),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	var got []Match
	err := e.SearchPackages(context.Background(), pattern.NewPackageDecl("com.acme.**"), nil, SinkFunc(func(m Match) error {
		got = append(got, m)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []Match{
		{Path: paths[1], Handle: "com.acme", Accuracy: Accurate},
		{Path: paths[2], Handle: "com.acme.app", Accuracy: Accurate},
	}, got)

	// Package operands of an Or are answered before the rest.
	mixed := collect(t, e, pattern.Or(pattern.NewTypeRef("Widget"), pattern.NewPackageDecl("org.x")), nil)
	require.Len(t, mixed, 3)
	assert.Equal(t, []string{"org.x", "com.acme.Holder#a", "com.acme.Holder#b"}, handles(mixed))
}

// =============================================================================
// Libraries
// =============================================================================

const clientManifest = `library: client
types:
  - name: com.lib.Client
    super: com.acme.Base
    methods:
      - name: send
        returns: void
        params: [String]
      - name: send
        returns: void
        params: [String, int]
`

func TestIndexLibrary(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	manifest := writeFile(t, root, "libs/client.yaml", clientManifest)
	ctx := context.Background()

	require.NoError(t, e.IndexLibrary(ctx, manifest, config.DefaultContext))
	require.NoError(t, e.IndexLibrary(ctx, manifest, config.DefaultContext))
	docs, err := e.Store().DocumentsByContext(manifest)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].IsBinary())
	assert.Equal(t, []string{manifest}, e.libraries(config.DefaultContext))

	got := collect(t, e, pattern.NewMethod("send", pattern.WithLimit(pattern.Declarations)), nil)
	assert.Equal(t, []string{"com.lib.Client#send(String)", "com.lib.Client#send(String,int)"}, handles(got))
	for _, m := range got {
		assert.Equal(t, docs[0].Path, m.Path)
		assert.Equal(t, Accurate, m.Accuracy)
	}

	// Scoped to a context whose classpath lacks the manifest.
	got = collect(t, e, pattern.NewMethod("send"), NewScope(InContexts("other")))
	assert.Empty(t, got)
}

func TestIndexLibrary_BadManifest(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	manifest := writeFile(t, root, "libs/bad.yaml", "types: [")

	err := e.IndexLibrary(context.Background(), manifest, config.DefaultContext)
	require.Error(t, err)
	assert.Empty(t, e.libraries(config.DefaultContext))
}

// =============================================================================
// Hierarchy
// =============================================================================

func TestTypeHierarchy(t *testing.T) {
	t.Parallel()
	e, root := newTestEngine(t)
	paths := []string{
		writeFile(t, root, "com/acme/Base.java", baseJava),
		writeFile(t, root, "com/acme/Widget.java", widgetJava),
		writeFile(t, root, "com/acme/Tool.java", toolJava),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))
	ctx := context.Background()

	h, err := e.TypeHierarchy(ctx, "com.acme.Widget", nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "com.acme.Widget", h.Type)
	assert.Contains(t, h.Supertypes, "com.acme.Base")
	assert.Contains(t, h.Supertypes, "com.acme.Tool")
	assert.Empty(t, h.Missing)

	h, err = e.TypeHierarchy(ctx, "com.acme.Base", nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, []string{"com.acme.Widget"}, handles(h.Subclasses))
	assert.Empty(t, h.Implementors)

	h, err = e.TypeHierarchy(ctx, "com.acme.Tool", nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Empty(t, h.Subclasses)
	assert.Equal(t, []string{"com.acme.Widget"}, handles(h.Implementors))

	h, err = e.TypeHierarchy(ctx, "com.acme.Nope", nil)
	require.NoError(t, err)
	assert.Nil(t, h)

	// Simple names resolve through the declaration table.
	h, err = e.TypeHierarchy(ctx, "Tool", nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "com.acme.Tool", h.Type)

	require.NoError(t, e.IndexFiles(ctx, []string{
		writeFile(t, root, "org/x/Tool.java", "package org.x;\n\npublic interface Tool {}\n"),
	}))
	_, err = e.TypeHierarchy(ctx, "Tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `ambiguous type "Tool": com.acme.Tool, org.x.Tool`)
}

// =============================================================================
// Helpers
// =============================================================================

func TestBatches(t *testing.T) {
	t.Parallel()
	doc := func(ctx, kind string) *store.Document {
		return &store.Document{Context: ctx, Kind: kind}
	}
	docs := []*store.Document{
		doc("a", store.KindSource), doc("a", store.KindSource), doc("a", store.KindSource),
		doc("b", store.KindSource),
		doc("lib.yaml", store.KindBinary),
	}

	var sizes []int
	for _, b := range batches(docs, 2) {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{2, 1, 1, 1}, sizes)
	assert.Empty(t, batches(nil, 2))
}

func TestSplitPackageDecls(t *testing.T) {
	t.Parallel()
	ref := pattern.NewTypeRef("Widget")
	pkg := pattern.NewPackageDecl("com.acme")

	decls, rest := splitPackageDecls(pattern.Or(ref, pkg))
	assert.Equal(t, []*pattern.PackageDeclPattern{pkg}, decls)
	assert.Same(t, ref, rest)

	decls, rest = splitPackageDecls(pkg)
	assert.Len(t, decls, 1)
	assert.Nil(t, rest)

	decls, rest = splitPackageDecls(ref)
	assert.Empty(t, decls)
	assert.Same(t, ref, rest)
}

func TestLineIndex(t *testing.T) {
	t.Parallel()
	li := newLineIndex([]byte("ab\ncd\n\nx"))
	tests := []struct {
		off, line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{6, 3, 1},
		{7, 4, 1},
	}
	for _, tt := range tests {
		line, col := li.position(tt.off)
		assert.Equal(t, tt.line, line, "offset %d", tt.off)
		assert.Equal(t, tt.col, col, "offset %d", tt.off)
	}
}
