package binding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/quarry/internal/binary"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/syntax"
)

// =============================================================================
// Fixture
// =============================================================================

type sourceEntry struct {
	tree *syntax.Tree
	id   syntax.NodeID
}

type fakeProvider struct {
	types    map[string]sourceEntry
	manifest *binary.Manifest
	packages map[string]bool
}

func (f *fakeProvider) SourceType(q string) (*syntax.Tree, syntax.NodeID, bool) {
	e, ok := f.types[q]
	return e.tree, e.id, ok
}

func (f *fakeProvider) BinaryType(q string) *binary.Type {
	if f.manifest == nil {
		return nil
	}
	return f.manifest.Lookup(q)
}

func (f *fakeProvider) IsPackage(name string) bool { return f.packages[name] }

func (f *fakeProvider) addPackage(pkg string) {
	segs := strings.Split(pkg, ".")
	for i := 1; i <= len(segs); i++ {
		f.packages[strings.Join(segs[:i], ".")] = true
	}
}

const baseSource = `package com.acme;

public class Base {
    public static final int CONST = 1;
    protected java.util.List<String> items;

    public Base() {}
    public Base(int size) {}

    protected void helper() {}

    public static class Config {
        int size;
    }
}
`

const widgetSource = `package com.acme.app;

import com.acme.Base;
import com.lib.Client;

public class Widget extends Base implements Runnable {
    private java.util.List<String> names;

    public Widget(int size) {
        super(size);
    }

    public void run() {
        Widget w = new Widget(3);
        w.run();
        names.add("x");
        helper();
        System.out.println("done");
        var b = new Base();
        b.helper();
        int c = com.acme.Base.CONST;
        new Client().send("x");
        Base.Config cfg = new Base.Config();
        cfg.size = 2;
    }
}
`

const clientManifest = `library: client
types:
  - name: com.lib.Client
    methods:
      - name: send
        returns: void
        params: [String]
    constructors:
      - params: []
`

func parse(t *testing.T, path, src string) *syntax.Tree {
	t.Helper()
	p := java.NewParser()
	defer p.Close()
	tree, err := p.ParseFull(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Release)
	return tree
}

// newFixture parses the provider's sources and returns the environment.
func newFixture(t *testing.T, sources ...string) *Environment {
	t.Helper()
	f := &fakeProvider{
		types:    map[string]sourceEntry{},
		packages: map[string]bool{},
	}
	for i, src := range sources {
		tree := parse(t, "Src"+string(rune('A'+i))+".java", src)
		f.addPackage(tree.Package)
		tree.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
			if n.Kind == syntax.TypeDecl {
				if q := tree.QualifiedName(id); q != "" {
					f.types[q] = sourceEntry{tree, id}
				}
			}
			return n.Kind == syntax.CompilationUnit || n.Kind == syntax.TypeDecl
		})
	}
	m, err := binary.Parse("libs/client.yaml", []byte(clientManifest))
	require.NoError(t, err)
	f.manifest = m
	f.addPackage("com.lib")
	return NewEnvironment(f)
}

// find returns the nth node of kind with the given name.
func find(t *testing.T, tree *syntax.Tree, kind syntax.Kind, name string, nth int) syntax.NodeID {
	t.Helper()
	found := syntax.NoNode
	tree.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if found == syntax.NoNode && n.Kind == kind && n.Name == name {
			if nth == 0 {
				found = id
			}
			nth--
		}
		return true
	})
	require.NotEqual(t, syntax.NoNode, found, "no %s %q", kind, name)
	return found
}

func bindWidget(t *testing.T) (*Resolver, *syntax.Tree) {
	t.Helper()
	env := newFixture(t, baseSource)
	tree := parse(t, "Widget.java", widgetSource)
	r, err := env.BindUnit(tree)
	require.NoError(t, err)
	return r, tree
}

// =============================================================================
// Types and hierarchy
// =============================================================================

func TestBindUnit_ResolvesHierarchy(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	widget := r.ResolveType(find(t, tree, syntax.TypeDecl, "Widget", 0))
	require.NotNil(t, widget)
	assert.Equal(t, "com.acme.app.Widget", widget.Qualified)
	require.NotNil(t, widget.Super())
	assert.Equal(t, "com.acme.Base", widget.Super().Qualified)
	assert.True(t, widget.IsSubtypeOf("java.lang.Runnable"))
	assert.True(t, widget.IsSubtypeOf("java.lang.Object"))
	assert.False(t, widget.IsSubtypeOf("java.lang.String"))
	assert.Empty(t, widget.Missing())
}

func TestBindUnit_MissingSupertypeAborts(t *testing.T) {
	t.Parallel()
	env := newFixture(t)
	tree := parse(t, "A.java", "package p;\nclass A extends missing.Dep { void m() {} }\n")
	_, err := env.BindUnit(tree)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
}

func TestResolveType_MemberTypes(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	call := find(t, tree, syntax.ConstructorCall, "Config", 0)
	tb := r.ResolveType(call)
	require.NotNil(t, tb)
	assert.Equal(t, "com.acme.Base.Config", tb.Qualified)

	ref := find(t, tree, syntax.TypeRef, "Client", 0)
	client := r.ResolveType(ref)
	require.NotNil(t, client)
	assert.True(t, client.Binary)
}

func TestResolvePackage_ImportQualifier(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	pkg, ok := r.ResolvePackage(find(t, tree, syntax.PackageRef, "com.acme", 0))
	require.True(t, ok)
	assert.Equal(t, "com.acme", pkg)

	pkg, ok = r.ResolvePackage(find(t, tree, syntax.PackageDecl, "com.acme.app", 0))
	require.True(t, ok)
	assert.Equal(t, "com.acme.app", pkg)
}

// =============================================================================
// Methods and constructors
// =============================================================================

func TestResolveMethods_Receivers(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	tests := []struct {
		name      string
		nth       int
		declaring string
	}{
		{"run", 0, "com.acme.app.Widget"},
		{"add", 0, "java.util.Collection"},
		{"helper", 0, "com.acme.Base"},
		{"helper", 1, "com.acme.Base"},
		{"println", 0, "java.io.PrintStream"},
		{"send", 0, "com.lib.Client"},
	}
	for _, tt := range tests {
		ms := r.ResolveMethods(find(t, tree, syntax.MethodCall, tt.name, tt.nth))
		require.NotEmpty(t, ms, tt.name)
		assert.Equal(t, tt.declaring, ms[0].Declaring.Qualified, tt.name)
	}
}

func TestResolveMethods_Constructors(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	superCall := find(t, tree, syntax.ExplicitConstructorCall, "super", 0)
	ms := r.ResolveMethods(superCall)
	require.Len(t, ms, 1)
	assert.Equal(t, "com.acme.Base", ms[0].Declaring.Qualified)
	assert.Equal(t, []string{"int"}, ms[0].Params)

	ms = r.ResolveMethods(find(t, tree, syntax.ConstructorCall, "Widget", 0))
	require.Len(t, ms, 1)
	assert.True(t, ms[0].Constructor)

	decl := find(t, tree, syntax.MethodDecl, "run", 0)
	ms = r.ResolveMethods(decl)
	require.Len(t, ms, 1)
	assert.Equal(t, decl, ms[0].Node)
}

// =============================================================================
// Names and fields
// =============================================================================

func TestResolveName_QualifiedSegments(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	ms := r.ResolveName(find(t, tree, syntax.NameRef, "CONST", 0))
	require.Len(t, ms, 4)
	assert.Equal(t, Package, ms[0].Kind)
	assert.Equal(t, Package, ms[1].Kind)
	assert.Equal(t, "com.acme", ms[1].Package)
	assert.Equal(t, Type, ms[2].Kind)
	assert.Equal(t, Field, ms[3].Kind)
	assert.Equal(t, "com.acme.Base", ms[3].Field.Declaring.Qualified)
}

func TestResolveField_LocalReceiver(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	size := find(t, tree, syntax.NameRef, "size", 1)
	f := r.ResolveField(size)
	require.NotNil(t, f)
	assert.Equal(t, "com.acme.Base.Config", f.Declaring.Qualified)

	names := find(t, tree, syntax.NameRef, "names", 0)
	f = r.ResolveField(names)
	require.NotNil(t, f)
	assert.Equal(t, "com.acme.app.Widget", f.Declaring.Qualified)
	require.NotNil(t, f.ResolvedType())
	assert.Equal(t, "java.util.List", f.ResolvedType().Qualified)
}

func TestTypeOf_VarInference(t *testing.T) {
	t.Parallel()
	r, tree := bindWidget(t)

	b := find(t, tree, syntax.LocalVar, "b", 0)
	tb := r.TypeOf(b)
	require.NotNil(t, tb)
	assert.Equal(t, "com.acme.Base", tb.Qualified)
}

func TestEnvironment_Reset(t *testing.T) {
	t.Parallel()
	r, _ := bindWidget(t)
	env := r.Environment()
	require.Positive(t, env.Size())
	env.Reset()
	assert.Zero(t, env.Size())
}
