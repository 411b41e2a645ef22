package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/quarry/internal/pattern"
)

func compile(t *testing.T, expr string) pattern.Pattern {
	t.Helper()
	p, err := NewRuntime("").Compile(context.Background(), expr)
	require.NoError(t, err)
	return p
}

// --- Leaf patterns ---

func TestCompile_Method(t *testing.T) {
	t.Parallel()
	p := compile(t, `method("run", {"params": []})`)

	m, ok := p.(*pattern.MethodPattern)
	require.True(t, ok, "got %T", p)
	assert.Equal(t, "run", m.Name)
	assert.Equal(t, 0, m.Arity)
	assert.NotNil(t, m.Params)
	assert.Empty(t, m.Params)
	assert.Equal(t, pattern.AllOccurrences, m.Limit)
	assert.Equal(t, pattern.ExactCase, m.Rule())
}

func TestCompile_MethodSignature(t *testing.T) {
	t.Parallel()
	p := compile(t, `method("send", {
    "declaring": "com.lib.Client",
    "returns": "void",
    "params": ["String", "*"],
    "limit": "ref"
})`)

	m := p.(*pattern.MethodPattern)
	assert.Equal(t, "Client", m.Declaring.Simple)
	assert.Equal(t, "com.lib", m.Declaring.Qualification)
	assert.Equal(t, "void", m.Return.Simple)
	require.Len(t, m.Params, 2)
	assert.Equal(t, "String", m.Params[0].Simple)
	assert.True(t, m.Params[1].IsZero())
	assert.Equal(t, 2, m.Arity)
	assert.Equal(t, pattern.References, m.Limit)
}

func TestCompile_RuleOptions(t *testing.T) {
	t.Parallel()
	p := compile(t, `type_decl("wid", {"mode": "prefix", "case": false, "kind": "interface"})`)

	d := p.(*pattern.TypeDeclPattern)
	assert.Equal(t, pattern.MatchRule{Mode: pattern.Prefix}, d.Rule())
	assert.Equal(t, pattern.Interface, d.TypeKind)
}

func TestCompile_Kinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr string
		want pattern.Kind
	}{
		{`type_decl("Widget")`, pattern.KindTypeDecl},
		{`type_ref("Widget", {"fine": "return-type,param-type"})`, pattern.KindTypeRef},
		{`super_ref("Base", {"kind": "class"})`, pattern.KindSuperTypeRef},
		{`field("count", {"type": "int", "limit": "decl"})`, pattern.KindField},
		{`constructor("com.acme.Widget", {"arity": 1})`, pattern.KindConstructor},
		{`package_ref("com.acme")`, pattern.KindPackageRef},
		{`package_decl("com.*", {"mode": "glob"})`, pattern.KindPackageDecl},
		{`all_of(type_ref("A"), method("b"))`, pattern.KindAnd},
		{`any_of(type_ref("A"), method("b"))`, pattern.KindOr},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, compile(t, tt.expr).Kind())
		})
	}
}

func TestCompile_FineGrain(t *testing.T) {
	t.Parallel()
	p := compile(t, `type_ref("Widget", {"fine": "return-type,param-type"})`)
	assert.Equal(t, pattern.ReturnTypeRef|pattern.ParamTypeRef, p.FineGrain())
}

// --- Composites ---

func TestCompile_AnyOf(t *testing.T) {
	t.Parallel()
	p := compile(t, `any_of(method("run", {"params": []}), type_ref("Widget"))`)

	leaves := pattern.Leaves(p)
	require.Len(t, leaves, 2)
	assert.Equal(t, pattern.KindMethod, leaves[0].Kind())
	assert.Equal(t, pattern.KindTypeRef, leaves[1].Kind())
}

func TestCompile_Variables(t *testing.T) {
	t.Parallel()
	p := compile(t, `
widget := type_ref("Widget")
runs := method("run")
any_of(widget, runs, field("next"))
`)
	assert.Len(t, pattern.Leaves(p), 3)
}

func TestCompile_AllOfSingleOperand(t *testing.T) {
	t.Parallel()
	p := compile(t, `all_of(type_ref("A"))`)
	assert.Equal(t, pattern.KindTypeRef, p.Kind())
}

// --- Errors ---

func TestCompile_ErrNoPattern(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr string
	}{
		{"empty", "   "},
		{"not a pattern", "1 + 2"},
		{"syntax error", `method("run"`},
		{"unknown option", `method("run", {"colour": "red"})`},
		{"unknown mode", `method("run", {"mode": "fuzzy"})`},
		{"unknown limit", `field("x", {"limit": "sometimes"})`},
		{"unknown fine grain", `type_ref("X", {"fine": "nowhere"})`},
		{"unknown kind", `type_decl("X", {"kind": "struct"})`},
		{"bad params", `method("run", {"params": "int"})`},
		{"negative arity", `method("run", {"arity": -1})`},
		{"non-pattern operand", `any_of(type_ref("A"), 3)`},
		{"no operands", `any_of()`},
		{"missing package", `package_ref("")`},
		{"name not string", `method(3)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRuntime("").Compile(context.Background(), tt.expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoPattern)
		})
	}
}

// --- Scripts and imports ---

func TestCompileFile_FromDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runs.risor"), []byte(`method("run")`), 0o644))

	p, err := NewRuntime(dir).CompileFile(context.Background(), "runs.risor")
	require.NoError(t, err)
	assert.Equal(t, pattern.KindMethod, p.Kind())
}

func TestCompileFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := NewRuntime(t.TempDir()).CompileFile(context.Background(), "missing.risor")
	assert.Error(t, err)
}

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	// Risor's FSImporter resolves "acme" by trying name + ".risor".
	mapFS := fstest.MapFS{
		"acme.risor": &fstest.MapFile{Data: []byte(`
func widget_refs() {
	return type_ref("com.acme.Widget")
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))
	p, err := rt.Compile(context.Background(), `
import acme
any_of(acme.widget_refs(), method("run"))
`)
	require.NoError(t, err)
	leaves := pattern.Leaves(p)
	require.Len(t, leaves, 2)
	assert.Equal(t, "Widget", leaves[0].(*pattern.TypeRefPattern).Simple)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"patterns/runs.risor": &fstest.MapFile{Data: []byte(`method("run")`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	src, err := rt.LoadScript("/patterns/runs.risor")
	require.NoError(t, err)
	assert.Equal(t, `method("run")`, src)

	_, err = rt.LoadScript("patterns/missing.risor")
	assert.Error(t, err)
}

func TestCompile_LogGlobal(t *testing.T) {
	t.Parallel()
	p := compile(t, `
log.Info("building pattern")
method("run")
`)
	assert.Equal(t, pattern.KindMethod, p.Kind())
}
