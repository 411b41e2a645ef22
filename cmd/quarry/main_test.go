package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/quarry/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestLocation(t *testing.T) {
	t.Parallel()
	root := "/work/proj"
	assert.Equal(t, "src/A.java", location(root, "/work/proj/src/A.java"))
	assert.Equal(t, "/elsewhere/B.java", location(root, "/elsewhere/B.java"))
	assert.Equal(t, "libs/client.yaml|com.lib.Client",
		location(root, "/work/proj/libs/client.yaml|com/lib/Client.class"))
}

// -----------------------------------------------------------------------------
// Commands, run in process. They share the package-level flag variables and
// so never run in parallel.
// -----------------------------------------------------------------------------

func resetFlags() {
	flagDB, flagFormat, flagRoot, flagScriptsDir = "", "json", "", ""
	flagVerbose, flagForce = false, false
	flagBatchSize, flagWorkers, flagLimit = 0, 0, 0
	flagContexts, flagInclude, flagExclude = nil, nil, nil
	flagFocus, flagFile = "", ""
	flagMode, flagNoCase = "exact", false
	errorHandled = false
}

// execute runs the root command with args and returns what it wrote.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

type envelope struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Truncated  bool            `json:"truncated"`
	Error      string          `json:"error"`
}

func decode(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

const baseJava = `package com.acme;

public class Base {
    void run() {}
}
`

const widgetJava = `package com.acme;

public class Widget extends Base {
    void run() {}
}
`

// indexedProject writes a two-file project, indexes it and returns its root.
func indexedProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range map[string]string{
		"src/com/acme/Base.java":   baseJava,
		"src/com/acme/Widget.java": widgetJava,
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}

	_, stderr, err := execute(t, "index", root, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stderr, "(2 documents)")
	assert.FileExists(t, filepath.Join(root, config.DefaultDatabase))
	return root
}

func TestResolveDBPath(t *testing.T) {
	resetFlags()
	cfg := config.Default("/proj")
	assert.Equal(t, filepath.Join("/proj", ".quarry", "index.db"), resolveDBPath("/proj", cfg))

	flagDB = "custom.db"
	assert.Equal(t, filepath.Join("/proj", "custom.db"), resolveDBPath("/proj", cfg))

	flagDB = "/abs/index.db"
	assert.Equal(t, "/abs/index.db", resolveDBPath("/proj", cfg))
	resetFlags()
}

func TestIndex_Force(t *testing.T) {
	root := indexedProject(t)

	_, stderr, err := execute(t, "index", root, "--root", root, "--force")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Cleared database")
	assert.Contains(t, stderr, "(2 documents)")
}

func TestIndex_NotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0o644))

	_, _, err := execute(t, "index", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestSearch_JSON(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "search", `method("run")`, "--root", root)
	require.NoError(t, err)

	env := decode(t, out)
	assert.Equal(t, "search", env.Command)
	require.NotNil(t, env.TotalCount)
	assert.Equal(t, 2, *env.TotalCount)

	var matches []CLIMatch
	require.NoError(t, json.Unmarshal(env.Results, &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "src/com/acme/Base.java", matches[0].File)
	assert.Equal(t, "com.acme.Base#run()", matches[0].Handle)
	assert.Equal(t, "ACCURATE", matches[0].Accuracy)
	assert.Equal(t, 4, matches[0].Line)
	assert.Equal(t, "com.acme.Widget#run()", matches[1].Handle)
}

func TestSearch_Text(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "search", `method("run")`, "--root", root, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "src/com/acme/Base.java:4:10 ACCURATE com.acme.Base#run()\n")
	assert.Contains(t, out, "src/com/acme/Widget.java:4:10 ACCURATE com.acme.Widget#run()\n")
}

func TestSearch_Limit(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "search", `method("run")`, "--root", root, "--limit", "1")
	require.NoError(t, err)

	env := decode(t, out)
	assert.True(t, env.Truncated)
	assert.Nil(t, env.TotalCount)
	var matches []CLIMatch
	require.NoError(t, json.Unmarshal(env.Results, &matches))
	assert.Len(t, matches, 1)
}

func TestSearch_Scope(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "search", `method("run")`, "--root", root, "--include", "**/Widget.java")
	require.NoError(t, err)
	var matches []CLIMatch
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "com.acme.Widget#run()", matches[0].Handle)

	out, _, err = execute(t, "search", `method("run")`, "--root", root, "--context", "nope")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &matches))
	assert.Empty(t, matches)
}

func TestSearch_File(t *testing.T) {
	root := indexedProject(t)
	scripts := filepath.Join(root, "patterns")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "run.risor"), []byte(`method("run")`), 0o644))

	out, _, err := execute(t, "search", "--root", root, "--scripts-dir", scripts, "--file", "run.risor")
	require.NoError(t, err)
	env := decode(t, out)
	require.NotNil(t, env.TotalCount)
	assert.Equal(t, 2, *env.TotalCount)
}

func TestSearch_Errors(t *testing.T) {
	root := indexedProject(t)

	t.Run("bad expression", func(t *testing.T) {
		out, _, err := execute(t, "search", `method(`, "--root", root)
		require.Error(t, err)
		assert.True(t, errorHandled)
		assert.NotEmpty(t, decode(t, out).Error)
	})

	t.Run("no expression", func(t *testing.T) {
		_, stderr, err := execute(t, "search", "--root", root, "--format", "text")
		require.Error(t, err)
		assert.Contains(t, stderr, "give either an expression or --file")
	})

	t.Run("no database", func(t *testing.T) {
		out, _, err := execute(t, "search", `method("run")`, "--root", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, decode(t, out).Error, "database not found")
	})

	t.Run("bad format", func(t *testing.T) {
		_, _, err := execute(t, "search", `method("run")`, "--root", root, "--format", "yaml")
		require.Error(t, err)
		assert.False(t, errorHandled)
	})
}

func TestPackages(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "packages", "com.*", "--root", root)
	require.NoError(t, err)
	var pkgs []CLIPackage
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &pkgs))
	require.Len(t, pkgs, 1)
	assert.Equal(t, CLIPackage{Name: "com.acme", File: "src/com/acme/Base.java"}, pkgs[0])

	out, _, err = execute(t, "packages", "COM.ACME", "--root", root, "--ignore-case", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "com.acme")

	_, _, err = execute(t, "packages", "com", "--root", root, "--mode", "fuzzy")
	require.Error(t, err)
}

func TestHierarchy(t *testing.T) {
	root := indexedProject(t)

	out, _, err := execute(t, "hierarchy", "com.acme.Base", "--root", root)
	require.NoError(t, err)
	var h CLIHierarchy
	require.NoError(t, json.Unmarshal(decode(t, out).Results, &h))
	assert.Equal(t, "com.acme.Base", h.Type)
	assert.Equal(t, "class", h.Kind)
	require.Len(t, h.Subclasses, 1)
	assert.Equal(t, "com.acme.Widget", h.Subclasses[0].Handle)
	assert.Equal(t, "src/com/acme/Widget.java", h.Subclasses[0].File)
	assert.Empty(t, h.Implementors)

	out, _, err = execute(t, "hierarchy", "com.acme.Widget", "--root", root, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "class com.acme.Widget\n")
	assert.Contains(t, out, "com.acme.Base")

	out, _, err = execute(t, "hierarchy", "com.acme.Nope", "--root", root)
	require.Error(t, err)
	assert.Contains(t, decode(t, out).Error, "unknown type")
}
