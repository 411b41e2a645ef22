package quarry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/jward/quarry/internal/config"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/pattern"
	qrt "github.com/jward/quarry/internal/runtime"
	"github.com/jward/quarry/internal/store"
)

const keyFormatKey = "key_format"

// ErrStaleIndex is returned by New when the database was built with an
// incompatible key encoding and must be reindexed.
var ErrStaleIndex = errors.New("index built with an incompatible key format")

// Engine ties the index, the Java front-end and the search pipeline
// together.
type Engine struct {
	store   *store.Store
	runtime *qrt.Runtime
	logger  *slog.Logger

	// root is the project directory context roots and library paths are
	// relative to. Empty means the working directory.
	root     string
	contexts []config.Context

	batchSize   int
	workers     int
	useParallel bool

	scriptsDir string
	scriptsFS  fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithContexts sets the build contexts of the project rooted at root.
// Without it the engine has a single context covering every file.
func WithContexts(root string, contexts ...Context) Option {
	return func(e *Engine) {
		e.root = root
		e.contexts = append([]config.Context(nil), contexts...)
	}
}

// WithConfig applies a loaded project configuration.
func WithConfig(c *config.Config) Option {
	return func(e *Engine) {
		e.root = c.Root
		e.contexts = append([]config.Context(nil), c.Contexts...)
		e.batchSize = c.BatchSize
		e.workers = c.Workers
	}
}

// WithBatchSize caps the number of documents whose trees are open at once
// during a search.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger routes pipeline events to logger. The default discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// parses files on a worker pool and commits their batches from a single
// writer. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the number of extraction workers used by parallel
// indexing.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithScriptsDir sets the directory pattern expressions import .risor
// libraries from.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads pattern files and their imports from fsys, taking
// precedence over WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("quarry: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("quarry: migrate: %w", err)
	}
	if err := checkKeyFormat(s); err != nil {
		s.Close()
		return nil, err
	}

	e := &Engine{
		store:       s,
		logger:      slog.New(slog.DiscardHandler),
		batchSize:   config.DefaultBatchSize,
		workers:     runtime.NumCPU(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.contexts) == 0 {
		e.contexts = config.Default(e.root).Contexts
	}
	rtOpts := []qrt.RuntimeOption{qrt.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, qrt.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = qrt.NewRuntime(e.scriptsDir, rtOpts...)
	return e, nil
}

// checkKeyFormat stamps a fresh index with the current key format and
// rejects one written with another.
func checkKeyFormat(s *store.Store) error {
	v, err := s.GetMetadata(keyFormatKey)
	if err != nil {
		return fmt.Errorf("quarry: %w", err)
	}
	switch v {
	case pattern.KeyFormat:
		return nil
	case "":
		return s.SetMetadata(keyFormatKey, pattern.KeyFormat)
	}
	return fmt.Errorf("quarry: %w: key format %s, want %s", ErrStaleIndex, v, pattern.KeyFormat)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Contexts returns the engine's build contexts.
func (e *Engine) Contexts() []Context {
	return e.contexts
}

// Compile turns a pattern expression such as
//
//	any_of(method("run", {"params": []}), type_ref("Widget"))
//
// into a pattern. Malformed expressions return an error wrapping
// ErrNoPattern.
func (e *Engine) Compile(ctx context.Context, expr string) (Pattern, error) {
	return e.runtime.Compile(ctx, expr)
}

// CompileFile compiles a .risor pattern file, resolved against the scripts
// directory like an import.
func (e *Engine) CompileFile(ctx context.Context, path string) (Pattern, error) {
	return e.runtime.CompileFile(ctx, path)
}

// path resolves a project-relative path.
func (e *Engine) path(p string) string {
	if filepath.IsAbs(p) || e.root == "" {
		return p
	}
	return filepath.Join(e.root, p)
}

// contextOf returns the build context owning path, the first whose roots
// contain it, and false when no context claims it or it is excluded.
func (e *Engine) contextOf(path string) (config.Context, bool) {
	rel, err := e.relative(path)
	if err != nil {
		return config.Context{}, false
	}
	for _, c := range e.contexts {
		for _, r := range c.Roots {
			r = filepath.ToSlash(filepath.Clean(r))
			if r != "." && rel != r && !strings.HasPrefix(rel, r+"/") {
				continue
			}
			if c.Excluded(rel) {
				return config.Context{}, false
			}
			return c, true
		}
	}
	return config.Context{}, false
}

// relative returns path relative to the project root, slash separated.
func (e *Engine) relative(path string) (string, error) {
	base := e.root
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// contextNamed returns the context with the given name.
func (e *Engine) contextNamed(name string) (config.Context, bool) {
	for _, c := range e.contexts {
		if c.Name == name {
			return c, true
		}
	}
	return config.Context{}, false
}

// libraries returns the resolved manifest paths on a context's classpath.
func (e *Engine) libraries(name string) []string {
	c, ok := e.contextNamed(name)
	if !ok {
		return nil
	}
	out := make([]string, len(c.Libraries))
	for i, lib := range c.Libraries {
		out[i] = e.path(lib)
	}
	return out
}

// attachLibrary puts a manifest on a context's classpath, creating the
// context if it is unknown.
func (e *Engine) attachLibrary(name, manifest string) {
	for i := range e.contexts {
		if e.contexts[i].Name != name {
			continue
		}
		for _, lib := range e.contexts[i].Libraries {
			if e.path(lib) == manifest {
				return
			}
		}
		e.contexts[i].Libraries = append(e.contexts[i].Libraries, manifest)
		return
	}
	e.contexts = append(e.contexts, config.Context{Name: name, Libraries: []string{manifest}})
}

// skipDirs lists directory names never descended into when walking.
var skipDirs = map[string]bool{
	"build":        true,
	"target":       true,
	"out":          true,
	"node_modules": true,
}

// IndexDirectory indexes every Java source under root, then the library
// manifests of every context. Files are listed with git ls-files when root
// is a git work tree, by walking it otherwise.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.IndexFiles(ctx, paths); err != nil {
		return err
	}
	var errs []error
	for _, c := range e.contexts {
		for _, lib := range e.libraries(c.Name) {
			if err := e.IndexLibrary(ctx, lib, c.Name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// gitListFiles returns tracked and untracked-but-not-ignored Java files
// under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if java.IsSource(line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// walkListFiles walks root, skipping hidden and build output directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if java.IsSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
