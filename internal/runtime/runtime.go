// Package runtime compiles textual pattern expressions with an embedded
// Risor VM. An expression is a Risor program whose final value is a pattern
// built by the host functions (method, type_ref, any_of, ...).
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/quarry/internal/pattern"
)

// ErrNoPattern is returned when an expression fails to evaluate or does not
// produce a pattern.
var ErrNoPattern = errors.New("expression does not produce a pattern")

// Runtime evaluates pattern expressions.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and imported pattern libraries from fsys
// instead of from disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the script-visible log object to logger.
func WithRuntimeLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime. scriptsDir, when not empty, is where
// CompileFile and import statements look for .risor files.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compile evaluates expr and returns the pattern it produces.
func (r *Runtime) Compile(ctx context.Context, expr string) (pattern.Pattern, error) {
	return r.eval(ctx, expr, "<inline>")
}

// CompileFile evaluates a .risor file, resolved like an import.
func (r *Runtime) CompileFile(ctx context.Context, path string) (pattern.Pattern, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, path)
}

func (r *Runtime) eval(ctx context.Context, source, label string) (pattern.Pattern, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("runtime: %s: %w", label, ErrNoPattern)
	}
	globals := r.buildGlobals()

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: %s: %w: %v", label, ErrNoPattern, err)
	}
	p, ok := unwrap(result)
	if !ok {
		return nil, fmt.Errorf("runtime: %s: %w: got %s", label, ErrNoPattern, typeName(result))
	}
	return p, nil
}

// buildImporter returns a Risor importer for the configured script source,
// nil when there is none.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file from the configured fs.FS, or from disk
// relative to scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the host functions exposed to expressions.
func (r *Runtime) buildGlobals() map[string]any {
	return map[string]any{
		"type_decl":    makeTypeDeclFn(),
		"type_ref":     makeTypeRefFn(),
		"super_ref":    makeSuperRefFn(),
		"field":        makeFieldFn(),
		"method":       makeMethodFn(),
		"constructor":  makeConstructorFn(),
		"package_ref":  makePackageRefFn(),
		"package_decl": makePackageDeclFn(),
		"any_of":       makeAnyOfFn(),
		"all_of":       makeAllOfFn(),
		"log":          mustProxy(&logObject{logger: r.logger}),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

func typeName(obj object.Object) string {
	if obj == nil {
		return "nothing"
	}
	return string(obj.Type())
}
