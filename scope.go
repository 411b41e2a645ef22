package quarry

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/quarry/internal/index"
	"github.com/jward/quarry/internal/store"
)

// Scope restricts which documents a search visits and which matches it
// reports. A nil Scope is the whole workspace.
type Scope struct {
	contexts []string
	include  []string
	exclude  []string
	focus    string
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// NewScope builds a scope. Without options it covers the workspace.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InContexts limits a search to the named build contexts and the libraries
// on their classpaths.
func InContexts(names ...string) ScopeOption {
	return func(s *Scope) {
		s.contexts = append(s.contexts, names...)
	}
}

// IncludePaths keeps only documents whose project-relative path matches one
// of the doublestar globs.
func IncludePaths(globs ...string) ScopeOption {
	return func(s *Scope) {
		s.include = append(s.include, globs...)
	}
}

// ExcludePaths drops documents whose path matches one of the doublestar
// globs.
func ExcludePaths(globs ...string) ScopeOption {
	return func(s *Scope) {
		s.exclude = append(s.exclude, globs...)
	}
}

// WithHierarchyFocus reports only matches inside types in the subtype or
// supertype lineage of the qualified type.
func WithHierarchyFocus(qualified string) ScopeOption {
	return func(s *Scope) {
		s.focus = qualified
	}
}

// Focus returns the hierarchy focus type, "" when there is none.
func (s *Scope) Focus() string {
	if s == nil {
		return ""
	}
	return s.focus
}

// Validate rejects malformed path globs.
func (s *Scope) Validate() error {
	if s == nil {
		return nil
	}
	for _, g := range append(append([]string(nil), s.include...), s.exclude...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid scope: bad glob %q", g)
		}
	}
	return nil
}

// visibility is a Scope bound to the engine's contexts. It implements
// index.Scope.
type visibility struct {
	scope     *Scope
	contexts  map[string]bool
	libraries map[string]bool
	// relative maps a document path to the slash-separated path globs are
	// matched against.
	relative func(string) string
}

var _ index.Scope = (*visibility)(nil)

func (e *Engine) visibility(s *Scope) *visibility {
	v := &visibility{scope: s, relative: func(p string) string {
		if rel, err := e.relative(p); err == nil {
			return rel
		}
		return p
	}}
	if s == nil || len(s.contexts) == 0 {
		return v
	}
	v.contexts = map[string]bool{}
	v.libraries = map[string]bool{}
	for _, name := range s.contexts {
		v.contexts[name] = true
		for _, lib := range e.libraries(name) {
			v.libraries[lib] = true
		}
	}
	return v
}

// Encloses reports whether doc is visible.
func (v *visibility) Encloses(doc *store.Document) bool {
	if !v.encloses(doc.Context, doc.IsBinary()) {
		return false
	}
	return v.pathAllowed(doc.Path)
}

// encloses reports whether an owning context is visible: a build context
// name for sources, a manifest path for binaries.
func (v *visibility) encloses(context string, binary bool) bool {
	if v.contexts == nil {
		return true
	}
	if binary {
		return v.libraries[context]
	}
	return v.contexts[context]
}

func (v *visibility) pathAllowed(path string) bool {
	if v.scope == nil {
		return true
	}
	path = v.relative(path)
	for _, g := range v.scope.exclude {
		if ok, _ := doublestar.Match(g, path); ok {
			return false
		}
	}
	if len(v.scope.include) == 0 {
		return true
	}
	for _, g := range v.scope.include {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}
