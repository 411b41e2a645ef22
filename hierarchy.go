package quarry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jward/quarry/internal/binding"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/pattern"
)

// TypeHierarchy is the lineage of one type: every supertype the binding
// environment can reach and the declared direct subtypes found by
// searching supertype references.
type TypeHierarchy struct {
	Type string
	Kind string
	// Supertypes lists superclasses then interfaces, breadth first.
	Supertypes []string
	// Missing lists written supertypes that could not be found.
	Missing []string
	// Subclasses extend the type; Implementors implement or, for
	// interfaces, extend it. Each match is the supertype reference.
	Subclasses   []Match
	Implementors []Match
}

// TypeHierarchy returns the hierarchy of a type, or nil with no error when
// the type is unknown. A simple name is accepted when exactly one indexed
// type declares it.
func (e *Engine) TypeHierarchy(ctx context.Context, name string, scope *Scope) (*TypeHierarchy, error) {
	qualified, err := e.qualify(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	parser := java.NewParser()
	defer parser.Close()
	prov := &provider{ctx: ctx, catalog: newCatalog(e.store, e.logger), parser: parser, sources: true}
	defer prov.release()

	tb := binding.NewEnvironment(prov).Type(qualified)
	if tb == nil || tb.Primitive {
		return nil, nil
	}
	h := &TypeHierarchy{Type: tb.Qualified, Kind: tb.Kind.String(), Missing: tb.Missing()}
	for _, s := range tb.Supertypes() {
		h.Supertypes = append(h.Supertypes, s.Qualified)
	}

	for _, rel := range []struct {
		kind pattern.SuperKind
		dst  *[]Match
	}{
		{pattern.SuperClasses, &h.Subclasses},
		{pattern.SuperInterfaces, &h.Implementors},
	} {
		p := pattern.NewSuperTypeRef(qualified, pattern.WithSuperKind(rel.kind))
		err := e.Search(ctx, p, scope, SinkFunc(func(m Match) error {
			*rel.dst = append(*rel.dst, m)
			return nil
		}))
		if err != nil {
			return nil, fmt.Errorf("type hierarchy: %w", err)
		}
	}
	return h, nil
}

// qualify maps a simple type name to the one qualified name declaring it.
// Qualified names and unknown simple names are returned unchanged.
func (e *Engine) qualify(name string) (string, error) {
	if strings.Contains(name, ".") {
		return name, nil
	}
	decls, err := e.store.TypeDeclsBySimple(name)
	if err != nil {
		return "", err
	}
	var names []string
	for _, d := range decls {
		if !slices.Contains(names, d.Qualified) {
			names = append(names, d.Qualified)
		}
	}
	switch len(names) {
	case 0:
		return name, nil
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("ambiguous type %q: %s", name, strings.Join(names, ", "))
}
