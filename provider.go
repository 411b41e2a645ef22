package quarry

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jward/quarry/internal/binary"
	"github.com/jward/quarry/internal/binding"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/store"
	"github.com/jward/quarry/internal/syntax"
)

// catalog holds what one search reads from the store once: library
// manifests and the set of known package names.
type catalog struct {
	store     *store.Store
	logger    *slog.Logger
	manifests map[string]*binary.Manifest
	packages  map[string]bool
}

func newCatalog(s *store.Store, logger *slog.Logger) *catalog {
	return &catalog{store: s, logger: logger, manifests: map[string]*binary.Manifest{}}
}

// manifest loads a library manifest, caching failures as nil.
func (c *catalog) manifest(path string) *binary.Manifest {
	if m, ok := c.manifests[path]; ok {
		return m
	}
	m, err := binary.Load(path)
	if err != nil {
		c.logger.Debug("search.skip", "manifest", path, "reason", err)
		m = nil
	}
	c.manifests[path] = m
	return m
}

// isPackage reports whether name is a declared package or a prefix of one.
func (c *catalog) isPackage(name string) bool {
	if c.packages == nil {
		c.packages = map[string]bool{}
		pkgs, err := c.store.Packages("")
		if err != nil {
			c.logger.Debug("search.skip", "packages", err)
		}
		for _, p := range pkgs {
			segs := strings.Split(p.Name, ".")
			for i := range segs {
				c.packages[strings.Join(segs[:i+1], ".")] = true
			}
		}
	}
	return c.packages[name]
}

// provider faults types into the binding environment of one batch. Source
// types come from skeleton parses of their indexed documents, preferring
// the batch's own context; binary types from the manifests on the
// context's classpath.
type provider struct {
	ctx     context.Context
	catalog *catalog
	parser  *java.Parser

	// context owns the batch: a build context name, or a manifest path for
	// binary batches.
	context string
	// sources is false for batches of binary documents: compiled libraries
	// never see workspace sources.
	sources bool
	// libraries restricts binary lookups; nil allows every manifest.
	libraries map[string]bool

	trees map[string]*syntax.Tree
}

var _ binding.Provider = (*provider)(nil)

func (p *provider) SourceType(qualified string) (*syntax.Tree, syntax.NodeID, bool) {
	if !p.sources {
		return nil, syntax.NoNode, false
	}
	decls, err := p.catalog.store.TypeDeclsByQualified(qualified)
	if err != nil {
		p.catalog.logger.Debug("search.skip", "type", qualified, "reason", err)
		return nil, syntax.NoNode, false
	}
	var pick *store.TypeDecl
	for _, d := range decls {
		if d.DocKind != store.KindSource {
			continue
		}
		if d.Context == p.context {
			pick = d
			break
		}
		if pick == nil {
			pick = d
		}
	}
	if pick == nil {
		return nil, syntax.NoNode, false
	}
	t := p.tree(pick.Path)
	if t == nil {
		return nil, syntax.NoNode, false
	}
	var found syntax.NodeID = syntax.NoNode
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if found != syntax.NoNode {
			return false
		}
		if n.Kind == syntax.TypeDecl && t.QualifiedName(id) == qualified {
			found = id
			return false
		}
		return n.Kind == syntax.CompilationUnit || n.Kind == syntax.TypeDecl
	})
	return t, found, found != syntax.NoNode
}

func (p *provider) BinaryType(qualified string) *binary.Type {
	decls, err := p.catalog.store.TypeDeclsByQualified(qualified)
	if err != nil {
		p.catalog.logger.Debug("search.skip", "type", qualified, "reason", err)
		return nil
	}
	// The batch's own manifest wins over other libraries declaring the
	// same name.
	sort.SliceStable(decls, func(i, j int) bool {
		return decls[i].Context == p.context && decls[j].Context != p.context
	})
	for _, d := range decls {
		if d.DocKind != store.KindBinary {
			continue
		}
		if p.libraries != nil && !p.libraries[d.Context] {
			continue
		}
		if m := p.catalog.manifest(d.Context); m != nil {
			if t := m.Lookup(qualified); t != nil {
				return t
			}
		}
	}
	return nil
}

func (p *provider) IsPackage(name string) bool {
	return p.catalog.isPackage(name)
}

// tree returns the skeleton of a source document, parsing it on first use.
func (p *provider) tree(path string) *syntax.Tree {
	if t, ok := p.trees[path]; ok {
		return t
	}
	var t *syntax.Tree
	src, err := os.ReadFile(path)
	if err == nil {
		t, err = p.parser.ParseSkeleton(p.ctx, path, src)
	}
	if err != nil {
		p.catalog.logger.Debug("search.skip", "doc", path, "reason", err)
		t = nil
	}
	if p.trees == nil {
		p.trees = map[string]*syntax.Tree{}
	}
	p.trees[path] = t
	return t
}

// release frees every tree the provider parsed.
func (p *provider) release() {
	for _, t := range p.trees {
		if t != nil {
			t.Release()
		}
	}
	p.trees = nil
}
