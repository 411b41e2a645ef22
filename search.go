package quarry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jward/quarry/internal/binary"
	"github.com/jward/quarry/internal/binding"
	"github.com/jward/quarry/internal/index"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/locator"
	"github.com/jward/quarry/internal/matchset"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
	"github.com/jward/quarry/internal/syntax"
)

// Match is one search result.
type Match struct {
	// Path is the source file, or "<manifest>|<pkg/Type>.class" for a
	// compiled type.
	Path string
	// Start and End are the byte offsets of the matched range. Line and
	// Column (1-based, in bytes) locate Start. All four are zero for
	// compiled types and packages.
	Start, End   int
	Line, Column int
	// Handle names the element the match is in, or declares:
	// "pkg.Type#method(int,String)".
	Handle   string
	Accuracy Accuracy
}

// Sink receives matches. Returning an error stops the search, which
// returns it.
type Sink interface {
	Accept(m Match) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Match) error

func (f SinkFunc) Accept(m Match) error { return f(m) }

// Search reports every match of p inside scope to sink: documents in build
// context then path order, matches of one document in source order.
// Resolution failures and unreadable documents lower accuracy or drop the
// document; only cancellation of ctx, a store failure or a sink error
// stops the search.
func (e *Engine) Search(ctx context.Context, p Pattern, scope *Scope, sink Sink) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	decls, rest := splitPackageDecls(p)
	for _, d := range decls {
		if err := e.SearchPackages(ctx, d, scope, sink); err != nil {
			return err
		}
	}
	if rest == nil {
		return nil
	}

	s := &search{
		e:       e,
		ctx:     ctx,
		loc:     locator.New(rest),
		vis:     e.visibility(scope),
		focus:   scope.Focus(),
		sink:    sink,
		parser:  java.NewParser(),
		catalog: newCatalog(e.store, e.logger),
	}
	defer s.parser.Close()
	return s.run(rest)
}

// splitPackageDecls separates package declaration operands of an Or, which
// never reach the tree pipeline, from the rest of the pattern.
func splitPackageDecls(p pattern.Pattern) ([]*pattern.PackageDeclPattern, pattern.Pattern) {
	switch q := p.(type) {
	case *pattern.PackageDeclPattern:
		return []*pattern.PackageDeclPattern{q}, nil
	case *pattern.OrPattern:
		ld, l := splitPackageDecls(q.Left)
		rd, r := splitPackageDecls(q.Right)
		decls := append(ld, rd...)
		switch {
		case len(decls) == 0:
			return nil, p
		case l == nil:
			return decls, r
		case r == nil:
			return decls, l
		}
		return decls, pattern.Or(l, r)
	}
	return nil, p
}

// search is the state of one Search call.
type search struct {
	e       *Engine
	ctx     context.Context
	loc     *locator.Locator
	vis     *visibility
	focus   string
	sink    Sink
	parser  *java.Parser
	catalog *catalog

	reported int
}

// unit is a candidate document of the current batch.
type unit struct {
	doc  *store.Document
	tree *syntax.Tree
	set  *matchset.Set
}

func (s *search) cancelled() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

func (s *search) run(p pattern.Pattern) error {
	start := time.Now()

	// COLLECT
	var docs []*store.Document
	err := index.NewRetriever(s.e.store).Retrieve(s.ctx, p, s.vis, func(c index.Candidate) error {
		docs = append(docs, c.Doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Context != docs[j].Context {
			return docs[i].Context < docs[j].Context
		}
		return docs[i].Path < docs[j].Path
	})
	s.e.logger.Debug("search.candidates", "pattern", p.String(), "docs", len(docs))

	for _, batch := range batches(docs, s.e.batchSize) {
		if err := s.batch(batch); err != nil {
			return err
		}
	}
	s.e.logger.Info("search.done", "docs", len(docs), "matches", s.reported, "elapsed", time.Since(start))
	return nil
}

// batches splits sorted documents into runs of one context and kind, at
// most size long.
func batches(docs []*store.Document, size int) [][]*store.Document {
	var out [][]*store.Document
	for len(docs) > 0 {
		n := 1
		for n < len(docs) && n < size &&
			docs[n].Context == docs[0].Context && docs[n].Kind == docs[0].Kind {
			n++
		}
		out = append(out, docs[:n])
		docs = docs[n:]
	}
	return out
}

// classpath returns the manifests visible from a build context, nil when
// the context names none.
func (s *search) classpath(bc string) map[string]bool {
	libs := s.e.libraries(bc)
	if len(libs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(libs))
	for _, l := range libs {
		m[l] = true
	}
	return m
}

func (s *search) batch(docs []*store.Document) error {
	owner, isBinary := docs[0].Context, docs[0].IsBinary()
	prov := &provider{
		ctx:     s.ctx,
		catalog: s.catalog,
		parser:  s.parser,
		context: owner,
		sources: !isBinary,
	}
	if !isBinary {
		prov.libraries = s.classpath(owner)
	}
	defer prov.release()
	env := binding.NewEnvironment(prov)
	s.e.logger.Debug("search.batch", "context", owner, "size", len(docs), "binary", isBinary)

	if isBinary {
		return s.binaryBatch(env, docs)
	}

	var units []*unit
	defer func() {
		for _, u := range units {
			u.tree.Release()
		}
	}()

	// PARSE_SKELETON
	for _, d := range docs {
		if err := s.cancelled(); err != nil {
			return err
		}
		src, err := os.ReadFile(d.Path)
		if err != nil {
			s.e.logger.Debug("search.skip", "doc", d.Path, "reason", err)
			continue
		}
		t, err := s.parser.ParseSkeleton(s.ctx, d.Path, src)
		if err != nil {
			if cerr := s.cancelled(); cerr != nil {
				return cerr
			}
			s.e.logger.Debug("search.skip", "doc", d.Path, "reason", err)
			continue
		}
		env.AddUnit(t)
		units = append(units, &unit{doc: d, tree: t, set: matchset.New()})
	}

	// STRUCTURAL_SWEEP
	var focus *binding.TypeBinding
	if s.focus != "" {
		focus = env.Type(s.focus)
	}
	needsResolve := false
	for _, u := range units {
		s.sweep(u)
		needsResolve = needsResolve || u.set.NeedsResolve()
	}

	// RESOLVE
	if needsResolve {
		for _, u := range units {
			if !u.set.NeedsResolve() {
				continue
			}
			if err := s.cancelled(); err != nil {
				return err
			}
			s.resolve(env, u)
		}
	}

	// REPORT, RELEASE
	for _, u := range units {
		if err := s.report(env, focus, u); err != nil {
			return err
		}
		u.tree.Release()
		u.set = nil
	}
	return nil
}

// sweep materializes the bodies that can host a match, runs the locator
// over the tree and purges bodies left without pending candidates from
// binding.
func (s *search) sweep(u *unit) {
	t := u.tree
	for changed := true; changed; {
		changed = false
		for _, id := range t.Bodies() {
			b := t.Node(id).Body
			if b.State != syntax.Unparsed || !s.loc.Enters(t, id) {
				continue
			}
			if !s.loc.MayOccurIn(t.Source[b.Span.Start:b.Span.End]) {
				continue
			}
			if err := t.Materialize(s.parser, id); err != nil {
				s.e.logger.Debug("search.skip", "doc", u.doc.Path, "body", t.Handle(id), "reason", err)
				continue
			}
			changed = true
		}
	}

	s.loc.Sweep(t, u.set)
	if s.loc.Refines() {
		u.set.Refine(t, func(id syntax.NodeID, _ *syntax.Node) bool { return s.loc.Keep(t, id) })
	}
	for _, id := range t.Bodies() {
		if b := t.Node(id).Body; b.State == syntax.Materialized && !u.set.PossibleWithin(b.Span) {
			t.Purge(id)
		}
	}
}

// resolve binds one unit and settles its pending candidates. A unit that
// cannot be bound keeps its candidates as inaccurate matches.
func (s *search) resolve(env *binding.Environment, u *unit) {
	r, err := env.BindUnit(u.tree)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, binding.ErrAborted) {
			outcome = "aborted"
		}
		s.e.logger.Debug("search.resolve", "doc", u.doc.Path, "outcome", outcome, "reason", err)
		u.set.DemoteAll()
		return
	}
	pending := u.set.Possible()
	for _, m := range pending {
		u.set.Promote(m, s.loc.Resolve(r, m.ID))
	}
	s.e.logger.Debug("search.resolve", "doc", u.doc.Path, "outcome", "resolved", "candidates", len(pending))
}

func (s *search) report(env *binding.Environment, focus *binding.TypeBinding, u *unit) error {
	t := u.tree
	var lines lineIndex
	return u.set.Report(t, s.loc.Mask(), func(id syntax.NodeID, exact bool) error {
		if err := s.cancelled(); err != nil {
			return err
		}
		if s.focus != "" && !inLineage(focus, env.Enclosing(t, id)) {
			return nil
		}
		if lines == nil {
			lines = newLineIndex(t.Source)
		}
		sp := s.loc.Span(t, id)
		line, col := lines.position(sp.Start)
		return s.accept(Match{
			Path:     u.doc.Path,
			Start:    sp.Start,
			End:      sp.End,
			Line:     line,
			Column:   col,
			Handle:   t.Handle(id),
			Accuracy: accuracy(exact),
		})
	})
}

// binaryBatch applies the locator to compiled types.
func (s *search) binaryBatch(env *binding.Environment, docs []*store.Document) error {
	var focus *binding.TypeBinding
	if s.focus != "" {
		focus = env.Type(s.focus)
	}
	for _, d := range docs {
		if err := s.cancelled(); err != nil {
			return err
		}
		_, name, ok := binary.SplitDocumentPath(d.Path)
		if !ok {
			s.e.logger.Debug("search.skip", "doc", d.Path, "reason", "malformed binary path")
			continue
		}
		tb := env.Type(name)
		if tb == nil || !tb.Binary {
			s.e.logger.Debug("search.skip", "doc", d.Path, "reason", "type not in manifest")
			continue
		}
		if s.focus != "" && !inLineage(focus, tb) {
			continue
		}
		for _, m := range s.loc.MatchBinary(env, tb) {
			if err := s.cancelled(); err != nil {
				return err
			}
			if err := s.accept(Match{Path: d.Path, Handle: m.Handle, Accuracy: m.Level}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *search) accept(m Match) error {
	if err := s.sink.Accept(m); err != nil {
		return err
	}
	s.reported++
	return nil
}

// inLineage reports whether typ is the focus type, one of its supertypes
// or one of its subtypes.
func inLineage(focus, typ *binding.TypeBinding) bool {
	if focus == nil || typ == nil {
		return false
	}
	if typ.Qualified != "" && focus.IsSubtypeOf(typ.Qualified) {
		return true
	}
	return typ.IsSubtypeOf(focus.Qualified)
}

func accuracy(exact bool) Accuracy {
	if exact {
		return Accurate
	}
	return Inaccurate
}

// lineIndex holds the byte offset of every line start.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	li := lineIndex{0}
	for i, c := range src {
		if c == '\n' {
			li = append(li, i+1)
		}
	}
	return li
}

// position converts a byte offset into a 1-based line and column.
func (li lineIndex) position(off int) (int, int) {
	i := sort.Search(len(li), func(i int) bool { return li[i] > off })
	return i, off - li[i-1] + 1
}

// SearchPackages reports every declared package whose name matches p,
// sorted by name, without consulting the index or parsing any document.
// A package declared in several documents is reported once, at its
// lexically smallest declaring path.
func (e *Engine) SearchPackages(ctx context.Context, p *pattern.PackageDeclPattern, scope *Scope, sink Sink) error {
	pkgs, err := e.store.Packages("")
	if err != nil {
		return fmt.Errorf("search packages: %w", err)
	}
	vis := e.visibility(scope)
	first := map[string]*store.Package{}
	for _, pkg := range pkgs {
		_, _, isBinary := binary.SplitDocumentPath(pkg.Path)
		if !vis.encloses(pkg.Context, isBinary) || !vis.pathAllowed(pkg.Path) {
			continue
		}
		if !p.MatchesSegments(pkg.Name) {
			continue
		}
		if prev, ok := first[pkg.Name]; !ok || pkg.Path < prev.Path {
			first[pkg.Name] = pkg
		}
	}
	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("search packages: %w", err)
		}
		if err := sink.Accept(Match{Path: first[name].Path, Handle: name, Accuracy: Accurate}); err != nil {
			return err
		}
	}
	e.logger.Debug("search.candidates", "pattern", p.String(), "packages", len(names))
	return nil
}
