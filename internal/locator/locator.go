// Package locator decides how well syntax nodes and compiled descriptors
// match a pattern. The structural pass uses names, arity and nesting only;
// the resolved pass re-checks pending candidates against bindings.
package locator

import (
	"bytes"
	"strings"

	"github.com/jward/quarry/internal/matchset"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// Locator matches one pattern. Composite patterns are flattened to their
// leaves; a node takes the highest level any leaf assigns it.
type Locator struct {
	p      pattern.Pattern
	leaves []pattern.Pattern
	mask   pattern.ContainerMask
	fine   bool
}

// New returns a locator for p.
func New(p pattern.Pattern) *Locator {
	l := &Locator{p: p, leaves: pattern.Leaves(p), mask: p.Mask()}
	for _, leaf := range l.leaves {
		if leaf.FineGrain() != 0 {
			l.fine = true
		}
	}
	return l
}

func (l *Locator) Pattern() pattern.Pattern    { return l.p }
func (l *Locator) Mask() pattern.ContainerMask { return l.mask }

// Refines reports whether some leaf restricts reference kinds, so the
// candidate set needs a Refine pass.
func (l *Locator) Refines() bool { return l.fine }

// Match returns the structural level of node id.
func (l *Locator) Match(t *syntax.Tree, id syntax.NodeID) pattern.Level {
	best := pattern.Impossible
	for _, leaf := range l.leaves {
		if lv := match(leaf, t, id); lv > best {
			best = lv
		}
	}
	return best
}

// Sweep records every node of t with a structural level above Impossible
// in s. Bodies whose nesting level the mask excludes are not entered.
func (l *Locator) Sweep(t *syntax.Tree, s *matchset.Set) {
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if l.pruned(t, n) {
			return false
		}
		if lv := l.Match(t, id); lv != pattern.Impossible {
			s.Add(t, id, lv)
		}
		return true
	})
}

// Enters reports whether the body of declaration id can host a match.
func (l *Locator) Enters(t *syntax.Tree, id syntax.NodeID) bool {
	b := t.Node(id).Body
	return b != nil && l.mask.Permits(b.Container)
}

func (l *Locator) pruned(t *syntax.Tree, n *syntax.Node) bool {
	if n.Parent == syntax.NoNode {
		return false
	}
	b := t.Node(n.Parent).Body
	return b != nil && b.Span.Contains(n.Span) && !l.mask.Permits(b.Container)
}

// MayOccurIn reports whether src can contain a match. It is false only when
// every leaf needs a case-sensitive literal name that src lacks.
func (l *Locator) MayOccurIn(src []byte) bool {
	for _, leaf := range l.leaves {
		lit := literal(leaf)
		if lit == "" || bytes.Contains(src, []byte(lit)) {
			return true
		}
	}
	return false
}

func literal(p pattern.Pattern) string {
	r := p.Rule()
	if !r.CaseSensitive || (r.Mode != pattern.Exact && r.Mode != pattern.Prefix) {
		return ""
	}
	var lit string
	switch p := p.(type) {
	case *pattern.TypeDeclPattern:
		lit = p.Simple
	case *pattern.TypeRefPattern:
		lit = p.Simple
	case *pattern.SuperTypeRefPattern:
		lit = p.Simple
	case *pattern.FieldPattern:
		lit = p.Name
	case *pattern.MethodPattern:
		lit = p.Name
	case *pattern.ConstructorPattern:
		// super(...) and this(...) never spell the type name.
		if !p.Limit.Has(pattern.References) {
			lit = p.Simple
		}
	case *pattern.PackageRefPattern:
		if segs := p.Segments(); len(segs) > 0 {
			lit = segs[0]
		}
	}
	if pattern.HasWildcard(lit) {
		return ""
	}
	return lit
}

// Keep is the fine-grain filter: declarations always pass, references pass
// when a matching leaf is unrestricted or allows the node's context.
func (l *Locator) Keep(t *syntax.Tree, id syntax.NodeID) bool {
	n := t.Node(id)
	if n.Kind.IsDeclaration() {
		return true
	}
	for _, leaf := range l.leaves {
		if match(leaf, t, id) == pattern.Impossible {
			continue
		}
		if fg := leaf.FineGrain(); fg == 0 || n.Context&fg != 0 {
			return true
		}
	}
	return false
}

// shape converts a passed shape check into a structural level.
func shape(p pattern.Pattern, ok bool) pattern.Level {
	switch {
	case !ok:
		return pattern.Impossible
	case p.NeedsResolve():
		return pattern.Possible
	}
	return pattern.Accurate
}

func match(p pattern.Pattern, t *syntax.Tree, id syntax.NodeID) pattern.Level {
	n := t.Node(id)
	switch p := p.(type) {
	case *pattern.TypeDeclPattern:
		return matchTypeDecl(p, t, id, n)
	case *pattern.TypeRefPattern:
		return matchTypeRef(p, n)
	case *pattern.SuperTypeRefPattern:
		return matchSuperRef(p, t, n)
	case *pattern.FieldPattern:
		return matchField(p, t, n)
	case *pattern.MethodPattern:
		return matchMethod(p, n)
	case *pattern.ConstructorPattern:
		return matchConstructor(p, t, id, n)
	case *pattern.PackageRefPattern:
		return matchPackageRef(p, n)
	}
	// Package declarations are answered from the namespace listing.
	return pattern.Impossible
}

func matchTypeDecl(p *pattern.TypeDeclPattern, t *syntax.Tree, id syntax.NodeID, n *syntax.Node) pattern.Level {
	if n.Kind != syntax.TypeDecl || n.Name == "" {
		return pattern.Impossible
	}
	r := p.Rule()
	if !r.Match(p.Simple, n.Name) || !p.MatchesKind(n.TypeKind) {
		return pattern.Impossible
	}
	if p.Qualification != "" {
		q := t.QualifiedName(id)
		if q == "" {
			return pattern.Impossible
		}
		qual, _ := pattern.SplitQualified(q)
		if !r.MatchQualification(p.Qualification, qual) {
			return pattern.Impossible
		}
	}
	return pattern.Accurate
}

func matchTypeRef(p *pattern.TypeRefPattern, n *syntax.Node) pattern.Level {
	r := p.Rule()
	switch n.Kind {
	case syntax.TypeRef:
		return shape(p, r.Match(p.Simple, n.Name))
	case syntax.NameRef, syntax.PackageRef:
		// The name may denote a variable, a package or a type.
		if len(matchingSegments(r, p.Simple, n)) > 0 {
			return pattern.Possible
		}
	}
	return pattern.Impossible
}

func matchSuperRef(p *pattern.SuperTypeRefPattern, t *syntax.Tree, n *syntax.Node) pattern.Level {
	if n.Kind != syntax.TypeRef || n.Context&pattern.SuperTypeRef == 0 || n.Parent == syntax.NoNode {
		return pattern.Impossible
	}
	decl := t.Node(n.Parent)
	if decl.Kind != syntax.TypeDecl || !p.Rule().Match(p.Simple, n.Name) {
		return pattern.Impossible
	}
	return shape(p, p.MatchesRelation(relation(decl, n)))
}

// relation tells whether a header reference is the superclass of a class or
// a superinterface.
func relation(decl, ref *syntax.Node) pattern.SuperKind {
	if decl.TypeKind != pattern.Interface && decl.Super != "" {
		if pattern.ParseTypeName(decl.Super).Simple == ref.Name {
			return pattern.SuperClasses
		}
	}
	return pattern.SuperInterfaces
}

// enclosingName is the simple name of the type declaring a member.
func enclosingName(t *syntax.Tree, n *syntax.Node) string {
	if n.Enclosing == syntax.NoNode {
		return ""
	}
	return t.Node(n.Enclosing).Name
}

func matchDeclaring(r pattern.MatchRule, want pattern.TypeName, t *syntax.Tree, n *syntax.Node) bool {
	return want.Simple == "" || r.Match(want.Simple, enclosingName(t, n))
}

func matchField(p *pattern.FieldPattern, t *syntax.Tree, n *syntax.Node) pattern.Level {
	r := p.Rule()
	switch n.Kind {
	case syntax.FieldDecl, syntax.EnumConstant:
		ok := p.Limit.Has(pattern.Declarations) &&
			r.Match(p.Name, n.Name) &&
			p.Type.MatchSimple(r, n.Type) &&
			matchDeclaring(r, p.Declaring, t, n)
		return shape(p, ok)
	case syntax.FieldAccess:
		return shape(p, p.Limit.Has(pattern.References) && r.Match(p.Name, n.Name))
	case syntax.NameRef:
		return shape(p, p.Limit.Has(pattern.References) && len(matchingSegments(r, p.Name, n)) > 0)
	case syntax.MemberImport:
		return imported(p.Limit.Has(pattern.References) && r.Match(p.Name, n.Name))
	}
	return pattern.Impossible
}

// imported is the structural level of a static import member, which may
// name a field or a method until the imported type is resolved.
func imported(ok bool) pattern.Level {
	if !ok {
		return pattern.Impossible
	}
	return pattern.Possible
}

func matchMethod(p *pattern.MethodPattern, n *syntax.Node) pattern.Level {
	r := p.Rule()
	switch n.Kind {
	case syntax.MethodDecl:
		ok := p.Limit.Has(pattern.Declarations) &&
			r.Match(p.Name, n.Name) &&
			p.MatchesArity(n.Arity) &&
			p.Return.MatchSimple(r, n.Type) &&
			matchParams(r, p.Params, n.Params)
		// The declaring type is left to resolution: an override in a
		// subtype still matches, inaccurately.
		return shape(p, ok)
	case syntax.MethodCall:
		return shape(p, p.Limit.Has(pattern.References) && r.Match(p.Name, n.Name) && p.MatchesArity(n.Arity))
	case syntax.MemberImport:
		return imported(p.Limit.Has(pattern.References) && r.Match(p.Name, n.Name))
	}
	return pattern.Impossible
}

func matchParams(r pattern.MatchRule, want []pattern.TypeName, got []syntax.Param) bool {
	for i, w := range want {
		if w.IsZero() {
			continue
		}
		if i >= len(got) || !w.MatchSimple(r, got[i].Type) {
			return false
		}
	}
	return true
}

func matchConstructor(p *pattern.ConstructorPattern, t *syntax.Tree, id syntax.NodeID, n *syntax.Node) pattern.Level {
	r := p.Rule()
	refs := p.Limit.Has(pattern.References)
	switch n.Kind {
	case syntax.ConstructorDecl:
		ok := p.Limit.Has(pattern.Declarations) &&
			r.Match(p.Simple, n.Name) &&
			p.MatchesArity(n.Arity) &&
			matchParams(r, p.Params, n.Params)
		if ok && p.Qualification != "" {
			q := t.QualifiedName(n.Enclosing)
			qual, _ := pattern.SplitQualified(q)
			ok = q != "" && r.MatchQualification(p.Qualification, qual)
		}
		return shape(p, ok)
	case syntax.ConstructorCall:
		return shape(p, refs && r.Match(p.Simple, n.Name) && p.MatchesArity(n.Arity))
	case syntax.ExplicitConstructorCall:
		return shape(p, refs && r.Match(p.Simple, t.ConstructedType(id)) && p.MatchesArity(n.Arity))
	case syntax.EnumConstant:
		return shape(p, refs && r.Match(p.Simple, n.Type) && p.MatchesArity(n.Arity))
	}
	return pattern.Impossible
}

func matchPackageRef(p *pattern.PackageRefPattern, n *syntax.Node) pattern.Level {
	var dotted string
	switch n.Kind {
	case syntax.PackageRef:
		dotted = n.Name
	case syntax.NameRef:
		dotted = n.Qualifier
	default:
		return pattern.Impossible
	}
	if len(matchingPrefixes(p, dotted)) > 0 {
		return pattern.Possible
	}
	return pattern.Impossible
}

// segments splits the dotted name a NameRef or PackageRef spells.
func segments(n *syntax.Node) []string {
	switch n.Kind {
	case syntax.NameRef:
		if n.Qualifier == "" {
			return []string{n.Name}
		}
		return append(strings.Split(n.Qualifier, "."), n.Name)
	case syntax.PackageRef:
		return strings.Split(n.Name, ".")
	}
	return nil
}

// matchingSegments returns the indexes of the segments of n equal to name
// under r.
func matchingSegments(r pattern.MatchRule, name string, n *syntax.Node) []int {
	var out []int
	for i, seg := range segments(n) {
		if r.Match(name, seg) {
			out = append(out, i)
		}
	}
	return out
}

// matchingPrefixes returns, longest first, the segment counts of the
// leading parts of dotted that p matches.
func matchingPrefixes(p *pattern.PackageRefPattern, dotted string) []int {
	if dotted == "" {
		return nil
	}
	segs := strings.Split(dotted, ".")
	var out []int
	for i := len(segs); i > 0; i-- {
		if p.MatchesName(strings.Join(segs[:i], ".")) {
			out = append(out, i)
		}
	}
	return out
}
