package pattern

import (
	"fmt"
	"strings"
)

// PackageRefPattern finds references to a package. Each dotted segment is a
// separate index key; a document must reference all of them.
type PackageRefPattern struct {
	base
	Name     string
	segments []string
	current  int
}

// NewPackageRef builds a package reference pattern for a dotted name.
func NewPackageRef(name string, opts ...Option) *PackageRefPattern {
	o := newOptions(opts)
	p := &PackageRefPattern{base: base{rule: o.rule, fine: o.fine}, Name: name}
	for _, seg := range strings.Split(name, ".") {
		if seg != "" && !HasWildcard(seg) {
			p.segments = append(p.segments, seg)
		}
	}
	if len(p.segments) == 0 {
		// Nothing literal to look up: one wildcard sub-key.
		p.segments = []string{""}
	}
	p.ResetQuery()
	return p
}

func (p *PackageRefPattern) Kind() Kind { return KindPackageRef }

// NeedsResolve is always true: a dotted name in a body may be a field access
// chain rather than a package.
func (p *PackageRefPattern) NeedsResolve() bool  { return true }
func (p *PackageRefPattern) Mask() ContainerMask { return AllContainers }

// ResetQuery starts at the last (most specific) segment.
func (p *PackageRefPattern) ResetQuery() { p.current = len(p.segments) - 1 }

// HasNextQuery advances to the next segment toward the root.
func (p *PackageRefPattern) HasNextQuery() bool {
	if p.current <= 0 {
		return false
	}
	p.current--
	return true
}

func (p *PackageRefPattern) Current() Pattern {
	seg := p.segments[p.current]
	rule := MatchRule{Mode: Exact, CaseSensitive: p.rule.CaseSensitive}
	// The last segment of the written name keeps the caller's mode.
	if p.current == len(p.segments)-1 && !strings.HasSuffix(p.Name, "*") {
		rule.Mode = p.rule.Mode
	}
	return &segmentPattern{base: base{rule: rule}, segment: seg}
}

// Segments returns the literal segments in source order.
func (p *PackageRefPattern) Segments() []string { return p.segments }

// MatchesName compares a resolved or written package name.
func (p *PackageRefPattern) MatchesName(name string) bool {
	if HasWildcard(p.Name) {
		return globMatch(p.Name, name, p.rule.CaseSensitive)
	}
	return p.rule.Match(p.Name, name)
}

func (p *PackageRefPattern) String() string {
	return fmt.Sprintf("package-ref %s rule=%s", p.Name, p.rule)
}

// segmentPattern is one sub-key of a package reference.
type segmentPattern struct {
	base
	segment string
}

func (s *segmentPattern) Kind() Kind             { return KindPackageRef }
func (s *segmentPattern) NeedsResolve() bool     { return true }
func (s *segmentPattern) Mask() ContainerMask    { return AllContainers }
func (s *segmentPattern) Categories() []Category { return []Category{CatRef} }
func (s *segmentPattern) IndexKeyPrefix() string { return s.rule.IndexPrefix(s.segment) }
func (s *segmentPattern) MatchesDecodedKey(k Key) bool {
	return s.rule.Match(s.segment, k.Name)
}
func (s *segmentPattern) String() string { return "segment " + orStar(s.segment) }

// PackageDeclPattern finds package declarations. It is answered from the
// namespace listing, never from the index or syntax trees.
type PackageDeclPattern struct {
	base
	Name string
}

// NewPackageDecl builds a package declaration pattern.
func NewPackageDecl(name string, opts ...Option) *PackageDeclPattern {
	o := newOptions(opts)
	return &PackageDeclPattern{base: base{rule: o.rule, fine: o.fine}, Name: name}
}

func (p *PackageDeclPattern) Kind() Kind          { return KindPackageDecl }
func (p *PackageDeclPattern) NeedsResolve() bool  { return false }
func (p *PackageDeclPattern) Mask() ContainerMask { return InCompilationUnit }

// MatchesSegments matches a package name segment by segment. Wildcard
// segments in the pattern match any single segment; a trailing "**" matches
// any remainder.
func (p *PackageDeclPattern) MatchesSegments(name string) bool {
	if p.Name == "" {
		return true
	}
	if !HasWildcard(p.Name) {
		return p.rule.Match(p.Name, name)
	}
	want := strings.Split(p.Name, ".")
	got := strings.Split(name, ".")
	for i, w := range want {
		if w == "**" {
			return true
		}
		if i >= len(got) {
			return false
		}
		if !globMatch(w, got[i], p.rule.CaseSensitive) {
			return false
		}
	}
	return len(got) == len(want)
}

func (p *PackageDeclPattern) String() string {
	return fmt.Sprintf("package-decl %s rule=%s", orStar(p.Name), p.rule)
}
