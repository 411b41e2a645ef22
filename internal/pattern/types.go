package pattern

import "fmt"

// TypeDeclPattern finds type declarations.
type TypeDeclPattern struct {
	base
	Simple string
	// Qualification is the package, optionally followed by enclosing type
	// names ("com.acme.Outer").
	Qualification string
	TypeKind      TypeKind
}

// NewTypeDecl builds a type declaration pattern from a possibly qualified
// name. Only the last segment is matched with the rule's mode.
func NewTypeDecl(name string, opts ...Option) *TypeDeclPattern {
	o := newOptions(opts)
	qual, simple := SplitQualified(name)
	return &TypeDeclPattern{
		base:          base{rule: o.rule, fine: o.fine},
		Simple:        simple,
		Qualification: qual,
		TypeKind:      o.typeKind,
	}
}

func (p *TypeDeclPattern) Kind() Kind { return KindTypeDecl }

// NeedsResolve is false: package and enclosing names are known from the
// declaration itself.
func (p *TypeDeclPattern) NeedsResolve() bool     { return false }
func (p *TypeDeclPattern) Mask() ContainerMask    { return InCompilationUnit | InClass | InMethod }
func (p *TypeDeclPattern) Categories() []Category { return []Category{CatTypeDecl} }
func (p *TypeDeclPattern) IndexKeyPrefix() string {
	return p.rule.IndexPrefix(p.Simple)
}

func (p *TypeDeclPattern) MatchesDecodedKey(k Key) bool {
	if !p.rule.Match(p.Simple, k.Name) {
		return false
	}
	if p.TypeKind != AnyType && k.TypeKind != p.TypeKind {
		return false
	}
	return p.rule.MatchQualification(p.Qualification, k.Qualification())
}

// MatchesKind reports whether a declaration of kind k satisfies the filter.
func (p *TypeDeclPattern) MatchesKind(k TypeKind) bool {
	return p.TypeKind == AnyType || p.TypeKind == k
}

func (p *TypeDeclPattern) String() string {
	return fmt.Sprintf("type-decl %s kind=%s rule=%s", qualify(p.Qualification, p.Simple), p.TypeKind, p.rule)
}

// TypeRefPattern finds references to a type.
type TypeRefPattern struct {
	base
	Simple        string
	Qualification string
}

// NewTypeRef builds a type reference pattern from a possibly qualified name.
func NewTypeRef(name string, opts ...Option) *TypeRefPattern {
	o := newOptions(opts)
	qual, simple := SplitQualified(name)
	return &TypeRefPattern{
		base:          base{rule: o.rule, fine: o.fine},
		Simple:        simple,
		Qualification: qual,
	}
}

func (p *TypeRefPattern) Kind() Kind { return KindTypeRef }

// NeedsResolve is true when a qualification must be checked against the
// referenced type's package.
func (p *TypeRefPattern) NeedsResolve() bool     { return p.Qualification != "" }
func (p *TypeRefPattern) Mask() ContainerMask    { return AllContainers }
func (p *TypeRefPattern) Categories() []Category { return []Category{CatRef} }
func (p *TypeRefPattern) IndexKeyPrefix() string {
	return p.rule.IndexPrefix(p.Simple)
}

func (p *TypeRefPattern) MatchesDecodedKey(k Key) bool {
	return p.rule.Match(p.Simple, k.Name)
}

func (p *TypeRefPattern) String() string {
	return fmt.Sprintf("type-ref %s rule=%s", qualify(p.Qualification, p.Simple), p.rule)
}

// SuperTypeRefPattern finds references to a type in extends and implements
// clauses.
type SuperTypeRefPattern struct {
	base
	Simple        string
	Qualification string
	SuperKind     SuperKind
}

// NewSuperTypeRef builds a super-type reference pattern.
func NewSuperTypeRef(name string, opts ...Option) *SuperTypeRefPattern {
	o := newOptions(opts)
	qual, simple := SplitQualified(name)
	return &SuperTypeRefPattern{
		base:          base{rule: o.rule, fine: o.fine},
		Simple:        simple,
		Qualification: qual,
		SuperKind:     o.superKind,
	}
}

func (p *SuperTypeRefPattern) Kind() Kind             { return KindSuperTypeRef }
func (p *SuperTypeRefPattern) NeedsResolve() bool     { return p.Qualification != "" }
func (p *SuperTypeRefPattern) Mask() ContainerMask    { return AllContainers }
func (p *SuperTypeRefPattern) Categories() []Category { return []Category{CatSuperRef} }
func (p *SuperTypeRefPattern) IndexKeyPrefix() string {
	return p.rule.IndexPrefix(p.Simple)
}

func (p *SuperTypeRefPattern) MatchesDecodedKey(k Key) bool {
	if !p.rule.Match(p.Simple, k.SuperName) {
		return false
	}
	return p.MatchesRelation(k.Relation)
}

// MatchesRelation applies the class/interface restriction.
func (p *SuperTypeRefPattern) MatchesRelation(rel SuperKind) bool {
	return p.SuperKind == AllSupers || p.SuperKind == rel
}

func (p *SuperTypeRefPattern) String() string {
	return fmt.Sprintf("super-type-ref %s rule=%s", qualify(p.Qualification, p.Simple), p.rule)
}

func qualify(qual, simple string) string {
	if simple == "" {
		simple = "*"
	}
	if qual == "" {
		return simple
	}
	return qual + "." + simple
}
