package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// memberMask is the container mask shared by field, method and constructor
// patterns: declarations live at class level. References also occur in
// declaration annotations and static imports, outside any body.
func memberMask(l Limit) ContainerMask {
	var m ContainerMask
	if l.Has(Declarations) {
		m |= InClass
	}
	if l.Has(References) {
		m |= AllContainers
	}
	return m
}

func memberCategories(l Limit, decl, ref Category) []Category {
	var cats []Category
	if l.Has(Declarations) {
		cats = append(cats, decl)
	}
	if l.Has(References) {
		cats = append(cats, ref)
	}
	return cats
}

// FieldPattern finds field declarations and references.
type FieldPattern struct {
	base
	Name      string
	Declaring TypeName
	Type      TypeName
	Limit     Limit
}

// NewField builds a field pattern.
func NewField(name string, opts ...Option) *FieldPattern {
	o := newOptions(opts)
	return &FieldPattern{
		base:      base{rule: o.rule, fine: o.fine},
		Name:      name,
		Declaring: o.declaring,
		Type:      o.typ,
		Limit:     o.limit,
	}
}

func (p *FieldPattern) Kind() Kind { return KindField }

// NeedsResolve is true for constrained patterns and for any pattern that
// includes references, since a bare name in a body may be a local variable.
func (p *FieldPattern) NeedsResolve() bool {
	return !p.Declaring.IsZero() || !p.Type.IsZero() || p.Limit.Has(References)
}

func (p *FieldPattern) Mask() ContainerMask { return memberMask(p.Limit) }

func (p *FieldPattern) Categories() []Category {
	return memberCategories(p.Limit, CatFieldDecl, CatRef)
}

func (p *FieldPattern) IndexKeyPrefix() string { return p.rule.IndexPrefix(p.Name) }

func (p *FieldPattern) MatchesDecodedKey(k Key) bool {
	return p.rule.Match(p.Name, k.Name)
}

func (p *FieldPattern) String() string {
	return fmt.Sprintf("field %s%s type=%s limit=%d rule=%s",
		declPrefix(p.Declaring), orStar(p.Name), p.Type, p.Limit, p.rule)
}

// MethodPattern finds method declarations and invocations.
type MethodPattern struct {
	base
	Name      string
	Declaring TypeName
	Return    TypeName
	// Params is nil when parameter types are unconstrained. Arity is -1
	// when the parameter count is unconstrained.
	Params  []TypeName
	Arity   int
	Varargs bool
	Limit   Limit
}

// NewMethod builds a method pattern.
func NewMethod(name string, opts ...Option) *MethodPattern {
	o := newOptions(opts)
	p := &MethodPattern{
		base:      base{rule: o.rule, fine: o.fine},
		Name:      name,
		Declaring: o.declaring,
		Return:    o.typ,
		Arity:     o.arity,
		Varargs:   o.varargs,
		Limit:     o.limit,
	}
	if o.hasParams {
		p.Params = o.params
		if p.Params == nil {
			p.Params = []TypeName{}
		}
	}
	return p
}

func (p *MethodPattern) Kind() Kind { return KindMethod }

func (p *MethodPattern) NeedsResolve() bool {
	return !p.Declaring.IsZero() || !p.Return.IsZero() || constrainedParams(p.Params)
}

func (p *MethodPattern) Mask() ContainerMask { return memberMask(p.Limit) }

func (p *MethodPattern) Categories() []Category {
	return memberCategories(p.Limit, CatMethodDecl, CatMethodRef)
}

// IndexKeyPrefix is the exact selector when there is one. The arity is
// checked on the decoded key, since a static import records none.
func (p *MethodPattern) IndexKeyPrefix() string {
	if p.rule.Mode == Exact && p.Name != "" {
		return p.Name + sep
	}
	return p.rule.IndexPrefix(p.Name)
}

func (p *MethodPattern) MatchesDecodedKey(k Key) bool {
	return p.rule.Match(p.Name, k.Name) && p.MatchesArity(k.Arity)
}

// MatchesArity reports whether n arguments or parameters are compatible.
// Unknown arity (-1) always matches.
func (p *MethodPattern) MatchesArity(n int) bool {
	return arityMatches(p.Arity, p.Varargs, n)
}

func (p *MethodPattern) String() string {
	return fmt.Sprintf("method %s%s(%s) returns=%s limit=%d rule=%s",
		declPrefix(p.Declaring), orStar(p.Name), paramString(p.Params, p.Arity), p.Return, p.Limit, p.rule)
}

// ConstructorPattern finds constructor declarations, instance creations and
// explicit this(...)/super(...) calls.
type ConstructorPattern struct {
	base
	// Simple is the constructed type's simple name.
	Simple        string
	Qualification string
	Params        []TypeName
	Arity         int
	Varargs       bool
	Limit         Limit
}

// NewConstructor builds a constructor pattern from a possibly qualified
// type name.
func NewConstructor(typeName string, opts ...Option) *ConstructorPattern {
	o := newOptions(opts)
	qual, simple := SplitQualified(typeName)
	p := &ConstructorPattern{
		base:          base{rule: o.rule, fine: o.fine},
		Simple:        simple,
		Qualification: qual,
		Arity:         o.arity,
		Varargs:       o.varargs,
		Limit:         o.limit,
	}
	if o.hasParams {
		p.Params = o.params
		if p.Params == nil {
			p.Params = []TypeName{}
		}
	}
	return p
}

func (p *ConstructorPattern) Kind() Kind { return KindConstructor }

func (p *ConstructorPattern) NeedsResolve() bool {
	return p.Qualification != "" || constrainedParams(p.Params)
}

// Mask adds InClass for references too: enum constants create instances at
// class level.
func (p *ConstructorPattern) Mask() ContainerMask { return memberMask(p.Limit) }

func (p *ConstructorPattern) Categories() []Category {
	return memberCategories(p.Limit, CatConstructorDecl, CatConstructorRef)
}

func (p *ConstructorPattern) IndexKeyPrefix() string {
	if p.rule.Mode == Exact && p.Simple != "" {
		if p.Arity >= 0 && !p.Varargs {
			return ConstructorRefKey(p.Simple, p.Arity)
		}
		return p.Simple + sep
	}
	return p.rule.IndexPrefix(p.Simple)
}

func (p *ConstructorPattern) MatchesDecodedKey(k Key) bool {
	return p.rule.Match(p.Simple, k.Name) && p.MatchesArity(k.Arity)
}

func (p *ConstructorPattern) MatchesArity(n int) bool {
	return arityMatches(p.Arity, p.Varargs, n)
}

func (p *ConstructorPattern) String() string {
	return fmt.Sprintf("constructor %s(%s) limit=%d rule=%s",
		qualify(p.Qualification, p.Simple), paramString(p.Params, p.Arity), p.Limit, p.rule)
}

func arityMatches(want int, varargs bool, n int) bool {
	if want < 0 || n < 0 {
		return true
	}
	if varargs {
		return n >= want-1
	}
	return n == want
}

func constrainedParams(params []TypeName) bool {
	for _, t := range params {
		if !t.IsZero() {
			return true
		}
	}
	return false
}

func declPrefix(t TypeName) string {
	if t.IsZero() {
		return ""
	}
	return t.String() + "#"
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func paramString(params []TypeName, arity int) string {
	if params == nil {
		if arity < 0 {
			return "..."
		}
		return "arity=" + strconv.Itoa(arity)
	}
	parts := make([]string, len(params))
	for i, t := range params {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}
