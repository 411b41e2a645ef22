// Package pattern models search queries: what kind of element is sought, how
// names are compared, which shape constraints apply, how the query maps onto
// index keys and whether symbol resolution is needed to decide a match.
package pattern

import (
	"fmt"
	"strings"
)

// Kind is the closed set of pattern kinds.
type Kind uint8

const (
	KindTypeDecl Kind = iota + 1
	KindTypeRef
	KindField
	KindMethod
	KindConstructor
	KindPackageRef
	KindPackageDecl
	KindSuperTypeRef
	KindOr
	KindAnd
)

var kindNames = map[Kind]string{
	KindTypeDecl:     "type-decl",
	KindTypeRef:      "type-ref",
	KindField:        "field",
	KindMethod:       "method",
	KindConstructor:  "constructor",
	KindPackageRef:   "package-ref",
	KindPackageDecl:  "package-decl",
	KindSuperTypeRef: "super-type-ref",
	KindOr:           "or",
	KindAnd:          "and",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Level is the confidence assigned to a candidate. The order is total:
// Impossible < Inaccurate < Possible < Accurate.
type Level int8

const (
	Impossible Level = iota
	Inaccurate
	Possible
	Accurate
)

func (l Level) String() string {
	switch l {
	case Impossible:
		return "IMPOSSIBLE"
	case Inaccurate:
		return "INACCURATE"
	case Possible:
		return "POSSIBLE"
	case Accurate:
		return "ACCURATE"
	}
	return fmt.Sprintf("level(%d)", int8(l))
}

// Limit restricts member patterns to declarations, references or both.
type Limit uint8

const (
	Declarations Limit = 1 << iota
	References
	AllOccurrences = Declarations | References
)

// Has reports whether l includes other.
func (l Limit) Has(other Limit) bool { return l&other != 0 }

// ParseLimit converts "decl", "ref" or "all" to a Limit.
func ParseLimit(s string) (Limit, error) {
	switch strings.ToLower(s) {
	case "decl", "declarations", "declaration":
		return Declarations, nil
	case "ref", "refs", "references", "reference":
		return References, nil
	case "", "all":
		return AllOccurrences, nil
	}
	return 0, fmt.Errorf("unknown limit %q", s)
}

// ContainerMask is the set of nesting levels a pattern may match in.
type ContainerMask uint8

const (
	InCompilationUnit ContainerMask = 1 << iota
	InClass
	InMethod
	InField

	AllContainers = InCompilationUnit | InClass | InMethod | InField
)

// Permits reports whether a node at nesting level c may be reported.
func (m ContainerMask) Permits(c ContainerMask) bool { return m&c != 0 }

// FineGrain restricts references to particular syntactic contexts. A zero
// value means no restriction.
type FineGrain uint32

const (
	FieldTypeRef FineGrain = 1 << iota
	LocalVarTypeRef
	ParamTypeRef
	SuperTypeRef
	ThrowsTypeRef
	CastTypeRef
	CatchTypeRef
	CreationTypeRef
	ReturnTypeRef
	ImportTypeRef
	AnnotationTypeRef
	TypeArgumentRef
	TypeBoundRef
	InstanceofTypeRef
	SuperQualified
	Qualified
	ThisQualified
	ImplicitThis
)

var fineGrainNames = map[string]FineGrain{
	"field-type":      FieldTypeRef,
	"local-var-type":  LocalVarTypeRef,
	"param-type":      ParamTypeRef,
	"supertype":       SuperTypeRef,
	"throws":          ThrowsTypeRef,
	"cast":            CastTypeRef,
	"catch":           CatchTypeRef,
	"creation":        CreationTypeRef,
	"return-type":     ReturnTypeRef,
	"import":          ImportTypeRef,
	"annotation":      AnnotationTypeRef,
	"type-argument":   TypeArgumentRef,
	"type-bound":      TypeBoundRef,
	"instanceof":      InstanceofTypeRef,
	"super-qualified": SuperQualified,
	"qualified":       Qualified,
	"this-qualified":  ThisQualified,
	"implicit-this":   ImplicitThis,
}

// ParseFineGrain converts comma separated context names to a FineGrain.
func ParseFineGrain(s string) (FineGrain, error) {
	var fg FineGrain
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bit, ok := fineGrainNames[part]
		if !ok {
			return 0, fmt.Errorf("unknown reference kind %q", part)
		}
		fg |= bit
	}
	return fg, nil
}

// TypeKind distinguishes type declarations.
type TypeKind uint8

const (
	AnyType TypeKind = iota
	Class
	Interface
	Enum
	Annotation
	Record
)

// Char returns the single-character index encoding of the kind.
func (k TypeKind) Char() byte {
	switch k {
	case Class:
		return 'C'
	case Interface:
		return 'I'
	case Enum:
		return 'E'
	case Annotation:
		return 'A'
	case Record:
		return 'R'
	}
	return '*'
}

func typeKindFromChar(c byte) TypeKind {
	switch c {
	case 'C':
		return Class
	case 'I':
		return Interface
	case 'E':
		return Enum
	case 'A':
		return Annotation
	case 'R':
		return Record
	}
	return AnyType
}

func (k TypeKind) String() string {
	switch k {
	case Class:
		return "class"
	case Interface:
		return "interface"
	case Enum:
		return "enum"
	case Annotation:
		return "annotation"
	case Record:
		return "record"
	}
	return "any"
}

// ParseTypeKind converts a type kind name to a TypeKind.
func ParseTypeKind(s string) (TypeKind, error) {
	switch strings.ToLower(s) {
	case "", "any", "type":
		return AnyType, nil
	case "class":
		return Class, nil
	case "interface":
		return Interface, nil
	case "enum":
		return Enum, nil
	case "annotation":
		return Annotation, nil
	case "record":
		return Record, nil
	}
	return AnyType, fmt.Errorf("unknown type kind %q", s)
}

// Pattern is a structured search query.
type Pattern interface {
	Kind() Kind
	Rule() MatchRule
	// NeedsResolve is conservative: it may be true when resolution turns
	// out unnecessary, never false when resolution is required.
	NeedsResolve() bool
	// Mask lists the nesting levels where matches may be reported.
	Mask() ContainerMask
	// FineGrain is the optional reference-kind restriction.
	FineGrain() FineGrain
	String() string
}

// Keyed is implemented by patterns that can be answered from the index with
// a single key prefix. MultiKey patterns expose one per sub-key via Current.
type Keyed interface {
	Pattern
	Categories() []Category
	IndexKeyPrefix() string
	DecodeIndexKey(c Category, raw string) Key
	MatchesDecodedKey(k Key) bool
}

// MultiKey patterns are conjunctions over an ordered list of sub-keys. A
// caller drives them with ResetQuery, then Current, then HasNextQuery until
// it returns false.
type MultiKey interface {
	Pattern
	ResetQuery()
	HasNextQuery() bool
	// Current is the pattern describing the active sub-key.
	Current() Pattern
}

// Composite patterns expose their operands.
type Composite interface {
	Pattern
	Patterns() []Pattern
}

// base carries the fields shared by every leaf pattern.
type base struct {
	rule MatchRule
	fine FineGrain
}

func (b *base) Rule() MatchRule      { return b.rule }
func (b *base) FineGrain() FineGrain { return b.fine }

func (b *base) DecodeIndexKey(c Category, raw string) Key { return DecodeKey(c, raw) }

// Option customizes a pattern at construction.
type Option func(*options)

type options struct {
	rule      MatchRule
	fine      FineGrain
	limit     Limit
	typeKind  TypeKind
	declaring TypeName
	typ       TypeName
	params    []TypeName
	hasParams bool
	arity     int
	varargs   bool
	superKind SuperKind
}

func newOptions(opts []Option) options {
	o := options{rule: ExactCase, limit: AllOccurrences, arity: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRule sets the match rule.
func WithRule(r MatchRule) Option { return func(o *options) { o.rule = r } }

// WithFineGrain restricts references to the given syntactic contexts.
func WithFineGrain(fg FineGrain) Option { return func(o *options) { o.fine = fg } }

// WithLimit restricts member patterns to declarations or references.
func WithLimit(l Limit) Option { return func(o *options) { o.limit = l } }

// WithTypeKind restricts type declarations to one kind.
func WithTypeKind(k TypeKind) Option { return func(o *options) { o.typeKind = k } }

// WithDeclaringType constrains the declaring type of a member.
func WithDeclaringType(t TypeName) Option { return func(o *options) { o.declaring = t } }

// WithType constrains a field type or a method return type.
func WithType(t TypeName) Option { return func(o *options) { o.typ = t } }

// WithParams constrains parameter types; it also fixes the arity. A nil
// TypeName in the list is a wildcard for that position.
func WithParams(params ...TypeName) Option {
	return func(o *options) {
		o.params = params
		o.hasParams = true
		o.arity = len(params)
	}
}

// WithArity constrains only the number of parameters.
func WithArity(n int) Option { return func(o *options) { o.arity = n } }

// WithVarargs marks the last parameter constraint as variable arity.
func WithVarargs() Option { return func(o *options) { o.varargs = true } }

// WithSuperKind restricts super-type references to classes or interfaces.
func WithSuperKind(k SuperKind) Option { return func(o *options) { o.superKind = k } }
