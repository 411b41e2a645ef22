// Package binding resolves names in syntax trees to type, method, field and
// package bindings. Resolution state lives in an Environment that is built
// per batch of compilation units and discarded afterwards.
package binding

import (
	"errors"
	"strings"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// ErrAborted is returned by BindUnit when a unit cannot be bound at all,
// typically because a declared supertype is missing from the classpath. It
// is distinct from a nil binding, which means a single name was not found.
var ErrAborted = errors.New("resolution aborted")

// TypeBinding is a resolved class, interface, enum, annotation or record, a
// primitive, or a type variable.
type TypeBinding struct {
	// Qualified is the dotted name with nested types joined by '.'. Local
	// types use their simple name; anonymous types are empty.
	Qualified  string
	Package    string
	Simple     string
	Kind       pattern.TypeKind
	TypeParams []string

	Binary    bool
	Platform  bool
	Primitive bool
	TypeVar   bool
	Anonymous bool

	Fields  []*FieldBinding
	Methods []*MethodBinding

	superWritten string
	ifaceWritten []string
	hierarchy    bool
	super        *TypeBinding
	ifaces       []*TypeBinding
	missing      []string

	env  *Environment
	tree *syntax.Tree
	decl syntax.NodeID
}

// Super returns the superclass, nil for Object, interfaces, primitives and
// unresolvable supertypes.
func (t *TypeBinding) Super() *TypeBinding {
	t.resolveHierarchy()
	return t.super
}

// Interfaces returns the resolvable direct superinterfaces.
func (t *TypeBinding) Interfaces() []*TypeBinding {
	t.resolveHierarchy()
	return t.ifaces
}

// Missing lists declared supertypes that could not be resolved.
func (t *TypeBinding) Missing() []string {
	t.resolveHierarchy()
	return t.missing
}

func (t *TypeBinding) resolveHierarchy() {
	if t.hierarchy || t.env == nil {
		return
	}
	t.hierarchy = true
	if t.superWritten != "" {
		s := t.env.resolveSuper(t, t.superWritten)
		switch {
		case s == nil:
			t.missing = append(t.missing, t.superWritten)
		case t.Anonymous && s.Kind == pattern.Interface:
			t.ifaces = append(t.ifaces, s)
			t.super = t.env.Type(objectType)
		default:
			t.super = s
		}
	}
	for _, w := range t.ifaceWritten {
		if i := t.env.resolveSuper(t, w); i != nil {
			t.ifaces = append(t.ifaces, i)
		} else {
			t.missing = append(t.missing, w)
		}
	}
}

// Source returns the tree and declaration node of a source type.
func (t *TypeBinding) Source() (*syntax.Tree, syntax.NodeID, bool) {
	return t.tree, t.decl, t.tree != nil
}

// Supertypes returns every proper supertype, nearest first, without
// duplicates.
func (t *TypeBinding) Supertypes() []*TypeBinding {
	var out []*TypeBinding
	seen := map[*TypeBinding]bool{t: true}
	queue := []*TypeBinding{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		next := cur.Interfaces()
		if s := cur.Super(); s != nil {
			next = append([]*TypeBinding{s}, next...)
		}
		for _, s := range next {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
				queue = append(queue, s)
			}
		}
	}
	return out
}

// IsSubtypeOf reports whether t is qualified or inherits from it.
func (t *TypeBinding) IsSubtypeOf(qualified string) bool {
	if t.Qualified == qualified {
		return true
	}
	if qualified == objectType && !t.Primitive {
		return true
	}
	for _, s := range t.Supertypes() {
		if s.Qualified == qualified {
			return true
		}
	}
	return false
}

// Field looks up a field declared by t or inherited from a supertype.
func (t *TypeBinding) Field(name string) *FieldBinding {
	for _, cur := range append([]*TypeBinding{t}, t.Supertypes()...) {
		for _, f := range cur.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// LookupMethods returns the methods named name that accept arity arguments,
// most derived first, keeping only the most derived of each signature.
// Arity -1 accepts any count.
func (t *TypeBinding) LookupMethods(name string, arity int) []*MethodBinding {
	var out []*MethodBinding
	sigs := map[string]bool{}
	for _, cur := range append([]*TypeBinding{t}, t.Supertypes()...) {
		for _, m := range cur.Methods {
			if m.Constructor || m.Name != name || !m.Accepts(arity) {
				continue
			}
			sig := m.Signature()
			if sigs[sig] {
				continue
			}
			sigs[sig] = true
			out = append(out, m)
		}
	}
	return out
}

// Constructors returns t's constructors accepting arity arguments.
func (t *TypeBinding) Constructors(arity int) []*MethodBinding {
	var out []*MethodBinding
	for _, m := range t.Methods {
		if m.Constructor && m.Accepts(arity) {
			out = append(out, m)
		}
	}
	return out
}

// HasMember reports whether t or a supertype declares a method named name.
func (t *TypeBinding) HasMember(name string) bool {
	return len(t.LookupMethods(name, -1)) > 0
}

// Member returns the binding of a member type, if t declares one.
func (t *TypeBinding) Member(simple string) *TypeBinding {
	if t.env == nil {
		return nil
	}
	if t.tree != nil {
		for _, c := range t.tree.Node(t.decl).Children {
			if n := t.tree.Node(c); n.Kind == syntax.TypeDecl && n.Name == simple {
				return t.env.sourceBinding(t.tree, c)
			}
		}
		return nil
	}
	if t.Qualified == "" || t.Primitive || t.TypeVar {
		return nil
	}
	q := t.Qualified + "." + simple
	if _, ok := platformStubs[q]; t.Platform && !ok {
		return nil
	}
	return t.env.Type(q)
}

// FieldBinding is a resolved field or enum constant.
type FieldBinding struct {
	Declaring *TypeBinding
	Name      string
	// Type is the written type in the declaring type's scope.
	Type   string
	Static bool

	Node syntax.NodeID
}

// ResolvedType resolves the field's declared type.
func (f *FieldBinding) ResolvedType() *TypeBinding {
	if f.Declaring == nil || f.Declaring.env == nil {
		return nil
	}
	return f.Declaring.env.resolveWritten(f.Declaring, f.Type)
}

// MethodBinding is a resolved method or constructor.
type MethodBinding struct {
	Declaring *TypeBinding
	Name      string
	// Params and Return are written types in the declaring type's scope.
	Params      []string
	Return      string
	Constructor bool
	Varargs     bool
	Static      bool
	TypeParams  []string

	Node syntax.NodeID
}

// Accepts reports whether n arguments can be passed.
func (m *MethodBinding) Accepts(n int) bool {
	switch {
	case n < 0:
		return true
	case m.Varargs:
		return n >= len(m.Params)-1
	}
	return n == len(m.Params)
}

// Signature is the name with erased parameter simple names.
func (m *MethodBinding) Signature() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		tn := pattern.ParseTypeName(p)
		parts[i] = tn.Simple + strings.Repeat("[]", tn.Dims)
	}
	return m.Name + "(" + strings.Join(parts, ",") + ")"
}

// ResolvedReturn resolves the declared return type. Constructors return the
// declaring type.
func (m *MethodBinding) ResolvedReturn() *TypeBinding {
	if m.Constructor {
		return m.Declaring
	}
	return m.resolve(m.Return)
}

// ResolvedParam resolves the declared type of parameter i.
func (m *MethodBinding) ResolvedParam(i int) *TypeBinding {
	if i < 0 || i >= len(m.Params) {
		return nil
	}
	return m.resolve(m.Params[i])
}

func (m *MethodBinding) resolve(written string) *TypeBinding {
	if m.Declaring == nil || m.Declaring.env == nil || written == "" {
		return nil
	}
	for _, tp := range m.TypeParams {
		if pattern.ParseTypeName(written).Qualified() == tp {
			return &TypeBinding{Qualified: tp, Simple: tp, TypeVar: true}
		}
	}
	return m.Declaring.env.resolveWritten(m.Declaring, written)
}

// MeaningKind classifies one segment of an ambiguous name.
type MeaningKind uint8

const (
	Unknown MeaningKind = iota
	Local
	Field
	Type
	Package
)

// Meaning is what one segment of a dotted name denotes.
type Meaning struct {
	Kind    MeaningKind
	Field   *FieldBinding
	Type    *TypeBinding
	Package string
	// Value is the static type of a local or field segment.
	Value *TypeBinding
}
