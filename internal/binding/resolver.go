package binding

import (
	"fmt"
	"strings"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// Resolver answers binding queries for the nodes of one unit. It shares the
// environment of its batch.
type Resolver struct {
	env *Environment
	t   *syntax.Tree

	types    map[syntax.NodeID]*TypeBinding
	meanings map[syntax.NodeID][]Meaning
	active   map[syntax.NodeID]bool
}

// BindUnit prepares t for resolution. It returns ErrAborted when a declared
// supertype of one of the unit's types cannot be found.
func (e *Environment) BindUnit(t *syntax.Tree) (*Resolver, error) {
	e.AddUnit(t)
	var missing string
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if missing != "" {
			return false
		}
		switch n.Kind {
		case syntax.CompilationUnit:
			return true
		case syntax.TypeDecl:
			if m := e.sourceBinding(t, id).Missing(); len(m) > 0 {
				missing = m[0]
				return false
			}
			return true
		}
		return false
	})
	if missing != "" {
		return nil, fmt.Errorf("bind %s: supertype %s: %w", t.Path, missing, ErrAborted)
	}
	return &Resolver{
		env:      e,
		t:        t,
		types:    map[syntax.NodeID]*TypeBinding{},
		meanings: map[syntax.NodeID][]Meaning{},
		active:   map[syntax.NodeID]bool{},
	}, nil
}

// Tree returns the unit being resolved.
func (r *Resolver) Tree() *syntax.Tree { return r.t }

// Environment returns the batch environment.
func (r *Resolver) Environment() *Environment { return r.env }

// purged reports whether id lies in a body excluded from binding. Header
// nodes of a member with a purged body still bind.
func (r *Resolver) purged(id syntax.NodeID) bool {
	at := r.t.Node(id).Span
	for m := r.t.Node(id).Member; m != syntax.NoNode; {
		mn := r.t.Node(m)
		if mn.Body != nil && mn.Body.State == syntax.Purged && mn.Body.Span.Contains(at) {
			return true
		}
		if mn.Enclosing == syntax.NoNode {
			break
		}
		m = r.t.Node(mn.Enclosing).Member
	}
	return false
}

// DeclaringType returns the binding of the type enclosing id, or of id when
// it is a type declaration.
func (r *Resolver) DeclaringType(id syntax.NodeID) *TypeBinding {
	typ := enclosingType(r.t, id)
	if typ == syntax.NoNode {
		return nil
	}
	return r.env.sourceBinding(r.t, typ)
}

// ResolveType returns the type a TypeRef, TypeDecl, ConstructorCall, CastExpr
// or type-denoting NameRef stands for.
func (r *Resolver) ResolveType(id syntax.NodeID) *TypeBinding {
	n := r.t.Node(id)
	switch n.Kind {
	case syntax.TypeDecl:
		return r.env.sourceBinding(r.t, id)
	case syntax.TypeRef:
		written := n.Name
		if n.Qualifier != "" {
			written = n.Qualifier + "." + n.Name
		}
		return r.env.ResolveIn(r.t, id, written)
	case syntax.ConstructorCall, syntax.CastExpr:
		return r.env.ResolveIn(r.t, id, n.Type)
	case syntax.NameRef:
		ms := r.ResolveName(id)
		if last := ms[len(ms)-1]; last.Kind == Type {
			return last.Type
		}
	}
	return nil
}

// ResolvePackage reports the package a PackageRef, PackageDecl or NameRef
// denotes.
func (r *Resolver) ResolvePackage(id syntax.NodeID) (string, bool) {
	n := r.t.Node(id)
	switch n.Kind {
	case syntax.PackageDecl:
		return n.Name, true
	case syntax.PackageRef:
		if r.t.Node(n.Parent).Kind == syntax.ImportDecl {
			// Import names are always fully qualified.
			if r.env.IsPackage(n.Name) && r.env.qualifiedType(n.Name) == nil {
				return n.Name, true
			}
			return "", false
		}
		if p := r.env.PackagePrefix(r.t, id, n.Name); p == n.Name {
			return p, true
		}
	case syntax.NameRef:
		ms := r.ResolveName(id)
		if last := ms[len(ms)-1]; last.Kind == Package {
			return last.Package, true
		}
	}
	return "", false
}

// ResolveName classifies every segment of a possibly qualified NameRef.
func (r *Resolver) ResolveName(id syntax.NodeID) []Meaning {
	if ms, ok := r.meanings[id]; ok {
		return ms
	}
	n := r.t.Node(id)
	var segs []string
	if n.Qualifier != "" {
		segs = strings.Split(n.Qualifier, ".")
	}
	segs = append(segs, n.Name)
	ms := make([]Meaning, len(segs))
	r.meanings[id] = ms
	if r.purged(id) {
		return ms
	}

	ms[0] = r.simpleName(id, segs[0])
	for i := 1; i < len(segs); i++ {
		ms[i] = r.selectName(ms[i-1], segs[i])
	}
	return ms
}

// simpleName classifies the first segment of a name: variable, then type,
// then package.
func (r *Resolver) simpleName(at syntax.NodeID, name string) Meaning {
	if m, ok := r.variable(at, name); ok {
		return m
	}
	if tb := r.env.resolveSimple(r.t, at, name); tb != nil && !tb.TypeVar {
		return Meaning{Kind: Type, Type: tb}
	}
	if r.env.IsPackage(name) {
		return Meaning{Kind: Package, Package: name}
	}
	return Meaning{}
}

func (r *Resolver) selectName(prev Meaning, seg string) Meaning {
	switch prev.Kind {
	case Package:
		q := prev.Package + "." + seg
		if tb := r.env.qualifiedType(q); tb != nil {
			return Meaning{Kind: Type, Type: tb}
		}
		if r.env.IsPackage(q) {
			return Meaning{Kind: Package, Package: q}
		}
	case Type:
		if f := prev.Type.Field(seg); f != nil {
			return Meaning{Kind: Field, Field: f, Value: f.ResolvedType()}
		}
		if tb := prev.Type.Member(seg); tb != nil {
			return Meaning{Kind: Type, Type: tb}
		}
	case Local, Field:
		if prev.Value == nil {
			return Meaning{}
		}
		if f := valueType(r.env, prev.Value).Field(seg); f != nil {
			return Meaning{Kind: Field, Field: f, Value: f.ResolvedType()}
		}
	}
	return Meaning{}
}

// variable finds a local, parameter or field named name visible at at.
// Locals of a body are visible after their declaration; captured locals of
// enclosing bodies are visible from local and anonymous classes.
func (r *Resolver) variable(at syntax.NodeID, name string) (Meaning, bool) {
	ref := r.t.Node(at)
	member := memberOf(r.t, at)
	typ := enclosingType(r.t, at)
	for {
		if member != syntax.NoNode {
			if m, ok := r.local(member, ref.Span.Start, name); ok {
				return m, true
			}
		}
		if typ == syntax.NoNode {
			break
		}
		if f := r.env.sourceBinding(r.t, typ).Field(name); f != nil {
			return Meaning{Kind: Field, Field: f, Value: f.ResolvedType()}, true
		}
		member = r.t.Node(typ).Member
		typ = r.t.Node(typ).Enclosing
	}
	for _, imp := range r.t.Imports {
		if !imp.Static {
			continue
		}
		owner := imp.Name
		if !imp.OnDemand {
			var last string
			owner, last = splitLast(imp.Name)
			if last != name {
				continue
			}
		}
		if tb := r.env.qualifiedType(owner); tb != nil {
			if f := tb.Field(name); f != nil {
				return Meaning{Kind: Field, Field: f, Value: f.ResolvedType()}, true
			}
		}
	}
	return Meaning{}, false
}

// local finds the latest declaration of name in member's body before pos,
// or a parameter of member.
func (r *Resolver) local(member syntax.NodeID, pos int, name string) (Meaning, bool) {
	m := r.t.Node(member)
	found := syntax.NoNode
	for _, c := range m.Children {
		lv := r.t.Node(c)
		if lv.Kind == syntax.LocalVar && lv.Name == name && lv.NameSpan.Start <= pos {
			found = c
		}
	}
	if found != syntax.NoNode {
		return Meaning{Kind: Local, Value: r.TypeOf(found)}, true
	}
	for _, p := range m.Params {
		if p.Name == name {
			return Meaning{Kind: Local, Value: r.env.ResolveIn(r.t, member, p.Type)}, true
		}
	}
	return Meaning{}, false
}

// ImportOwner returns the type a single static import takes its member
// from, or nil when that type is unknown.
func (r *Resolver) ImportOwner(id syntax.NodeID) *TypeBinding {
	n := r.t.Node(id)
	if n.Kind != syntax.MemberImport {
		return nil
	}
	return r.env.qualifiedType(n.Qualifier)
}

// ResolveField returns the field a FieldAccess, NameRef, static import or
// field declaration denotes, or nil.
func (r *Resolver) ResolveField(id syntax.NodeID) *FieldBinding {
	n := r.t.Node(id)
	switch n.Kind {
	case syntax.FieldDecl, syntax.EnumConstant:
		if tb := r.DeclaringType(id); tb != nil {
			for _, f := range tb.Fields {
				if f.Node == id {
					return f
				}
			}
		}
	case syntax.FieldAccess:
		recv := r.TypeOf(n.Receiver)
		if recv == nil {
			return nil
		}
		return valueType(r.env, recv).Field(n.Name)
	case syntax.NameRef:
		ms := r.ResolveName(id)
		if last := ms[len(ms)-1]; last.Kind == Field {
			return last.Field
		}
	case syntax.MemberImport:
		if owner := r.ImportOwner(id); owner != nil {
			return owner.Field(n.Name)
		}
	}
	return nil
}

// ResolveMethods returns the methods or constructors a call or declaration
// may bind to, most specific first. Overloads are narrowed by arity only.
func (r *Resolver) ResolveMethods(id syntax.NodeID) []*MethodBinding {
	n := r.t.Node(id)
	switch n.Kind {
	case syntax.MethodDecl, syntax.ConstructorDecl:
		if tb := r.DeclaringType(id); tb != nil {
			for _, m := range tb.Methods {
				if m.Node == id {
					return []*MethodBinding{m}
				}
			}
		}
	case syntax.MethodCall:
		if r.purged(id) {
			return nil
		}
		return r.methodCall(id, n)
	case syntax.ConstructorCall:
		tb := r.env.ResolveIn(r.t, id, n.Type)
		if tb == nil {
			return nil
		}
		if tb.Kind == pattern.Interface {
			// new Iface() { ... } runs Object's constructor.
			return []*MethodBinding{{Declaring: tb, Name: tb.Simple, Constructor: true, Node: syntax.NoNode}}
		}
		return tb.Constructors(n.Arity)
	case syntax.ExplicitConstructorCall:
		tb := r.DeclaringType(id)
		if tb == nil {
			return nil
		}
		if n.Name == "super" {
			if tb = tb.Super(); tb == nil {
				return nil
			}
		}
		return tb.Constructors(n.Arity)
	case syntax.EnumConstant:
		if tb := r.DeclaringType(id); tb != nil {
			return tb.Constructors(n.Arity)
		}
	case syntax.MemberImport:
		// A static import brings in every overload.
		if owner := r.ImportOwner(id); owner != nil {
			return owner.LookupMethods(n.Name, -1)
		}
	}
	return nil
}

func (r *Resolver) methodCall(id syntax.NodeID, n *syntax.Node) []*MethodBinding {
	if n.Receiver == syntax.NoNode {
		// The innermost enclosing type with a member of that name wins.
		for typ := enclosingType(r.t, id); typ != syntax.NoNode; typ = r.t.Node(typ).Enclosing {
			tb := r.env.sourceBinding(r.t, typ)
			if !tb.HasMember(n.Name) {
				continue
			}
			ms := tb.LookupMethods(n.Name, n.Arity)
			if len(ms) == 0 && tb.Kind == pattern.Interface {
				ms = r.env.Type(objectType).LookupMethods(n.Name, n.Arity)
			}
			return ms
		}
		for _, imp := range r.t.Imports {
			if !imp.Static {
				continue
			}
			owner := imp.Name
			if !imp.OnDemand {
				var last string
				owner, last = splitLast(imp.Name)
				if last != n.Name {
					continue
				}
			}
			if tb := r.env.qualifiedType(owner); tb != nil {
				if ms := tb.LookupMethods(n.Name, n.Arity); len(ms) > 0 {
					return ms
				}
			}
		}
		return nil
	}
	recv := r.TypeOf(n.Receiver)
	if recv == nil {
		return nil
	}
	recv = valueType(r.env, recv)
	ms := recv.LookupMethods(n.Name, n.Arity)
	if len(ms) == 0 && !recv.Primitive {
		ms = r.env.Type(objectType).LookupMethods(n.Name, n.Arity)
	}
	return ms
}

// TypeOf returns the static type of an expression node, or nil when it
// cannot be determined. Array types are reported by their element type.
func (r *Resolver) TypeOf(id syntax.NodeID) *TypeBinding {
	if id == syntax.NoNode {
		return nil
	}
	if tb, ok := r.types[id]; ok {
		return tb
	}
	if r.active[id] {
		return nil
	}
	r.active[id] = true
	tb := r.typeOf(id)
	delete(r.active, id)
	r.types[id] = tb
	return tb
}

func (r *Resolver) typeOf(id syntax.NodeID) *TypeBinding {
	n := r.t.Node(id)
	switch n.Kind {
	case syntax.Literal:
		switch n.Name {
		case "null":
			return nil
		case "String", "Class":
			return r.env.Type("java.lang." + n.Name)
		}
		return r.env.Type(n.Name)
	case syntax.ThisExpr:
		if n.Qualifier != "" {
			return r.env.ResolveIn(r.t, id, n.Qualifier)
		}
		return r.DeclaringType(id)
	case syntax.SuperExpr:
		if tb := r.DeclaringType(id); tb != nil {
			return tb.Super()
		}
	case syntax.CastExpr, syntax.ConstructorCall, syntax.TypeRef:
		return r.ResolveType(id)
	case syntax.LocalVar:
		if n.Type != "" {
			return r.env.ResolveIn(r.t, id, n.Type)
		}
		return r.TypeOf(n.Receiver)
	case syntax.NameRef:
		ms := r.ResolveName(id)
		last := ms[len(ms)-1]
		switch last.Kind {
		case Local, Field:
			return last.Value
		case Type:
			return last.Type
		}
	case syntax.FieldAccess:
		if f := r.ResolveField(id); f != nil {
			return f.ResolvedType()
		}
	case syntax.MethodCall:
		if ms := r.ResolveMethods(id); len(ms) > 0 {
			return ms[0].ResolvedReturn()
		}
	}
	return nil
}

// valueType erases type variables to Object for member lookup.
func valueType(e *Environment, tb *TypeBinding) *TypeBinding {
	if tb.TypeVar {
		if obj := e.Type(objectType); obj != nil {
			return obj
		}
	}
	return tb
}

func splitLast(dotted string) (string, string) {
	i := strings.LastIndexByte(dotted, '.')
	if i < 0 {
		return "", dotted
	}
	return dotted[:i], dotted[i+1:]
}
