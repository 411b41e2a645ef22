package binding

import (
	"strings"
	"unicode"

	"github.com/jward/quarry/internal/binary"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

const objectType = "java.lang.Object"

// Provider faults in types the environment has not seen. Lookups that fail
// report not found; the provider logs its own I/O errors.
type Provider interface {
	// SourceType returns the skeleton tree and declaration of a source type.
	SourceType(qualified string) (*syntax.Tree, syntax.NodeID, bool)
	// BinaryType returns a type from a library manifest on the classpath.
	BinaryType(qualified string) *binary.Type
	// IsPackage reports whether name is a package or a package prefix.
	IsPackage(name string) bool
}

// Environment caches bindings for one batch of units. It is not safe for
// concurrent use.
type Environment struct {
	provider Provider
	types    map[string]*TypeBinding
	local    map[localKey]*TypeBinding
	units    map[*syntax.Tree]bool
}

type localKey struct {
	tree *syntax.Tree
	id   syntax.NodeID
}

// NewEnvironment creates an empty environment over p.
func NewEnvironment(p Provider) *Environment {
	e := &Environment{provider: p}
	e.Reset()
	return e
}

// Reset drops every cached binding.
func (e *Environment) Reset() {
	e.types = map[string]*TypeBinding{}
	e.local = map[localKey]*TypeBinding{}
	e.units = map[*syntax.Tree]bool{}
}

// Size returns the number of cached type lookups, hits and misses.
func (e *Environment) Size() int { return len(e.types) + len(e.local) }

// AddUnit registers the named types of a unit so lookups use this tree
// rather than a fresh parse. Units of a batch are added before any is bound.
func (e *Environment) AddUnit(t *syntax.Tree) {
	if e.units[t] {
		return
	}
	e.units[t] = true
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if n.Kind != syntax.TypeDecl {
			return n.Kind == syntax.CompilationUnit
		}
		if q := t.QualifiedName(id); q != "" {
			if e.types[q] == nil {
				e.types[q] = e.fromSource(t, id)
			}
		}
		return true
	})
}

// Type returns the binding of a qualified type, or nil.
func (e *Environment) Type(qualified string) *TypeBinding {
	if tb, ok := e.types[qualified]; ok {
		return tb
	}
	var tb *TypeBinding
	switch {
	case isPrimitive(qualified):
		tb = &TypeBinding{Qualified: qualified, Simple: qualified, Primitive: true}
	default:
		if e.provider != nil {
			if t, id, ok := e.provider.SourceType(qualified); ok {
				tb = e.fromSource(t, id)
			} else if bt := e.provider.BinaryType(qualified); bt != nil {
				tb = e.fromBinary(bt)
			}
		}
		if tb == nil {
			tb = e.platform(qualified)
		}
	}
	e.types[qualified] = tb
	return tb
}

// IsPackage reports whether name denotes a package.
func (e *Environment) IsPackage(name string) bool {
	if name == "" {
		return false
	}
	if isPlatformPackage(name) {
		return true
	}
	return e.provider != nil && e.provider.IsPackage(name)
}

// sourceBinding returns the binding of any type declaration in t, including
// local and anonymous ones.
func (e *Environment) sourceBinding(t *syntax.Tree, id syntax.NodeID) *TypeBinding {
	if q := t.QualifiedName(id); q != "" {
		if tb, ok := e.types[q]; ok && tb != nil && tb.tree == t {
			return tb
		}
	}
	k := localKey{t, id}
	if tb, ok := e.local[k]; ok {
		return tb
	}
	tb := e.fromSource(t, id)
	e.local[k] = tb
	return tb
}

// Enclosing returns the binding of the innermost type declaration around id,
// or of id itself when it declares a type. It does not require BindUnit.
func (e *Environment) Enclosing(t *syntax.Tree, id syntax.NodeID) *TypeBinding {
	typ := enclosingType(t, id)
	if typ == syntax.NoNode {
		return nil
	}
	e.AddUnit(t)
	return e.sourceBinding(t, typ)
}

func (e *Environment) fromSource(t *syntax.Tree, id syntax.NodeID) *TypeBinding {
	n := t.Node(id)
	tb := &TypeBinding{
		Qualified:    t.QualifiedName(id),
		Package:      t.Package,
		Simple:       n.Name,
		Kind:         n.TypeKind,
		TypeParams:   n.TypeParams,
		Anonymous:    n.Name == "",
		superWritten: n.Super,
		ifaceWritten: n.Interfaces,
		env:          e,
		tree:         t,
		decl:         id,
	}
	if tb.Qualified == "" {
		tb.Qualified = n.Name
	}
	tb.superWritten = defaultSuper(tb.Kind, tb.Qualified, tb.superWritten)

	hasCtor := false
	declared := map[string]bool{}
	for _, c := range n.Children {
		m := t.Node(c)
		switch m.Kind {
		case syntax.FieldDecl:
			tb.Fields = append(tb.Fields, &FieldBinding{Declaring: tb, Name: m.Name, Type: m.Type, Static: m.Static, Node: c})
		case syntax.EnumConstant:
			tb.Fields = append(tb.Fields, &FieldBinding{Declaring: tb, Name: m.Name, Type: n.Name, Static: true, Node: c})
		case syntax.MethodDecl:
			declared[m.Name] = true
			tb.Methods = append(tb.Methods, &MethodBinding{
				Declaring: tb, Name: m.Name, Params: paramTypes(m.Params), Return: m.Type,
				Varargs: m.Varargs, Static: m.Static, TypeParams: m.TypeParams, Node: c,
			})
		case syntax.ConstructorDecl:
			hasCtor = true
			tb.Methods = append(tb.Methods, &MethodBinding{
				Declaring: tb, Name: n.Name, Params: paramTypes(m.Params), Constructor: true,
				Varargs: m.Varargs, TypeParams: m.TypeParams, Node: c,
			})
		}
	}
	switch tb.Kind {
	case pattern.Class, pattern.Enum:
		if !hasCtor {
			tb.Methods = append(tb.Methods, &MethodBinding{Declaring: tb, Name: n.Name, Constructor: true, Node: syntax.NoNode})
		}
	case pattern.Record:
		if !hasCtor {
			tb.Methods = append(tb.Methods, &MethodBinding{
				Declaring: tb, Name: n.Name, Params: paramTypes(n.Params), Constructor: true, Varargs: n.Varargs, Node: syntax.NoNode,
			})
		}
		for _, p := range n.Params {
			if !declared[p.Name] {
				tb.Methods = append(tb.Methods, &MethodBinding{Declaring: tb, Name: p.Name, Return: p.Type, Node: syntax.NoNode})
			}
		}
	}
	if tb.Kind == pattern.Enum {
		tb.Methods = append(tb.Methods,
			&MethodBinding{Declaring: tb, Name: "values", Return: n.Name + "[]", Static: true, Node: syntax.NoNode},
			&MethodBinding{Declaring: tb, Name: "valueOf", Params: []string{"String"}, Return: n.Name, Static: true, Node: syntax.NoNode},
		)
	}
	return tb
}

func (e *Environment) fromBinary(bt *binary.Type) *TypeBinding {
	tb := &TypeBinding{
		Qualified:    bt.Qualified(),
		Package:      bt.Package(),
		Simple:       bt.Simple(),
		Kind:         bt.TypeKind(),
		Binary:       true,
		superWritten: bt.Super,
		ifaceWritten: bt.Interfaces,
		env:          e,
		decl:         syntax.NoNode,
	}
	tb.superWritten = defaultSuper(tb.Kind, tb.Qualified, tb.superWritten)
	for _, f := range bt.Fields {
		tb.Fields = append(tb.Fields, &FieldBinding{Declaring: tb, Name: f.Name, Type: f.Type, Static: f.Static, Node: syntax.NoNode})
	}
	for _, m := range bt.Methods {
		tb.Methods = append(tb.Methods, &MethodBinding{
			Declaring: tb, Name: m.Name, Params: m.Params, Return: m.Returns, Varargs: m.Varargs, Static: m.Static, Node: syntax.NoNode,
		})
	}
	for _, c := range bt.Constructors {
		tb.Methods = append(tb.Methods, &MethodBinding{
			Declaring: tb, Name: tb.Simple, Params: c.Params, Constructor: true, Varargs: c.Varargs, Node: syntax.NoNode,
		})
	}
	return tb
}

func defaultSuper(kind pattern.TypeKind, qualified, written string) string {
	if written != "" {
		return written
	}
	switch kind {
	case pattern.Enum:
		return "java.lang.Enum"
	case pattern.Record:
		return "java.lang.Record"
	case pattern.Class:
		if qualified != objectType {
			return objectType
		}
	}
	return ""
}

func paramTypes(ps []syntax.Param) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Type
	}
	return out
}

// resolveWritten resolves a type written in the scope of declaring: its
// members, type parameters and imports.
func (e *Environment) resolveWritten(declaring *TypeBinding, written string) *TypeBinding {
	if written == "" {
		return nil
	}
	if declaring != nil && declaring.tree != nil {
		return e.ResolveIn(declaring.tree, declaring.decl, written)
	}
	tn := pattern.ParseTypeName(written)
	name := tn.Qualified()
	if declaring != nil {
		for _, tp := range declaring.TypeParams {
			if tp == name {
				return typeVar(name)
			}
		}
	}
	if tn.Qualification != "" {
		return e.qualifiedType(name)
	}
	if isPrimitive(name) {
		return e.Type(name)
	}
	if declaring != nil {
		if m := declaring.Member(name); m != nil {
			return m
		}
		if tb := e.Type(qualifyIn(declaring.Package, name)); tb != nil {
			return tb
		}
	}
	return e.Type("java.lang." + name)
}

// resolveSuper resolves a supertype written in the header of a source type.
// The header sees the scope around the declaration, not the type's members.
func (e *Environment) resolveSuper(tb *TypeBinding, written string) *TypeBinding {
	if tb.tree == nil {
		return e.resolveWritten(tb, written)
	}
	n := tb.tree.Node(tb.decl)
	for _, tp := range n.TypeParams {
		if tp == pattern.ParseTypeName(written).Qualified() {
			return typeVar(tp)
		}
	}
	return e.ResolveIn(tb.tree, n.Parent, written)
}

// ResolveIn resolves a written type as seen from node at of tree t. Array
// dimensions and type arguments are ignored.
func (e *Environment) ResolveIn(t *syntax.Tree, at syntax.NodeID, written string) *TypeBinding {
	e.AddUnit(t)
	tn := pattern.ParseTypeName(written)
	if tn.Simple == "" {
		return nil
	}
	if tn.Qualification == "" {
		return e.resolveSimple(t, at, tn.Simple)
	}
	return e.resolveQualified(t, at, tn.Qualified())
}

func (e *Environment) resolveSimple(t *syntax.Tree, at syntax.NodeID, name string) *TypeBinding {
	if isPrimitive(name) {
		return e.Type(name)
	}
	for cur := at; cur != syntax.NoNode; cur = t.Node(cur).Parent {
		for _, tp := range t.Node(cur).TypeParams {
			if tp == name {
				return typeVar(name)
			}
		}
	}
	if tb := e.localType(t, memberOf(t, at), name); tb != nil {
		return tb
	}
	// Enclosing types, their member types and the local types around local
	// classes, innermost first.
	for typ := enclosingType(t, at); typ != syntax.NoNode; typ = t.Node(typ).Enclosing {
		n := t.Node(typ)
		if n.Name == name {
			return e.sourceBinding(t, typ)
		}
		for _, c := range n.Children {
			if m := t.Node(c); m.Kind == syntax.TypeDecl && m.Name == name {
				return e.sourceBinding(t, c)
			}
		}
		if tb := e.inheritedMember(e.sourceBinding(t, typ), name); tb != nil {
			return tb
		}
		if tb := e.localType(t, n.Member, name); tb != nil {
			return tb
		}
	}
	for _, id := range t.Types(syntax.Root) {
		if t.Node(id).Name == name {
			return e.sourceBinding(t, id)
		}
	}
	for _, imp := range t.Imports {
		if !imp.Static && !imp.OnDemand && (imp.Name == name || strings.HasSuffix(imp.Name, "."+name)) {
			return e.qualifiedType(imp.Name)
		}
	}
	if tb := e.Type(qualifyIn(t.Package, name)); tb != nil {
		return tb
	}
	for _, imp := range t.Imports {
		if imp.OnDemand && !imp.Static {
			if tb := e.Type(imp.Name + "." + name); tb != nil {
				return tb
			}
			if outer := e.Type(imp.Name); outer != nil {
				if tb := outer.Member(name); tb != nil {
					return tb
				}
			}
		}
	}
	return e.Type("java.lang." + name)
}

// localType finds a local class declared in the body of member.
func (e *Environment) localType(t *syntax.Tree, member syntax.NodeID, name string) *TypeBinding {
	if member == syntax.NoNode {
		return nil
	}
	for _, c := range t.Node(member).Children {
		if m := t.Node(c); m.Kind == syntax.TypeDecl && m.Name == name {
			return e.sourceBinding(t, c)
		}
	}
	return nil
}

// inheritedMember finds a member type declared by a supertype of tb.
func (e *Environment) inheritedMember(tb *TypeBinding, name string) *TypeBinding {
	if tb == nil {
		return nil
	}
	for _, s := range tb.Supertypes() {
		if s.Platform {
			continue
		}
		if m := s.Member(name); m != nil {
			return m
		}
	}
	return nil
}

func (e *Environment) resolveQualified(t *syntax.Tree, at syntax.NodeID, dotted string) *TypeBinding {
	segs := strings.Split(dotted, ".")
	// A leading type name makes every later segment a member type.
	if first := e.resolveSimple(t, at, segs[0]); first != nil && !first.TypeVar && !first.Primitive {
		cur := first
		for _, s := range segs[1:] {
			if cur = cur.Member(s); cur == nil {
				break
			}
		}
		if cur != nil {
			return cur
		}
	}
	return e.qualifiedType(dotted)
}

// qualifiedType looks up a fully qualified name. Platform names outside the
// stub table are synthesized here, where the qualification is explicit.
func (e *Environment) qualifiedType(qualified string) *TypeBinding {
	if tb := e.Type(qualified); tb != nil {
		return tb
	}
	tb := syntheticPlatform(e, qualified)
	if tb != nil {
		e.types[qualified] = tb
	}
	return tb
}

// PackagePrefix returns the longest leading part of a dotted name that is a
// package, provided the segment after it is not resolved as a type first.
func (e *Environment) PackagePrefix(t *syntax.Tree, at syntax.NodeID, dotted string) string {
	segs := strings.Split(dotted, ".")
	if tb := e.resolveSimple(t, at, segs[0]); tb != nil && !tb.TypeVar {
		return ""
	}
	best := ""
	for i := 1; i <= len(segs); i++ {
		p := strings.Join(segs[:i], ".")
		if i < len(segs) && e.Type(p) != nil {
			break
		}
		if e.IsPackage(p) {
			best = p
		}
	}
	return best
}

// memberOf returns the member declaration whose body contains at, or at
// itself when it is a member declaration.
func memberOf(t *syntax.Tree, at syntax.NodeID) syntax.NodeID {
	if at == syntax.NoNode {
		return syntax.NoNode
	}
	n := t.Node(at)
	switch n.Kind {
	case syntax.MethodDecl, syntax.ConstructorDecl, syntax.Initializer, syntax.FieldDecl, syntax.EnumConstant:
		return at
	case syntax.TypeDecl, syntax.CompilationUnit:
		return syntax.NoNode
	}
	return n.Member
}

func typeVar(name string) *TypeBinding {
	return &TypeBinding{Qualified: name, Simple: name, TypeVar: true}
}

func enclosingType(t *syntax.Tree, at syntax.NodeID) syntax.NodeID {
	if at == syntax.NoNode {
		return syntax.NoNode
	}
	n := t.Node(at)
	if n.Kind == syntax.TypeDecl {
		return at
	}
	return n.Enclosing
}

func qualifyIn(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func isPrimitive(name string) bool {
	switch name {
	case "int", "long", "short", "byte", "char", "boolean", "float", "double", "void":
		return true
	}
	return false
}

func isUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
