// Package syntax is the arena syntax model searched by the locator: a tree of
// declarations and references addressed by NodeID, with method and
// initializer bodies that are materialized on demand.
package syntax

import (
	"fmt"
	"strings"

	"github.com/jward/quarry/internal/pattern"
)

// Kind is the closed set of node kinds.
type Kind uint8

const (
	CompilationUnit Kind = iota
	PackageDecl
	ImportDecl
	TypeDecl
	FieldDecl
	MethodDecl
	ConstructorDecl
	Initializer
	EnumConstant
	TypeRef
	NameRef
	FieldAccess
	MethodCall
	ConstructorCall
	ExplicitConstructorCall
	PackageRef
	LocalVar
	Literal
	ThisExpr
	SuperExpr
	CastExpr
	OtherExpr
	// MemberImport is the member named by a single static import. Name is
	// the member, Qualifier the importing type; whether it is a field or a
	// method is left to resolution.
	MemberImport
)

var kindNames = [...]string{
	CompilationUnit:         "CompilationUnit",
	PackageDecl:             "PackageDecl",
	ImportDecl:              "ImportDecl",
	TypeDecl:                "TypeDecl",
	FieldDecl:               "FieldDecl",
	MethodDecl:              "MethodDecl",
	ConstructorDecl:         "ConstructorDecl",
	Initializer:             "Initializer",
	EnumConstant:            "EnumConstant",
	TypeRef:                 "TypeRef",
	NameRef:                 "NameRef",
	FieldAccess:             "FieldAccess",
	MethodCall:              "MethodCall",
	ConstructorCall:         "ConstructorCall",
	ExplicitConstructorCall: "ExplicitConstructorCall",
	PackageRef:              "PackageRef",
	LocalVar:                "LocalVar",
	Literal:                 "Literal",
	ThisExpr:                "ThisExpr",
	SuperExpr:               "SuperExpr",
	CastExpr:                "CastExpr",
	OtherExpr:               "OtherExpr",
	MemberImport:            "MemberImport",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsDeclaration reports whether nodes of kind k declare an element.
func (k Kind) IsDeclaration() bool {
	switch k {
	case TypeDecl, FieldDecl, MethodDecl, ConstructorDecl, Initializer, EnumConstant:
		return true
	}
	return false
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start, End int
}

// Key packs the span into a single value used to deduplicate nodes that
// error recovery produced twice.
func (s Span) Key() uint64 {
	return uint64(uint32(s.Start))<<32 | uint64(uint32(s.End))
}

// SpanFromKey reverses Key.
func SpanFromKey(k uint64) Span {
	return Span{Start: int(k >> 32), End: int(uint32(k))}
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// NodeID addresses a node in its Tree's arena.
type NodeID int32

// NoNode is the absent node.
const NoNode NodeID = -1

// Param is a declared method or constructor parameter.
type Param struct {
	Name    string
	Type    string
	Varargs bool
}

// BodyState tracks lazy materialization of a declaration body.
type BodyState uint8

const (
	Unparsed BodyState = iota
	Materialized
	// Purged bodies keep their nodes for reporting but are skipped by
	// binding.
	Purged
)

// Body is an unmaterialized method, constructor, initializer or field
// initializer body.
type Body struct {
	Span  Span
	State BodyState
	// Container is the nesting level of nodes inside the body.
	Container pattern.ContainerMask
	// Handle is owned by the front-end that built the tree.
	Handle any
}

// Node is one arena entry. Which fields are set depends on Kind.
type Node struct {
	Kind Kind
	Span Span
	// NameSpan locates the identifier that is reported for the node.
	NameSpan Span
	// Name is the simple name, selector, referenced identifier or, for
	// literals, the literal's type name.
	Name string
	// Qualifier is the written qualification: "com.acme" for a reference
	// written com.acme.Widget, the package for PackageDecl.
	Qualifier string
	// Type is the written type of a field, local, cast or method return.
	Type string
	// Arity counts parameters or arguments; -1 when not applicable.
	Arity   int
	Varargs bool
	Params  []Param
	Static  bool

	// Type declarations. TypeParams is also set on generic methods and
	// constructors.
	TypeKind   pattern.TypeKind
	Super      string
	Interfaces []string
	TypeParams []string

	// Receiver is the qualifying expression of a call or field access,
	// NoNode when unqualified. For an ExplicitConstructorCall Name is
	// "this" or "super".
	Receiver NodeID
	// Container is the nesting level the node occurs at.
	Container pattern.ContainerMask
	// Context records the syntactic positions of a reference.
	Context pattern.FineGrain

	Parent NodeID
	// Enclosing is the innermost enclosing type declaration.
	Enclosing NodeID
	// Member is the innermost enclosing member declaration.
	Member   NodeID
	Children []NodeID
	Body     *Body
}

// Import is an import declaration.
type Import struct {
	// Name is the imported qualified name without a trailing ".*".
	Name     string
	OnDemand bool
	Static   bool
}

// Tree is the arena syntax tree of one document.
type Tree struct {
	Path    string
	Source  []byte
	Package string
	Imports []Import
	Nodes   []Node
	// HasErrors is set when the parser recovered from syntax errors.
	HasErrors bool

	release func()
}

// Root is the compilation unit node.
const Root NodeID = 0

// NewTree creates a tree holding only its compilation unit node.
func NewTree(path string, src []byte) *Tree {
	t := &Tree{Path: path, Source: src}
	t.Nodes = append(t.Nodes, Node{
		Kind:      CompilationUnit,
		Span:      Span{0, len(src)},
		Arity:     -1,
		Receiver:  NoNode,
		Container: pattern.InCompilationUnit,
		Parent:    NoNode,
		Enclosing: NoNode,
		Member:    NoNode,
	})
	return t
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.Nodes[id] }

// Add appends n as the last child of parent and returns its id.
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(t.Nodes))
	n.Parent = parent
	n.Children = nil
	t.Nodes = append(t.Nodes, n)
	if parent != NoNode {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// Text returns the source text of a span.
func (t *Tree) Text(s Span) string {
	if s.Start < 0 || s.End > len(t.Source) || s.Start > s.End {
		return ""
	}
	return string(t.Source[s.Start:s.End])
}

// SetRelease installs the function Release calls.
func (t *Tree) SetRelease(fn func()) { t.release = fn }

// Release frees parser resources backing unmaterialized bodies. Bodies that
// were never materialized can no longer be.
func (t *Tree) Release() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
	for i := range t.Nodes {
		if b := t.Nodes[i].Body; b != nil {
			b.Handle = nil
		}
	}
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(id NodeID, fn func(NodeID, *Node) bool) {
	n := &t.Nodes[id]
	if !fn(id, n) {
		return
	}
	// Children may grow during the walk when bodies are materialized.
	for i := 0; i < len(t.Nodes[id].Children); i++ {
		t.Walk(t.Nodes[id].Children[i], fn)
	}
}

// Types returns the type declarations directly under id.
func (t *Tree) Types(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Nodes[id].Children {
		if t.Nodes[c].Kind == TypeDecl {
			out = append(out, c)
		}
	}
	return out
}

// QualifiedName returns the binary-style dotted name of a type declaration:
// package, enclosing type names, then its own name. Local and anonymous
// types yield "".
func (t *Tree) QualifiedName(id NodeID) string {
	names := t.enclosingNames(id)
	if names == nil {
		return ""
	}
	if t.Package == "" {
		return strings.Join(names, ".")
	}
	return t.Package + "." + strings.Join(names, ".")
}

// EnclosingNames returns the dotted names of the types enclosing type
// declaration id, outermost first, excluding id itself.
func (t *Tree) EnclosingNames(id NodeID) string {
	names := t.enclosingNames(id)
	if len(names) <= 1 {
		return ""
	}
	return strings.Join(names[:len(names)-1], ".")
}

func (t *Tree) enclosingNames(id NodeID) []string {
	var names []string
	for cur := id; cur != NoNode; cur = t.Nodes[cur].Enclosing {
		n := &t.Nodes[cur]
		if n.Kind != TypeDecl || n.Name == "" || n.Member != NoNode {
			return nil
		}
		names = append([]string{n.Name}, names...)
	}
	return names
}

// DeclarationOf returns the innermost declaration enclosing id, including id
// itself when it is a declaration.
func (t *Tree) DeclarationOf(id NodeID) NodeID {
	for cur := id; cur != NoNode; cur = t.Nodes[cur].Parent {
		if t.Nodes[cur].Kind.IsDeclaration() {
			return cur
		}
	}
	return NoNode
}

// ConstructedType returns the simple name of the type whose constructor an
// ExplicitConstructorCall invokes: the enclosing type for this(...), its
// superclass for super(...).
func (t *Tree) ConstructedType(id NodeID) string {
	n := &t.Nodes[id]
	if n.Enclosing == NoNode {
		return ""
	}
	enc := &t.Nodes[n.Enclosing]
	switch {
	case n.Name == "this":
		return enc.Name
	case enc.TypeKind == pattern.Enum:
		return "Enum"
	case enc.TypeKind == pattern.Record:
		return "Record"
	case enc.Super == "":
		return "Object"
	}
	return pattern.ParseTypeName(enc.Super).Simple
}
