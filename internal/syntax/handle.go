package syntax

import (
	"strconv"
	"strings"
)

// Handle returns the element handle of the declaration enclosing id, or of
// id itself when it is a declaration: "pkg.Outer.Inner" for types,
// "pkg.Type#field", "pkg.Type#method(int,String)" for members. Nodes outside
// any declaration get the package name.
func (t *Tree) Handle(id NodeID) string {
	decl := t.DeclarationOf(id)
	if decl == NoNode {
		return t.Package
	}
	n := &t.Nodes[decl]
	if n.Kind == TypeDecl {
		return t.typeHandle(decl)
	}
	owner := t.typeHandle(n.Enclosing)
	switch n.Kind {
	case MethodDecl, ConstructorDecl:
		return owner + "#" + n.Name + "(" + paramList(n.Params) + ")"
	case Initializer:
		if n.Static {
			return owner + "#<clinit>"
		}
		return owner + "#<init>"
	}
	return owner + "#" + n.Name
}

func (t *Tree) typeHandle(id NodeID) string {
	if id == NoNode {
		return t.Package
	}
	if q := t.QualifiedName(id); q != "" {
		return q
	}
	n := &t.Nodes[id]
	outer := t.Package
	if n.Member != NoNode {
		outer = t.Handle(n.Member)
	} else if n.Enclosing != NoNode {
		outer = t.typeHandle(n.Enclosing)
	}
	if n.Name != "" {
		return outer + "$" + n.Name
	}
	// Anonymous types are numbered in source order within their parent.
	ordinal := 0
	for _, c := range t.Nodes[n.Parent].Children {
		if m := &t.Nodes[c]; m.Kind == TypeDecl && m.Name == "" {
			ordinal++
		}
		if c == id {
			break
		}
	}
	return outer + "$" + strconv.Itoa(ordinal)
}

func paramList(ps []Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Type
	}
	return strings.Join(parts, ",")
}
