package java

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

func isTypeNode(n *sitter.Node) bool {
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type", "annotated_type",
		"integral_type", "floating_point_type", "boolean_type", "void_type":
		return true
	}
	return false
}

func isPrimitive(n *sitter.Node) bool {
	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return true
	}
	return false
}

// typeRefs emits the references written in type n under parent and returns
// the reference to the outermost named type, NoNode for primitives.
func (b *builder) typeRefs(parent syntax.NodeID, n *sitter.Node, ctx pattern.FineGrain) syntax.NodeID {
	if n == nil || isPrimitive(n) {
		return syntax.NoNode
	}
	switch n.Type() {
	case "type_identifier", "identifier", "scoped_type_identifier", "scoped_identifier":
		if n.Type() == "type_identifier" && b.text(n) == "var" {
			return syntax.NoNode
		}
		for _, c := range named(n) {
			switch c.Type() {
			case "generic_type":
				b.typeArguments(parent, childOfType(c, "type_arguments"))
			case "marker_annotation", "annotation":
				b.annotation(parent, c)
			}
		}
		return b.typeRefFromSegments(parent, segments(b, n), ctx)
	case "generic_type":
		id := syntax.NoNode
		for _, c := range named(n) {
			if c.Type() == "type_arguments" {
				b.typeArguments(parent, c)
				continue
			}
			id = b.typeRefs(parent, c, ctx)
		}
		return id
	case "array_type":
		return b.typeRefs(parent, n.ChildByFieldName("element"), ctx)
	case "annotated_type":
		id := syntax.NoNode
		for _, c := range named(n) {
			if c.Type() == "marker_annotation" || c.Type() == "annotation" {
				b.annotation(parent, c)
				continue
			}
			id = b.typeRefs(parent, c, ctx)
		}
		return id
	case "type_arguments":
		b.typeArguments(parent, n)
	case "wildcard":
		for _, c := range named(n) {
			b.typeRefs(parent, c, pattern.TypeBoundRef)
		}
	}
	return syntax.NoNode
}

func (b *builder) typeArguments(parent syntax.NodeID, args *sitter.Node) {
	for _, c := range named(args) {
		b.typeRefs(parent, c, pattern.TypeArgumentRef)
	}
}

// typeRefFromSegments emits a type reference for a dotted name, preceded by
// a reference to its qualifier. The qualifier may name a package or an
// enclosing type; binding decides which.
func (b *builder) typeRefFromSegments(parent syntax.NodeID, segs []segment, ctx pattern.FineGrain) syntax.NodeID {
	if len(segs) == 0 {
		return syntax.NoNode
	}
	last := segs[len(segs)-1]
	ref := syntax.Node{
		Kind:     syntax.TypeRef,
		Span:     segmentsSpan(segs),
		NameSpan: last.span,
		Name:     last.text,
		Arity:    -1,
		Context:  ctx,
	}
	if len(segs) > 1 {
		ref.Qualifier = joinSegments(segs[:len(segs)-1])
		b.packageRef(parent, segs[:len(segs)-1], ctx)
	}
	return b.add(parent, ref)
}

func (b *builder) packageRef(parent syntax.NodeID, segs []segment, ctx pattern.FineGrain) syntax.NodeID {
	if len(segs) == 0 {
		return syntax.NoNode
	}
	s := segmentsSpan(segs)
	return b.add(parent, syntax.Node{
		Kind:     syntax.PackageRef,
		Span:     s,
		NameSpan: s,
		Name:     joinSegments(segs),
		Arity:    -1,
		Context:  ctx,
	})
}
