// Package java builds syntax trees for Java source with tree-sitter. Trees
// are built in skeleton form: declarations and their headers are
// materialized eagerly, method and initializer bodies on demand.
package java

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// Parser parses Java compilation units. A Parser is not safe for concurrent
// use; create one per goroutine.
type Parser struct {
	p *sitter.Parser
}

// NewParser creates a Parser for Java.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{p: p}
}

// Close frees the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.p.Close()
}

// IsSource reports whether path names a Java source file.
func IsSource(path string) bool {
	return strings.HasSuffix(path, ".java")
}

// ParseSkeleton parses src and builds its declarations. Bodies stay
// unparsed until MaterializeBody; the backing tree-sitter tree lives until
// the returned tree is released.
func (p *Parser) ParseSkeleton(ctx context.Context, path string, src []byte) (*syntax.Tree, error) {
	cst, err := p.p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	t := syntax.NewTree(path, src)
	root := cst.RootNode()
	t.HasErrors = root.HasError()

	b := newBuilder(t, true)
	b.compilationUnit(root)
	t.SetRelease(cst.Close)
	return t, nil
}

// ParseFull parses src and materializes every body.
func (p *Parser) ParseFull(ctx context.Context, path string, src []byte) (*syntax.Tree, error) {
	t, err := p.ParseSkeleton(ctx, path, src)
	if err != nil {
		return nil, err
	}
	for _, id := range t.Bodies() {
		if err := t.Materialize(p, id); err != nil {
			t.Release()
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return t, nil
}

// MaterializeBody builds the nodes of the body of declaration id.
func (p *Parser) MaterializeBody(t *syntax.Tree, id syntax.NodeID) error {
	n := t.Node(id)
	if n.Body == nil {
		return nil
	}
	h, ok := n.Body.Handle.(*sitter.Node)
	if !ok || h == nil {
		return syntax.ErrReleased
	}
	b := newBuilder(t, false)
	b.enclosing = n.Enclosing
	b.member = id
	b.container = n.Body.Container
	switch h.Type() {
	case "block", "constructor_body":
		b.statements(id, h)
	case "enum_constant":
		b.enumConstantBody(id, h)
	default:
		b.expr(id, h, false)
	}
	return nil
}

var _ syntax.BodyParser = (*Parser)(nil)

// typeKindOf maps a declaration node type to its kind.
func typeKindOf(nodeType string) pattern.TypeKind {
	switch nodeType {
	case "class_declaration":
		return pattern.Class
	case "interface_declaration":
		return pattern.Interface
	case "enum_declaration":
		return pattern.Enum
	case "annotation_type_declaration":
		return pattern.Annotation
	case "record_declaration":
		return pattern.Record
	}
	return pattern.AnyType
}

func isTypeDeclaration(nodeType string) bool {
	return typeKindOf(nodeType) != pattern.AnyType
}

func span(n *sitter.Node) syntax.Span {
	return syntax.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// named returns the named, non-comment children of n.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c != nil && !isComment(c) {
			out = append(out, c)
		}
	}
	return out
}

// fieldChildren returns every child of n stored under field.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range named(n) {
		for _, typ := range types {
			if c.Type() == typ {
				return c
			}
		}
	}
	return nil
}

// hasToken reports whether n has an anonymous child with the given text,
// e.g. "static" in an import.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func argCount(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return len(named(args))
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
