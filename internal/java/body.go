package java

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

func (b *builder) statements(parent syntax.NodeID, n *sitter.Node) {
	for _, c := range named(n) {
		b.expr(parent, c, false)
	}
}

// expr emits the nodes of a statement or expression under parent. When
// value is set the node standing for the expression's value is returned so
// it can serve as a receiver; otherwise the result may be NoNode.
func (b *builder) expr(parent syntax.NodeID, n *sitter.Node, value bool) syntax.NodeID {
	switch typ := n.Type(); typ {
	case "identifier":
		return b.nameRef(parent, n)
	case "field_access":
		return b.fieldAccess(parent, n)
	case "method_invocation":
		return b.methodCall(parent, n)
	case "object_creation_expression":
		return b.creation(parent, n)
	case "explicit_constructor_invocation":
		b.explicitConstructorCall(parent, n)
		return syntax.NoNode
	case "method_reference":
		return b.methodReference(parent, n)
	case "parenthesized_expression":
		if inner := named(n); len(inner) > 0 {
			return b.expr(parent, inner[0], value)
		}
		return syntax.NoNode
	case "this":
		return b.add(parent, syntax.Node{Kind: syntax.ThisExpr, Span: span(n), NameSpan: span(n), Arity: -1})
	case "super":
		return b.add(parent, syntax.Node{Kind: syntax.SuperExpr, Span: span(n), NameSpan: span(n), Arity: -1})
	case "cast_expression":
		return b.cast(parent, n, value)
	case "class_literal":
		for _, c := range named(n) {
			b.typeRefs(parent, c, 0)
		}
		if value {
			return b.literal(parent, n, "Class")
		}
		return syntax.NoNode
	case "array_creation_expression":
		typeNode := n.ChildByFieldName("type")
		b.typeRefs(parent, typeNode, pattern.CreationTypeRef)
		for _, c := range named(n) {
			if !sameNode(c, typeNode) {
				b.expr(parent, c, false)
			}
		}
		return b.other(parent, n, value)
	case "local_variable_declaration":
		b.localVars(parent, n)
		return syntax.NoNode
	case "catch_clause":
		b.catchClause(parent, n)
		return syntax.NoNode
	case "enhanced_for_statement", "resource":
		b.declaredVar(parent, n)
		return syntax.NoNode
	case "lambda_expression":
		b.lambda(parent, n)
		return b.other(parent, n, value)
	case "instanceof_expression":
		b.instanceOf(parent, n)
		return b.literalIf(parent, n, "boolean", value)
	case "type_pattern", "record_pattern", "record_pattern_component":
		b.patternVar(parent, n)
		return syntax.NoNode
	case "labeled_statement":
		// The label itself is not a reference.
		for i, c := range named(n) {
			if i > 0 {
				b.expr(parent, c, false)
			}
		}
		return syntax.NoNode
	case "break_statement", "continue_statement":
		return syntax.NoNode
	case "marker_annotation", "annotation":
		b.annotation(parent, n)
		return syntax.NoNode
	case "element_value_pair":
		if v := n.ChildByFieldName("value"); v != nil {
			b.expr(parent, v, false)
		}
		return syntax.NoNode
	case "type_arguments":
		b.typeArguments(parent, n)
		return syntax.NoNode
	case "string_literal", "text_block", "character_literal", "true", "false", "null_literal",
		"decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal",
		"decimal_floating_point_literal", "hex_floating_point_literal":
		return b.literalIf(parent, n, literalType(typ, b.text(n)), value)
	}
	if isTypeDeclaration(n.Type()) {
		b.typeDecl(parent, n)
		return syntax.NoNode
	}
	if isTypeNode(n) {
		return b.typeRefs(parent, n, 0)
	}
	for _, c := range named(n) {
		b.expr(parent, c, false)
	}
	return b.other(parent, n, value)
}

func (b *builder) other(parent syntax.NodeID, n *sitter.Node, value bool) syntax.NodeID {
	if !value {
		return syntax.NoNode
	}
	return b.add(parent, syntax.Node{Kind: syntax.OtherExpr, Span: span(n), NameSpan: span(n), Arity: -1})
}

func (b *builder) literal(parent syntax.NodeID, n *sitter.Node, typ string) syntax.NodeID {
	return b.add(parent, syntax.Node{Kind: syntax.Literal, Span: span(n), NameSpan: span(n), Name: typ, Arity: -1})
}

func (b *builder) literalIf(parent syntax.NodeID, n *sitter.Node, typ string, value bool) syntax.NodeID {
	if !value {
		return syntax.NoNode
	}
	return b.literal(parent, n, typ)
}

// literalType names the static type of a literal.
func literalType(nodeType, text string) string {
	switch nodeType {
	case "string_literal", "text_block":
		return "String"
	case "character_literal":
		return "char"
	case "true", "false":
		return "boolean"
	case "null_literal":
		return "null"
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(text, "f") || strings.HasSuffix(text, "F") {
			return "float"
		}
		return "double"
	}
	if strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L") {
		return "long"
	}
	return "int"
}

// isNameChain reports whether n is an identifier or a dotted chain of
// identifiers, which may denote a variable, a field, a type or a package.
func isNameChain(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier":
		return true
	case "field_access":
		obj, field := n.ChildByFieldName("object"), n.ChildByFieldName("field")
		return obj != nil && field != nil && field.Type() == "identifier" && isNameChain(obj)
	}
	return false
}

// nameRef emits a possibly qualified ambiguous name.
func (b *builder) nameRef(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	segs := segments(b, n)
	if len(segs) == 0 {
		return syntax.NoNode
	}
	last := segs[len(segs)-1]
	ref := syntax.Node{
		Kind:     syntax.NameRef,
		Span:     span(n),
		NameSpan: last.span,
		Name:     last.text,
		Arity:    -1,
		Context:  pattern.ImplicitThis,
	}
	if len(segs) > 1 {
		ref.Qualifier = joinSegments(segs[:len(segs)-1])
		ref.Context = pattern.Qualified
	}
	return b.add(parent, ref)
}

// receiver emits the qualifying expression of a member access.
func (b *builder) receiver(parent syntax.NodeID, obj *sitter.Node) (syntax.NodeID, pattern.FineGrain) {
	switch obj.Type() {
	case "this":
		return b.expr(parent, obj, true), pattern.ThisQualified
	case "super":
		return b.expr(parent, obj, true), pattern.SuperQualified
	}
	return b.expr(parent, obj, true), pattern.Qualified
}

func (b *builder) fieldAccess(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	if isNameChain(n) {
		return b.nameRef(parent, n)
	}
	obj, field := n.ChildByFieldName("object"), n.ChildByFieldName("field")
	if obj == nil || field == nil {
		return b.other(parent, n, true)
	}
	if field.Type() == "this" {
		// Outer.this
		return b.add(parent, syntax.Node{
			Kind:      syntax.ThisExpr,
			Span:      span(n),
			NameSpan:  span(field),
			Qualifier: compact(b.text(obj)),
			Arity:     -1,
		})
	}
	recv, ctx := b.receiver(parent, obj)
	return b.add(parent, syntax.Node{
		Kind:     syntax.FieldAccess,
		Span:     span(n),
		NameSpan: span(field),
		Name:     b.text(field),
		Arity:    -1,
		Receiver: recv,
		Context:  ctx,
	})
}

func (b *builder) methodCall(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	name := n.ChildByFieldName("name")
	if name == nil {
		return b.other(parent, n, true)
	}
	args := n.ChildByFieldName("arguments")
	recv, ctx := syntax.NoNode, pattern.ImplicitThis
	if obj := n.ChildByFieldName("object"); obj != nil {
		recv, ctx = b.receiver(parent, obj)
		if obj.Type() != "super" && hasToken(n, "super") {
			// Iface.super.m()
			ctx = pattern.SuperQualified
		}
	}
	if ta := childOfType(n, "type_arguments"); ta != nil {
		b.typeArguments(parent, ta)
	}
	id := b.add(parent, syntax.Node{
		Kind:     syntax.MethodCall,
		Span:     span(n),
		NameSpan: span(name),
		Name:     b.text(name),
		Arity:    argCount(args),
		Receiver: recv,
		Context:  ctx,
	})
	b.arguments(parent, args)
	return id
}

func (b *builder) arguments(parent syntax.NodeID, args *sitter.Node) {
	for _, a := range named(args) {
		b.expr(parent, a, false)
	}
}

func (b *builder) creation(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return b.other(parent, n, true)
	}
	for _, c := range named(n) {
		if sameNode(c, typeNode) {
			break
		}
		if c.Type() == "type_arguments" {
			b.typeArguments(parent, c)
			continue
		}
		// outer.new Inner()
		b.expr(parent, c, false)
	}
	b.typeRefs(parent, typeNode, pattern.CreationTypeRef)

	segs := segments(b, typeNode)
	call := syntax.Node{
		Kind:  syntax.ConstructorCall,
		Span:  span(n),
		Type:  compact(b.text(typeNode)),
		Arity: -1,
	}
	if len(segs) > 0 {
		last := segs[len(segs)-1]
		call.Name, call.NameSpan = last.text, last.span
		if len(segs) > 1 {
			call.Qualifier = joinSegments(segs[:len(segs)-1])
		}
	}
	args := n.ChildByFieldName("arguments")
	call.Arity = argCount(args)
	id := b.add(parent, call)
	b.arguments(parent, args)
	if body := childOfType(n, "class_body"); body != nil {
		b.anonymousType(parent, body, call.Type)
	}
	return id
}

// anonymousType builds an anonymous class whose members are walked at once.
func (b *builder) anonymousType(parent syntax.NodeID, body *sitter.Node, super string) syntax.NodeID {
	id := b.add(parent, syntax.Node{
		Kind:     syntax.TypeDecl,
		Span:     span(body),
		TypeKind: pattern.Class,
		Super:    super,
		Arity:    -1,
	})
	saved := *b
	defer func() { b.enclosing, b.member, b.container = saved.enclosing, saved.member, saved.container }()
	b.enclosing = id
	b.member = syntax.NoNode
	b.container = pattern.InClass
	b.members(id, body)
	return id
}

func (b *builder) explicitConstructorCall(parent syntax.NodeID, n *sitter.Node) {
	if obj := n.ChildByFieldName("object"); obj != nil {
		b.expr(parent, obj, false)
	}
	ctor := n.ChildByFieldName("constructor")
	call := syntax.Node{
		Kind:     syntax.ExplicitConstructorCall,
		Span:     span(n),
		NameSpan: span(n),
		Name:     "super",
		Arity:    argCount(n.ChildByFieldName("arguments")),
	}
	if ctor != nil {
		call.NameSpan = span(ctor)
		if ctor.Type() == "this" {
			call.Name = "this"
		}
	}
	b.add(parent, call)
	b.arguments(parent, n.ChildByFieldName("arguments"))
}

// methodReference emits Type::method or Type::new with unknown arity.
func (b *builder) methodReference(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	kids := named(n)
	if len(kids) == 0 {
		return syntax.NoNode
	}
	first := kids[0]
	last := n.Child(int(n.ChildCount()) - 1)
	if last.Type() == "new" {
		b.typeRefs(parent, first, pattern.CreationTypeRef)
		segs := segments(b, first)
		call := syntax.Node{Kind: syntax.ConstructorCall, Span: span(n), NameSpan: span(first), Type: compact(b.text(first)), Arity: -1}
		if len(segs) > 0 {
			call.Name = segs[len(segs)-1].text
			call.NameSpan = segs[len(segs)-1].span
			if len(segs) > 1 {
				call.Qualifier = joinSegments(segs[:len(segs)-1])
			}
		}
		return b.add(parent, call)
	}

	var recv syntax.NodeID
	ctx := pattern.Qualified
	switch {
	case isTypeNode(first):
		recv = b.typeRefs(parent, first, 0)
	case first.Type() == "super":
		recv, ctx = b.expr(parent, first, true), pattern.SuperQualified
	case first.Type() == "this":
		recv, ctx = b.expr(parent, first, true), pattern.ThisQualified
	default:
		recv = b.expr(parent, first, true)
	}
	return b.add(parent, syntax.Node{
		Kind:     syntax.MethodCall,
		Span:     span(n),
		NameSpan: span(last),
		Name:     b.text(last),
		Arity:    -1,
		Receiver: recv,
		Context:  ctx,
	})
}

func (b *builder) cast(parent syntax.NodeID, n *sitter.Node, value bool) syntax.NodeID {
	types := fieldChildren(n, "type")
	for _, typ := range types {
		b.typeRefs(parent, typ, pattern.CastTypeRef)
	}
	if v := n.ChildByFieldName("value"); v != nil {
		b.expr(parent, v, false)
	}
	if !value || len(types) == 0 {
		return syntax.NoNode
	}
	return b.add(parent, syntax.Node{
		Kind:     syntax.CastExpr,
		Span:     span(n),
		NameSpan: span(types[0]),
		Type:     compact(b.text(types[0])),
		Arity:    -1,
	})
}

// localVars emits a local variable declaration. Locals declared with var
// record their initializer as Receiver so binding can infer their type.
func (b *builder) localVars(parent syntax.NodeID, n *sitter.Node) {
	if mods := childOfType(n, "modifiers"); mods != nil {
		b.annotations(parent, mods)
	}
	typ := n.ChildByFieldName("type")
	written := ""
	if typ != nil {
		b.typeRefs(parent, typ, pattern.LocalVarTypeRef)
		written = compact(b.text(typ))
		if written == "var" {
			written = ""
		}
	}
	for _, d := range fieldChildren(n, "declarator") {
		name := d.ChildByFieldName("name")
		if name == nil {
			continue
		}
		vtype := written
		if vtype != "" {
			vtype += dims(b, d)
		}
		lv := b.add(parent, syntax.Node{
			Kind:     syntax.LocalVar,
			Span:     span(d),
			NameSpan: span(name),
			Name:     b.text(name),
			Type:     vtype,
			Arity:    -1,
		})
		if value := d.ChildByFieldName("value"); value != nil {
			v := b.expr(parent, value, vtype == "")
			if vtype == "" {
				b.t.Node(lv).Receiver = v
			}
		}
	}
}

func (b *builder) localVar(parent syntax.NodeID, name *sitter.Node, typ string) syntax.NodeID {
	return b.add(parent, syntax.Node{
		Kind:     syntax.LocalVar,
		Span:     span(name),
		NameSpan: span(name),
		Name:     b.text(name),
		Type:     typ,
		Arity:    -1,
	})
}

func (b *builder) catchClause(parent syntax.NodeID, n *sitter.Node) {
	for _, c := range named(n) {
		if c.Type() != "catch_formal_parameter" {
			b.expr(parent, c, false)
			continue
		}
		first := ""
		if ct := childOfType(c, "catch_type"); ct != nil {
			for i, typ := range named(ct) {
				b.typeRefs(parent, typ, pattern.CatchTypeRef)
				if i == 0 {
					first = compact(b.text(typ))
				}
			}
		}
		if name := c.ChildByFieldName("name"); name != nil {
			b.localVar(parent, name, first)
		}
	}
}

// declaredVar handles for-each variables and try-with-resources resources.
func (b *builder) declaredVar(parent syntax.NodeID, n *sitter.Node) {
	typ, name := n.ChildByFieldName("type"), n.ChildByFieldName("name")
	if typ == nil || name == nil {
		for _, c := range named(n) {
			b.expr(parent, c, false)
		}
		return
	}
	b.typeRefs(parent, typ, pattern.LocalVarTypeRef)
	written := compact(b.text(typ))
	if written == "var" {
		written = ""
	}
	b.localVar(parent, name, written)
	for _, c := range named(n) {
		if sameNode(c, typ) || sameNode(c, name) || c.Type() == "modifiers" || c.Type() == "dimensions" {
			continue
		}
		b.expr(parent, c, false)
	}
}

func (b *builder) lambda(parent syntax.NodeID, n *sitter.Node) {
	if params := n.ChildByFieldName("parameters"); params != nil {
		switch params.Type() {
		case "identifier":
			b.localVar(parent, params, "")
		case "inferred_parameters":
			for _, p := range named(params) {
				b.localVar(parent, p, "")
			}
		case "formal_parameters":
			for _, p := range named(params) {
				typ := typeNodeOf(p)
				b.typeRefs(parent, typ, pattern.ParamTypeRef)
				if name := p.ChildByFieldName("name"); name != nil {
					b.localVar(parent, name, paramType(b, p))
				}
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.expr(parent, body, false)
	}
}

func (b *builder) instanceOf(parent syntax.NodeID, n *sitter.Node) {
	if left := n.ChildByFieldName("left"); left != nil {
		b.expr(parent, left, false)
	}
	right := n.ChildByFieldName("right")
	if right != nil {
		b.typeRefs(parent, right, pattern.InstanceofTypeRef)
		if name := n.ChildByFieldName("name"); name != nil {
			b.localVar(parent, name, compact(b.text(right)))
		}
	}
	if p := n.ChildByFieldName("pattern"); p != nil {
		b.patternVar(parent, p)
	}
}

// patternVar handles type and record patterns.
func (b *builder) patternVar(parent syntax.NodeID, n *sitter.Node) {
	var typ *sitter.Node
	for _, c := range named(n) {
		switch {
		case isTypeNode(c) && typ == nil:
			typ = c
			b.typeRefs(parent, c, pattern.InstanceofTypeRef)
		case c.Type() == "identifier" && typ != nil:
			b.localVar(parent, c, compact(b.text(typ)))
		case c.Type() == "record_pattern_body":
			for _, inner := range named(c) {
				b.patternVar(parent, inner)
			}
		case c.Type() == "record_pattern" || c.Type() == "record_pattern_component" || c.Type() == "type_pattern":
			b.patternVar(parent, c)
		}
	}
}

// enumConstantBody walks an enum constant's arguments and class body.
func (b *builder) enumConstantBody(id syntax.NodeID, n *sitter.Node) {
	b.arguments(id, n.ChildByFieldName("arguments"))
	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfType(n, "class_body")
	}
	if body != nil {
		enum := b.t.Node(id).Type
		b.anonymousType(id, body, enum)
	}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
