package java

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// builder converts a tree-sitter CST into syntax nodes. In lazy mode member
// bodies are recorded with their CST handle instead of being walked.
type builder struct {
	t    *syntax.Tree
	src  []byte
	lazy bool

	enclosing syntax.NodeID
	member    syntax.NodeID
	container pattern.ContainerMask
}

func newBuilder(t *syntax.Tree, lazy bool) *builder {
	return &builder{
		t:         t,
		src:       t.Source,
		lazy:      lazy,
		enclosing: syntax.NoNode,
		member:    syntax.NoNode,
		container: pattern.InCompilationUnit,
	}
}

func (b *builder) text(n *sitter.Node) string { return n.Content(b.src) }

// add appends a node filled with the builder's current position.
func (b *builder) add(parent syntax.NodeID, n syntax.Node) syntax.NodeID {
	n.Enclosing = b.enclosing
	n.Member = b.member
	if n.Container == 0 {
		n.Container = b.container
	}
	if n.Receiver == 0 {
		n.Receiver = syntax.NoNode
	}
	return b.t.Add(parent, n)
}

func (b *builder) compilationUnit(root *sitter.Node) {
	for _, c := range named(root) {
		switch typ := c.Type(); {
		case typ == "package_declaration":
			b.packageDecl(c)
		case typ == "import_declaration":
			b.importDecl(c)
		case isTypeDeclaration(typ):
			b.typeDecl(syntax.Root, c)
		case typ == "ERROR":
			b.compilationUnit(c)
		}
	}
}

func (b *builder) packageDecl(n *sitter.Node) {
	name := childOfType(n, "scoped_identifier", "identifier")
	if name == nil {
		return
	}
	b.t.Package = compact(b.text(name))
	b.add(syntax.Root, syntax.Node{
		Kind:     syntax.PackageDecl,
		Span:     span(n),
		NameSpan: span(name),
		Name:     b.t.Package,
		Arity:    -1,
	})
}

// importDecl records the import and emits a reference to the imported type
// and one to its qualifier. On-demand imports only reference the qualifier.
// A single static import also references the imported member.
func (b *builder) importDecl(n *sitter.Node) {
	name := childOfType(n, "scoped_identifier", "identifier")
	if name == nil {
		return
	}
	imp := syntax.Import{
		Name:     compact(b.text(name)),
		OnDemand: childOfType(n, "asterisk") != nil,
		Static:   hasToken(n, "static"),
	}
	b.t.Imports = append(b.t.Imports, imp)
	id := b.add(syntax.Root, syntax.Node{
		Kind:     syntax.ImportDecl,
		Span:     span(n),
		NameSpan: span(name),
		Name:     imp.Name,
		Static:   imp.Static,
		Arity:    -1,
	})

	segs := segments(b, name)
	if imp.Static && !imp.OnDemand && len(segs) > 1 {
		member := segs[len(segs)-1]
		segs = segs[:len(segs)-1]
		b.add(id, syntax.Node{
			Kind:      syntax.MemberImport,
			Span:      member.span,
			NameSpan:  member.span,
			Name:      member.text,
			Qualifier: joinSegments(segs),
			Arity:     -1,
			Static:    true,
			Context:   pattern.ImportTypeRef,
		})
	}
	if imp.OnDemand {
		b.packageRef(id, segs, pattern.ImportTypeRef)
		return
	}
	b.typeRefFromSegments(id, segs, pattern.ImportTypeRef)
}

// typeDecl builds a type declaration with its header and members.
func (b *builder) typeDecl(parent syntax.NodeID, n *sitter.Node) syntax.NodeID {
	name := n.ChildByFieldName("name")
	decl := syntax.Node{
		Kind:     syntax.TypeDecl,
		Span:     span(n),
		TypeKind: typeKindOf(n.Type()),
		Arity:    -1,
	}
	if name != nil {
		decl.Name = b.text(name)
		decl.NameSpan = span(name)
	}
	mods := childOfType(n, "modifiers")
	decl.Static = mods != nil && hasToken(mods, "static")
	id := b.add(parent, decl)

	saved := *b
	defer func() { b.enclosing, b.member, b.container = saved.enclosing, saved.member, saved.container }()
	b.enclosing = id
	b.member = syntax.NoNode

	b.annotations(id, mods)
	b.typeParameters(id, n.ChildByFieldName("type_parameters"))

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, typ := range named(sc) {
			b.t.Node(id).Super = compact(b.text(typ))
			b.typeRefs(id, typ, pattern.SuperTypeRef)
		}
	}
	for _, clause := range []*sitter.Node{n.ChildByFieldName("interfaces"), childOfType(n, "extends_interfaces")} {
		if clause == nil {
			continue
		}
		list := childOfType(clause, "type_list")
		if list == nil {
			list = clause
		}
		for _, typ := range named(list) {
			in := b.t.Node(id)
			in.Interfaces = append(in.Interfaces, compact(b.text(typ)))
			b.typeRefs(id, typ, pattern.SuperTypeRef)
		}
	}

	if n.Type() == "record_declaration" {
		b.recordComponents(id, n.ChildByFieldName("parameters"))
	}

	b.container = pattern.InClass
	if body := n.ChildByFieldName("body"); body != nil {
		b.members(id, body)
	}
	return id
}

func (b *builder) recordComponents(id syntax.NodeID, params *sitter.Node) {
	if params == nil {
		return
	}
	ps, varargs := b.params(params)
	rec := b.t.Node(id)
	rec.Params = ps
	rec.Varargs = varargs
	saved := b.container
	b.container = pattern.InClass
	for _, p := range named(params) {
		name := p.ChildByFieldName("name")
		if name == nil {
			if d := childOfType(p, "variable_declarator"); d != nil {
				name = d.ChildByFieldName("name")
			}
		}
		if name == nil {
			continue
		}
		fid := b.add(id, syntax.Node{
			Kind:     syntax.FieldDecl,
			Span:     span(p),
			NameSpan: span(name),
			Name:     b.text(name),
			Type:     paramType(b, p),
			Arity:    -1,
		})
		b.annotations(fid, childOfType(p, "modifiers"))
		if typ := typeNodeOf(p); typ != nil {
			b.typeRefs(fid, typ, pattern.FieldTypeRef)
		}
	}
	b.container = saved
}

// members builds the member declarations of a class, interface, enum,
// record or annotation body.
func (b *builder) members(typeID syntax.NodeID, body *sitter.Node) {
	for _, c := range named(body) {
		switch typ := c.Type(); {
		case typ == "field_declaration" || typ == "constant_declaration":
			b.fieldDecl(typeID, c)
		case typ == "method_declaration" || typ == "annotation_type_element_declaration":
			b.methodDecl(typeID, c)
		case typ == "constructor_declaration" || typ == "compact_constructor_declaration":
			b.constructorDecl(typeID, c)
		case typ == "static_initializer" || typ == "block":
			b.initializer(typeID, c)
		case typ == "enum_constant":
			b.enumConstant(typeID, c)
		case typ == "enum_body_declarations" || typ == "ERROR":
			b.members(typeID, c)
		case isTypeDeclaration(typ):
			b.typeDecl(typeID, c)
		}
	}
}

func (b *builder) fieldDecl(typeID syntax.NodeID, n *sitter.Node) {
	typ := n.ChildByFieldName("type")
	mods := childOfType(n, "modifiers")
	static := mods != nil && hasToken(mods, "static")
	if b.t.Node(typeID).TypeKind == pattern.Interface {
		static = true
	}
	first := syntax.NoNode
	for _, d := range fieldChildren(n, "declarator") {
		name := d.ChildByFieldName("name")
		if name == nil {
			continue
		}
		written := ""
		if typ != nil {
			written = compact(b.text(typ)) + dims(b, d)
		}
		id := b.add(typeID, syntax.Node{
			Kind:     syntax.FieldDecl,
			Span:     span(d),
			NameSpan: span(name),
			Name:     b.text(name),
			Type:     written,
			Static:   static,
			Arity:    -1,
		})
		if first == syntax.NoNode {
			first = id
			b.annotations(id, mods)
			if typ != nil {
				b.typeRefs(id, typ, pattern.FieldTypeRef)
			}
		}
		if value := d.ChildByFieldName("value"); value != nil {
			b.body(id, value, pattern.InField)
		}
	}
}

func (b *builder) methodDecl(typeID syntax.NodeID, n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	mods := childOfType(n, "modifiers")
	params := n.ChildByFieldName("parameters")
	ps, varargs := b.params(params)
	ret := n.ChildByFieldName("type")
	written := ""
	if ret != nil {
		written = compact(b.text(ret))
		if d := n.ChildByFieldName("dimensions"); d != nil {
			written += compact(b.text(d))
		}
	}
	id := b.add(typeID, syntax.Node{
		Kind:     syntax.MethodDecl,
		Span:     span(n),
		NameSpan: span(name),
		Name:     b.text(name),
		Type:     written,
		Arity:    len(ps),
		Varargs:  varargs,
		Params:   ps,
		Static:   mods != nil && hasToken(mods, "static"),
	})
	b.header(id, n, mods, ret, params)
	if body := n.ChildByFieldName("body"); body != nil {
		b.body(id, body, pattern.InMethod)
	}
}

func (b *builder) constructorDecl(typeID syntax.NodeID, n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	mods := childOfType(n, "modifiers")
	params := n.ChildByFieldName("parameters")
	ps, varargs := b.params(params)
	if n.Type() == "compact_constructor_declaration" {
		rec := b.t.Node(typeID)
		ps, varargs = rec.Params, rec.Varargs
	}
	id := b.add(typeID, syntax.Node{
		Kind:     syntax.ConstructorDecl,
		Span:     span(n),
		NameSpan: span(name),
		Name:     b.text(name),
		Arity:    len(ps),
		Varargs:  varargs,
		Params:   ps,
	})
	b.header(id, n, mods, nil, params)
	if body := n.ChildByFieldName("body"); body != nil {
		b.body(id, body, pattern.InMethod)
	}
}

// header emits the references in the signature of a method or
// constructor, in source order.
func (b *builder) header(id syntax.NodeID, n, mods, ret, params *sitter.Node) {
	saved := b.member
	b.member = id
	defer func() { b.member = saved }()

	b.annotations(id, mods)
	b.typeParameters(id, n.ChildByFieldName("type_parameters"))
	if ret != nil {
		b.typeRefs(id, ret, pattern.ReturnTypeRef)
	}
	for _, p := range named(params) {
		b.annotations(id, childOfType(p, "modifiers"))
		if typ := typeNodeOf(p); typ != nil {
			b.typeRefs(id, typ, pattern.ParamTypeRef)
		}
	}
	if throws := childOfType(n, "throws"); throws != nil {
		for _, typ := range named(throws) {
			b.typeRefs(id, typ, pattern.ThrowsTypeRef)
		}
	}
}

func (b *builder) initializer(typeID syntax.NodeID, n *sitter.Node) {
	block := n
	if n.Type() == "static_initializer" {
		block = childOfType(n, "block")
	}
	id := b.add(typeID, syntax.Node{
		Kind:   syntax.Initializer,
		Span:   span(n),
		Static: n.Type() == "static_initializer",
		Arity:  -1,
	})
	if block != nil {
		b.body(id, block, pattern.InMethod)
	}
}

func (b *builder) enumConstant(typeID syntax.NodeID, n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	args := n.ChildByFieldName("arguments")
	id := b.add(typeID, syntax.Node{
		Kind:     syntax.EnumConstant,
		Span:     span(n),
		NameSpan: span(name),
		Name:     b.text(name),
		Type:     b.t.Node(typeID).Name,
		Arity:    argCount(args),
		Static:   true,
	})
	b.annotations(id, childOfType(n, "modifiers"))
	if args != nil || n.ChildByFieldName("body") != nil || childOfType(n, "class_body") != nil {
		b.body(id, n, pattern.InField)
	}
}

// body records the body of declaration id for later materialization, or
// walks it immediately outside lazy mode.
func (b *builder) body(id syntax.NodeID, n *sitter.Node, container pattern.ContainerMask) {
	if b.lazy {
		b.t.Node(id).Body = &syntax.Body{Span: span(n), Container: container, Handle: n}
		return
	}
	saved := *b
	defer func() { b.member, b.container = saved.member, saved.container }()
	b.member = id
	b.container = container
	switch n.Type() {
	case "block", "constructor_body":
		b.statements(id, n)
	case "enum_constant":
		b.enumConstantBody(id, n)
	default:
		b.expr(id, n, false)
	}
}

// params returns the declared parameters of a formal parameter list.
func (b *builder) params(n *sitter.Node) ([]syntax.Param, bool) {
	var out []syntax.Param
	varargs := false
	for _, p := range named(n) {
		switch p.Type() {
		case "formal_parameter":
			name := p.ChildByFieldName("name")
			param := syntax.Param{Type: paramType(b, p)}
			if name != nil {
				param.Name = b.text(name)
			}
			out = append(out, param)
		case "spread_parameter":
			param := syntax.Param{Type: paramType(b, p), Varargs: true}
			if d := childOfType(p, "variable_declarator"); d != nil {
				if name := d.ChildByFieldName("name"); name != nil {
					param.Name = b.text(name)
				}
			}
			out = append(out, param)
			varargs = true
		}
	}
	return out, varargs
}

func (b *builder) annotations(parent syntax.NodeID, mods *sitter.Node) {
	for _, a := range named(mods) {
		b.annotation(parent, a)
	}
}

// annotation references the annotation type and walks its element values
// as expressions.
func (b *builder) annotation(parent syntax.NodeID, a *sitter.Node) {
	if a.Type() != "marker_annotation" && a.Type() != "annotation" {
		return
	}
	if name := a.ChildByFieldName("name"); name != nil {
		b.typeRefFromSegments(parent, segments(b, name), pattern.AnnotationTypeRef)
	}
	if args := a.ChildByFieldName("arguments"); args != nil {
		b.expr(parent, args, false)
	}
}

func (b *builder) typeParameters(parent syntax.NodeID, tps *sitter.Node) {
	for _, tp := range named(tps) {
		if tp.Type() != "type_parameter" {
			continue
		}
		for _, c := range named(tp) {
			switch c.Type() {
			case "type_identifier", "identifier":
				n := b.t.Node(parent)
				switch n.Kind {
				case syntax.TypeDecl, syntax.MethodDecl, syntax.ConstructorDecl:
					n.TypeParams = append(n.TypeParams, b.text(c))
				}
			case "type_bound":
				for _, bound := range named(c) {
					b.typeRefs(parent, bound, pattern.TypeBoundRef)
				}
			case "marker_annotation", "annotation":
				b.annotation(parent, c)
			}
		}
	}
}

// typeNodeOf returns the declared type of a parameter-like node.
func typeNodeOf(p *sitter.Node) *sitter.Node {
	if typ := p.ChildByFieldName("type"); typ != nil {
		return typ
	}
	for _, c := range named(p) {
		switch c.Type() {
		case "modifiers", "variable_declarator", "identifier", "dimensions":
			continue
		}
		return c
	}
	return nil
}

func paramType(b *builder, p *sitter.Node) string {
	typ := typeNodeOf(p)
	if typ == nil {
		return ""
	}
	return compact(b.text(typ)) + dims(b, p)
}

// dims returns trailing array dimensions written after a declarator name.
func dims(b *builder, n *sitter.Node) string {
	if d := n.ChildByFieldName("dimensions"); d != nil {
		return compact(b.text(d))
	}
	return ""
}

// segment is one identifier of a dotted name.
type segment struct {
	text string
	span syntax.Span
}

// segments flattens identifier, scoped_identifier, type_identifier and
// scoped_type_identifier chains. Type arguments inside qualifiers are
// skipped.
func segments(b *builder, n *sitter.Node) []segment {
	switch n.Type() {
	case "identifier", "type_identifier":
		return []segment{{text: b.text(n), span: span(n)}}
	case "generic_type":
		if base := named(n); len(base) > 0 {
			return segments(b, base[0])
		}
		return nil
	case "field_access":
		obj, field := n.ChildByFieldName("object"), n.ChildByFieldName("field")
		if obj == nil || field == nil {
			return nil
		}
		return append(segments(b, obj), segment{text: b.text(field), span: span(field)})
	}
	var out []segment
	for _, c := range named(n) {
		switch c.Type() {
		case "marker_annotation", "annotation", "type_arguments":
			continue
		}
		out = append(out, segments(b, c)...)
	}
	return out
}

func joinSegments(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.text
	}
	return strings.Join(parts, ".")
}

func segmentsSpan(segs []segment) syntax.Span {
	return syntax.Span{Start: segs[0].span.Start, End: segs[len(segs)-1].span.End}
}
