package locator

import (
	"strings"

	"github.com/jward/quarry/internal/binding"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// Resolve re-evaluates a candidate with bindings. Leaves that were already
// decided structurally keep their level. Possible means a binding needed for
// the decision was unavailable; callers record it as Inaccurate.
func (l *Locator) Resolve(r *binding.Resolver, id syntax.NodeID) pattern.Level {
	t := r.Tree()
	best := pattern.Impossible
	for _, leaf := range l.leaves {
		lv := match(leaf, t, id)
		if lv == pattern.Possible {
			lv = resolveLeaf(leaf, r, id)
		}
		if lv > best {
			best = lv
		}
	}
	return best
}

func resolveLeaf(p pattern.Pattern, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	switch p := p.(type) {
	case *pattern.TypeRefPattern:
		return resolveTypeRef(p.Rule(), p.Simple, p.Qualification, r, id)
	case *pattern.SuperTypeRefPattern:
		return typeLevel(p.Rule(), p.Simple, p.Qualification, r.ResolveType(id))
	case *pattern.FieldPattern:
		return resolveField(p, r, id)
	case *pattern.MethodPattern:
		return resolveMethod(p, r, id)
	case *pattern.ConstructorPattern:
		return resolveConstructor(p, r, id)
	case *pattern.PackageRefPattern:
		return resolvePackageRef(p, r, id)
	}
	return pattern.Accurate
}

// typeLevel compares a resolved type with a simple name and qualification.
func typeLevel(rule pattern.MatchRule, simple, qual string, tb *binding.TypeBinding) pattern.Level {
	switch {
	case tb == nil:
		return pattern.Possible
	case tb.TypeVar:
		return pattern.Impossible
	}
	q, s := pattern.SplitQualified(tb.Qualified)
	if tb.Anonymous || !rule.Match(simple, s) {
		return pattern.Impossible
	}
	if qual != "" && !rule.MatchQualification(qual, q) {
		return pattern.Impossible
	}
	return pattern.Accurate
}

func resolveTypeRef(rule pattern.MatchRule, simple, qual string, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	t := r.Tree()
	n := t.Node(id)
	switch n.Kind {
	case syntax.TypeRef:
		return typeLevel(rule, simple, qual, r.ResolveType(id))
	case syntax.NameRef:
		ms := r.ResolveName(id)
		best := pattern.Impossible
		for _, i := range matchingSegments(rule, simple, n) {
			var lv pattern.Level
			switch ms[i].Kind {
			case binding.Type:
				lv = typeLevel(rule, simple, qual, ms[i].Type)
			case binding.Unknown:
				lv = pattern.Possible
			}
			best = max(best, lv)
		}
		return best
	case syntax.PackageRef:
		segs := segments(n)
		env := r.Environment()
		best := pattern.Impossible
		for _, i := range matchingSegments(rule, simple, n) {
			prefix := strings.Join(segs[:i+1], ".")
			tb := env.ResolveIn(t, id, prefix)
			switch {
			case tb != nil:
				best = max(best, typeLevel(rule, simple, qual, tb))
			case !env.IsPackage(prefix):
				best = max(best, pattern.Possible)
			}
		}
		return best
	}
	return pattern.Impossible
}

// declaringLevel checks a member's declaring type against want. recv is the
// static type the member was reached through, nil for declarations. A
// virtual member reached through a supertype of want may dispatch to want's
// override and is Inaccurate, as is a declaration overriding a member of
// want.
func declaringLevel(env *binding.Environment, rule pattern.MatchRule, want pattern.TypeName, declaring, recv *binding.TypeBinding, virtual bool) pattern.Level {
	if want.IsZero() {
		return pattern.Accurate
	}
	if declaring == nil {
		return pattern.Possible
	}
	if sameType(rule, want, declaring) {
		return pattern.Accurate
	}
	if recv != nil && !recv.TypeVar && (sameType(rule, want, recv) || inherits(rule, recv, want)) {
		return pattern.Accurate
	}
	if !virtual {
		return pattern.Impossible
	}
	if recv == nil && inherits(rule, declaring, want) {
		return pattern.Inaccurate
	}
	if recv != nil && want.Qualification != "" {
		if focus := env.Type(want.Qualified()); focus != nil && focus.IsSubtypeOf(recv.Qualified) {
			return pattern.Inaccurate
		}
	}
	return pattern.Impossible
}

func sameType(rule pattern.MatchRule, want pattern.TypeName, tb *binding.TypeBinding) bool {
	return want.MatchResolved(rule, tb.Qualified, "", 0)
}

func inherits(rule pattern.MatchRule, tb *binding.TypeBinding, want pattern.TypeName) bool {
	for _, s := range tb.Supertypes() {
		if sameType(rule, want, s) {
			return true
		}
	}
	return false
}

// typeConstraint compares a written member type with want, using the
// resolved type when there is one.
func typeConstraint(rule pattern.MatchRule, want pattern.TypeName, written string, resolved *binding.TypeBinding) pattern.Level {
	if want.IsZero() {
		return pattern.Accurate
	}
	if !want.MatchSimple(rule, written) {
		if resolved == nil || !resolved.TypeVar || !erasesToObject(rule, want) {
			return pattern.Impossible
		}
		return pattern.Accurate
	}
	if resolved == nil {
		return pattern.Possible
	}
	if resolved.TypeVar {
		return pattern.Accurate
	}
	w := pattern.ParseTypeName(written)
	if want.MatchResolved(rule, resolved.Qualified, w.Args, w.Dims) {
		return pattern.Accurate
	}
	return pattern.Impossible
}

func erasesToObject(rule pattern.MatchRule, want pattern.TypeName) bool {
	return want.Dims == 0 && rule.Match(want.Simple, "Object") &&
		(want.Qualification == "" || rule.MatchQualification(want.Qualification, "java.lang"))
}

func fieldLevel(env *binding.Environment, p *pattern.FieldPattern, f *binding.FieldBinding, recv *binding.TypeBinding) pattern.Level {
	if f == nil {
		return pattern.Possible
	}
	if !p.Rule().Match(p.Name, f.Name) {
		return pattern.Impossible
	}
	lv := declaringLevel(env, p.Rule(), p.Declaring, f.Declaring, recv, false)
	if lv != pattern.Impossible && !p.Type.IsZero() {
		lv = min(lv, typeConstraint(p.Rule(), p.Type, f.Type, f.ResolvedType()))
	}
	return lv
}

func resolveField(p *pattern.FieldPattern, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	env := r.Environment()
	n := r.Tree().Node(id)
	switch n.Kind {
	case syntax.FieldDecl, syntax.EnumConstant:
		return fieldLevel(env, p, r.ResolveField(id), nil)
	case syntax.FieldAccess:
		f := r.ResolveField(id)
		if f == nil {
			return pattern.Possible
		}
		return fieldLevel(env, p, f, r.TypeOf(n.Receiver))
	case syntax.NameRef:
		ms := r.ResolveName(id)
		best := pattern.Impossible
		for _, i := range matchingSegments(p.Rule(), p.Name, n) {
			var lv pattern.Level
			switch ms[i].Kind {
			case binding.Field:
				recv := r.DeclaringType(id)
				if i > 0 {
					recv = ms[i-1].Value
					if ms[i-1].Kind == binding.Type {
						recv = ms[i-1].Type
					}
				}
				lv = fieldLevel(env, p, ms[i].Field, recv)
			case binding.Unknown:
				lv = pattern.Possible
			}
			best = max(best, lv)
		}
		return best
	case syntax.MemberImport:
		owner := r.ImportOwner(id)
		if owner == nil {
			return pattern.Possible
		}
		if f := owner.Field(n.Name); f != nil {
			return fieldLevel(env, p, f, owner)
		}
		return unlisted(owner)
	}
	return pattern.Impossible
}

// combine folds the levels of the overloads a node may bind to: agreement
// keeps the level, disagreement among matches is Inaccurate.
func combine(levels []pattern.Level) pattern.Level {
	if len(levels) == 0 {
		return pattern.Possible
	}
	first, hi := levels[0], levels[0]
	same := true
	for _, lv := range levels[1:] {
		same = same && lv == first
		hi = max(hi, lv)
	}
	switch {
	case same:
		return first
	case hi == pattern.Possible:
		return pattern.Possible
	}
	return pattern.Inaccurate
}

func methodLevel(env *binding.Environment, p *pattern.MethodPattern, m *binding.MethodBinding, recv *binding.TypeBinding) pattern.Level {
	r := p.Rule()
	if !r.Match(p.Name, m.Name) {
		return pattern.Impossible
	}
	if !p.MatchesArity(len(m.Params)) {
		return pattern.Impossible
	}
	lv := declaringLevel(env, r, p.Declaring, m.Declaring, recv, !m.Static)
	if lv == pattern.Impossible {
		return lv
	}
	if !p.Return.IsZero() {
		lv = min(lv, typeConstraint(r, p.Return, m.Return, m.ResolvedReturn()))
	}
	return min(lv, paramsLevel(r, p.Params, m))
}

func paramsLevel(r pattern.MatchRule, want []pattern.TypeName, m *binding.MethodBinding) pattern.Level {
	lv := pattern.Accurate
	for i, w := range want {
		if w.IsZero() {
			continue
		}
		if i >= len(m.Params) {
			if m.Varargs && len(m.Params) == 0 {
				// Synthesized platform constructor with unknown parameters.
				return pattern.Inaccurate
			}
			return pattern.Impossible
		}
		lv = min(lv, typeConstraint(r, w, m.Params[i], m.ResolvedParam(i)))
	}
	return lv
}

func resolveMethod(p *pattern.MethodPattern, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	env := r.Environment()
	n := r.Tree().Node(id)
	ms := r.ResolveMethods(id)
	if n.Kind == syntax.MemberImport {
		return importedMethodLevel(env, p, r.ImportOwner(id), ms)
	}
	var recv *binding.TypeBinding
	if n.Kind == syntax.MethodCall {
		if n.Receiver != syntax.NoNode {
			recv = r.TypeOf(n.Receiver)
		} else {
			recv = r.DeclaringType(id)
		}
	}
	levels := make([]pattern.Level, len(ms))
	for i, m := range ms {
		levels[i] = methodLevel(env, p, m, recv)
	}
	return combine(levels)
}

// importedMethodLevel rates a static import of owner's methods: it refers to
// every overload, so the best overload decides.
func importedMethodLevel(env *binding.Environment, p *pattern.MethodPattern, owner *binding.TypeBinding, ms []*binding.MethodBinding) pattern.Level {
	if owner == nil {
		return pattern.Possible
	}
	if len(ms) == 0 {
		return unlisted(owner)
	}
	best := pattern.Impossible
	for _, m := range ms {
		best = max(best, methodLevel(env, p, m, owner))
	}
	return best
}

// unlisted rates an imported member the owner does not declare. Platform
// types only list part of their members.
func unlisted(owner *binding.TypeBinding) pattern.Level {
	if owner.Platform {
		return pattern.Possible
	}
	return pattern.Impossible
}

func constructorLevel(p *pattern.ConstructorPattern, m *binding.MethodBinding) pattern.Level {
	r := p.Rule()
	lv := typeLevel(r, p.Simple, p.Qualification, m.Declaring)
	if lv != pattern.Accurate {
		return lv
	}
	unknownParams := m.Varargs && len(m.Params) == 0
	if !unknownParams && !p.MatchesArity(len(m.Params)) {
		return pattern.Impossible
	}
	return min(lv, paramsLevel(r, p.Params, m))
}

func resolveConstructor(p *pattern.ConstructorPattern, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	ms := r.ResolveMethods(id)
	levels := make([]pattern.Level, len(ms))
	for i, m := range ms {
		levels[i] = constructorLevel(p, m)
	}
	return combine(levels)
}

func resolvePackageRef(p *pattern.PackageRefPattern, r *binding.Resolver, id syntax.NodeID) pattern.Level {
	t := r.Tree()
	n := t.Node(id)
	env := r.Environment()
	switch n.Kind {
	case syntax.NameRef:
		ms := r.ResolveName(id)
		best := pattern.Impossible
		for _, count := range matchingPrefixes(p, n.Qualifier) {
			m := ms[count-1]
			switch {
			case m.Kind == binding.Package && p.MatchesName(m.Package):
				return pattern.Accurate
			case m.Kind == binding.Unknown:
				best = pattern.Possible
			}
		}
		return best
	case syntax.PackageRef:
		segs := segments(n)
		var pkg string
		if t.Node(n.Parent).Kind == syntax.ImportDecl {
			pkg, _ = r.ResolvePackage(id)
		} else {
			pkg = env.PackagePrefix(t, id, n.Name)
		}
		known := pkg != "" || env.ResolveIn(t, id, segs[0]) != nil || env.IsPackage(segs[0])
		for _, count := range matchingPrefixes(p, n.Name) {
			prefix := strings.Join(segs[:count], ".")
			if pkg == prefix || strings.HasPrefix(pkg, prefix+".") {
				return pattern.Accurate
			}
			if pkg == "" && env.IsPackage(prefix) && env.ResolveIn(t, id, prefix) == nil {
				return pattern.Accurate
			}
		}
		if !known {
			return pattern.Possible
		}
	}
	return pattern.Impossible
}
