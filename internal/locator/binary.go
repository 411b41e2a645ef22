package locator

import (
	"strings"

	"github.com/jward/quarry/internal/binding"
	"github.com/jward/quarry/internal/pattern"
)

// BinaryMatch is a compiled type or member that satisfies the pattern.
type BinaryMatch struct {
	// Handle names the element: "pkg.Type", "pkg.Type#field" or
	// "pkg.Type#method(P1,P2)".
	Handle string
	Level  pattern.Level
}

// MatchBinary applies the pattern to a compiled type without a syntax tree.
// Descriptors are complete, so a member either matches or not; a semantic
// check that cannot be completed reports the member as Inaccurate.
func (l *Locator) MatchBinary(env *binding.Environment, tb *binding.TypeBinding) []BinaryMatch {
	if tb == nil || !tb.Binary {
		return nil
	}
	var out []BinaryMatch
	index := map[string]int{}
	add := func(handle string, lv pattern.Level) {
		switch lv {
		case pattern.Impossible:
			return
		case pattern.Possible:
			lv = pattern.Inaccurate
		}
		if i, ok := index[handle]; ok {
			out[i].Level = max(out[i].Level, lv)
			return
		}
		index[handle] = len(out)
		out = append(out, BinaryMatch{Handle: handle, Level: lv})
	}

	for _, leaf := range l.leaves {
		switch p := leaf.(type) {
		case *pattern.TypeDeclPattern:
			if p.MatchesKind(tb.Kind) {
				add(tb.Qualified, typeLevel(p.Rule(), p.Simple, p.Qualification, tb))
			}
		case *pattern.SuperTypeRefPattern:
			add(tb.Qualified, binarySupers(p, tb))
		case *pattern.FieldPattern:
			if !p.Limit.Has(pattern.Declarations) {
				continue
			}
			for _, f := range tb.Fields {
				if p.Rule().Match(p.Name, f.Name) && p.Type.MatchSimple(p.Rule(), f.Type) {
					add(tb.Qualified+"#"+f.Name, fieldLevel(env, p, f, nil))
				}
			}
		case *pattern.MethodPattern:
			if !p.Limit.Has(pattern.Declarations) {
				continue
			}
			for _, m := range tb.Methods {
				if !m.Constructor && p.Rule().Match(p.Name, m.Name) && p.MatchesArity(len(m.Params)) {
					add(memberHandle(tb, m), methodLevel(env, p, m, nil))
				}
			}
		case *pattern.ConstructorPattern:
			if !p.Limit.Has(pattern.Declarations) {
				continue
			}
			for _, m := range tb.Methods {
				if m.Constructor && p.Rule().Match(p.Simple, tb.Simple) {
					add(memberHandle(tb, m), constructorLevel(p, m))
				}
			}
		}
	}
	return out
}

func binarySupers(p *pattern.SuperTypeRefPattern, tb *binding.TypeBinding) pattern.Level {
	r := p.Rule()
	best := pattern.Impossible
	// Implicit superclasses are not written anywhere and are never reported.
	implicit := tb.Kind != pattern.Class
	if s := tb.Super(); s != nil && !implicit && s.Qualified != "java.lang.Object" && p.MatchesRelation(pattern.SuperClasses) {
		best = typeLevel(r, p.Simple, p.Qualification, s)
	}
	if p.MatchesRelation(pattern.SuperInterfaces) {
		for _, in := range tb.Interfaces() {
			best = max(best, typeLevel(r, p.Simple, p.Qualification, in))
		}
	}
	return best
}

func memberHandle(tb *binding.TypeBinding, m *binding.MethodBinding) string {
	return tb.Qualified + "#" + m.Name + "(" + strings.Join(m.Params, ",") + ")"
}
