package locator

import (
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

// Span returns the source range reported for a candidate: the segment that
// matched inside a dotted name, the whole expression for instance creations
// and explicit constructor calls, the identifier otherwise.
func (l *Locator) Span(t *syntax.Tree, id syntax.NodeID) syntax.Span {
	n := t.Node(id)
	for _, leaf := range l.leaves {
		if match(leaf, t, id) == pattern.Impossible {
			continue
		}
		switch n.Kind {
		case syntax.NameRef, syntax.PackageRef:
			if s, ok := segmentMatch(leaf, t, n); ok {
				return s
			}
		case syntax.ConstructorCall, syntax.ExplicitConstructorCall:
			if _, ok := leaf.(*pattern.ConstructorPattern); ok {
				return n.Span
			}
		}
		break
	}
	if n.NameSpan.End > n.NameSpan.Start {
		return n.NameSpan
	}
	return n.Span
}

func segmentMatch(p pattern.Pattern, t *syntax.Tree, n *syntax.Node) (syntax.Span, bool) {
	var name string
	switch p := p.(type) {
	case *pattern.TypeRefPattern:
		name = p.Simple
	case *pattern.FieldPattern:
		name = p.Name
	case *pattern.PackageRefPattern:
		dotted := n.Name
		if n.Kind == syntax.NameRef {
			dotted = n.Qualifier
		}
		if counts := matchingPrefixes(p, dotted); len(counts) > 0 {
			return dottedSpan(t, n.Span, 0, counts[0]-1), true
		}
		return syntax.Span{}, false
	default:
		return syntax.Span{}, false
	}
	segs := matchingSegments(p.Rule(), name, n)
	if len(segs) == 0 {
		return syntax.Span{}, false
	}
	i := segs[len(segs)-1]
	if n.Kind == syntax.NameRef && i == len(segments(n))-1 {
		return n.NameSpan, true
	}
	return dottedSpan(t, n.Span, i, i), true
}

// dottedSpan locates segments from..to of the dotted name written at s.
// Whitespace around the dots is skipped; comments inside a name are not
// supported and yield s itself.
func dottedSpan(t *syntax.Tree, s syntax.Span, from, to int) syntax.Span {
	text := t.Text(s)
	seg, start := 0, 0
	out := syntax.Span{Start: -1}
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '.' {
			continue
		}
		if seg == from {
			out.Start = s.Start + start
		}
		if seg == to {
			out.End = s.Start + i
			break
		}
		seg++
		start = i + 1
	}
	if out.Start < 0 || out.End <= out.Start {
		return s
	}
	for out.Start < out.End && isSpace(t.Source[out.Start]) {
		out.Start++
	}
	for out.End > out.Start && isSpace(t.Source[out.End-1]) {
		out.End--
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
