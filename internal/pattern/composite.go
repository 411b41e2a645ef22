package pattern

import "strings"

// OrPattern matches what either operand matches. Candidate documents are the
// union of the operands' candidates; a node takes the highest level any
// operand assigns it.
type OrPattern struct {
	Left, Right Pattern
}

// Or composes patterns left to right into nested OrPatterns.
func Or(first Pattern, rest ...Pattern) Pattern {
	p := first
	for _, r := range rest {
		p = &OrPattern{Left: p, Right: r}
	}
	return p
}

func (p *OrPattern) Kind() Kind { return KindOr }

// Rule returns the left operand's rule.
func (p *OrPattern) Rule() MatchRule    { return p.Left.Rule() }
func (p *OrPattern) NeedsResolve() bool { return p.Left.NeedsResolve() || p.Right.NeedsResolve() }
func (p *OrPattern) Mask() ContainerMask {
	return p.Left.Mask() | p.Right.Mask()
}

// FineGrain is zero; operands apply their own restrictions.
func (p *OrPattern) FineGrain() FineGrain { return 0 }
func (p *OrPattern) Patterns() []Pattern  { return []Pattern{p.Left, p.Right} }
func (p *OrPattern) String() string {
	return "(" + p.Left.String() + " | " + p.Right.String() + ")"
}

// AndPattern requires every operand to have index candidates in the same
// document. It is a MultiKey: each operand is one sub-key, visited in order.
// Inside a document a node is reported when any operand matches it.
type AndPattern struct {
	patterns []Pattern
	current  int
}

// And composes patterns into one AndPattern.
func And(patterns ...Pattern) *AndPattern {
	p := &AndPattern{patterns: patterns}
	p.ResetQuery()
	return p
}

func (p *AndPattern) Kind() Kind          { return KindAnd }
func (p *AndPattern) Patterns() []Pattern { return p.patterns }

func (p *AndPattern) Rule() MatchRule {
	if len(p.patterns) == 0 {
		return ExactCase
	}
	return p.patterns[0].Rule()
}

func (p *AndPattern) NeedsResolve() bool {
	for _, sub := range p.patterns {
		if sub.NeedsResolve() {
			return true
		}
	}
	return false
}

func (p *AndPattern) Mask() ContainerMask {
	var m ContainerMask
	for _, sub := range p.patterns {
		m |= sub.Mask()
	}
	return m
}

func (p *AndPattern) FineGrain() FineGrain { return 0 }

func (p *AndPattern) ResetQuery() { p.current = 0 }

func (p *AndPattern) HasNextQuery() bool {
	if p.current+1 >= len(p.patterns) {
		return false
	}
	p.current++
	return true
}

func (p *AndPattern) Current() Pattern {
	if len(p.patterns) == 0 {
		return nil
	}
	return p.patterns[p.current]
}

func (p *AndPattern) String() string {
	parts := make([]string, len(p.patterns))
	for i, sub := range p.patterns {
		parts[i] = sub.String()
	}
	return "(" + strings.Join(parts, " & ") + ")"
}

// Leaves returns the non-composite patterns reachable from p, left to right.
func Leaves(p Pattern) []Pattern {
	c, ok := p.(Composite)
	if !ok {
		return []Pattern{p}
	}
	var out []Pattern
	for _, sub := range c.Patterns() {
		out = append(out, Leaves(sub)...)
	}
	return out
}
