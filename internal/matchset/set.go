// Package matchset holds the candidate nodes of one document between the
// structural sweep and the final report. Candidates are keyed by span and
// node kind so duplicates produced by parser error recovery collapse into
// one entry.
package matchset

import (
	"sort"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/syntax"
)

type key struct {
	span uint64
	kind syntax.Kind
}

type entry struct {
	id    syntax.NodeID
	level pattern.Level
}

// Match is a pending candidate handed out by Possible.
type Match struct {
	ID   syntax.NodeID
	Kind syntax.Kind
	Span syntax.Span
}

// Set is the per-document candidate set: a trusted bucket of decided nodes
// and a possible bucket of nodes waiting for resolution. A key lives in at
// most one bucket.
type Set struct {
	trusted  map[key]entry
	possible map[key]entry
}

// New returns an empty set.
func New() *Set {
	return &Set{
		trusted:  make(map[key]entry),
		possible: make(map[key]entry),
	}
}

func keyOf(n *syntax.Node) key {
	return key{span: n.Span.Key(), kind: n.Kind}
}

// Add records node id of t at level. Impossible is ignored. A node with the
// same span and kind as an earlier one replaces it, whichever bucket the
// earlier one was in.
func (s *Set) Add(t *syntax.Tree, id syntax.NodeID, level pattern.Level) {
	if level == pattern.Impossible {
		return
	}
	k := keyOf(t.Node(id))
	delete(s.trusted, k)
	delete(s.possible, k)
	if level == pattern.Possible {
		s.possible[k] = entry{id: id, level: level}
		return
	}
	s.trusted[k] = entry{id: id, level: level}
}

// NeedsResolve reports whether any candidate still waits for resolution.
func (s *Set) NeedsResolve() bool { return len(s.possible) > 0 }

// Len counts candidates in both buckets.
func (s *Set) Len() int { return len(s.trusted) + len(s.possible) }

// Trusted counts decided candidates.
func (s *Set) Trusted() int { return len(s.trusted) }

// Possible returns the pending candidates ordered by span.
func (s *Set) Possible() []Match {
	out := make([]Match, 0, len(s.possible))
	for k, e := range s.possible {
		out = append(out, Match{ID: e.id, Kind: k.kind, Span: syntax.SpanFromKey(k.span)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Span, out[j].Span
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// PossibleWithin reports whether a pending candidate lies inside span.
func (s *Set) PossibleWithin(span syntax.Span) bool {
	for k := range s.possible {
		if span.Contains(syntax.SpanFromKey(k.span)) {
			return true
		}
	}
	return false
}

// Promote settles a pending candidate with its resolved level. Impossible
// drops it; Accurate and Inaccurate move it to the trusted bucket. A level
// of Possible means the binding was unavailable and is recorded as
// Inaccurate.
func (s *Set) Promote(m Match, level pattern.Level) {
	k := key{span: m.Span.Key(), kind: m.Kind}
	e, ok := s.possible[k]
	if !ok {
		return
	}
	delete(s.possible, k)
	switch level {
	case pattern.Impossible:
		return
	case pattern.Possible:
		level = pattern.Inaccurate
	}
	s.trusted[k] = entry{id: e.id, level: level}
}

// DemoteAll moves every pending candidate to the trusted bucket as
// Inaccurate. It is used when resolution of the document aborted.
func (s *Set) DemoteAll() {
	for k, e := range s.possible {
		s.trusted[k] = entry{id: e.id, level: pattern.Inaccurate}
		delete(s.possible, k)
	}
}

// Refine drops candidates whose node fails keep. The walk stops as soon as
// every candidate has been visited.
func (s *Set) Refine(t *syntax.Tree, keep func(syntax.NodeID, *syntax.Node) bool) {
	remaining := s.Len()
	if remaining == 0 {
		return
	}
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if remaining == 0 {
			return false
		}
		k := keyOf(n)
		for _, bucket := range []map[key]entry{s.trusted, s.possible} {
			e, ok := bucket[k]
			if !ok || e.id != id {
				continue
			}
			remaining--
			if !keep(id, n) {
				delete(bucket, k)
			}
		}
		return true
	})
}

// Report emits trusted candidates in source order: a pre-order walk of t
// from the compilation unit through types and their members. Each
// candidate is emitted at most once and removed from the set; those at a
// nesting level mask does not permit are skipped. Returning an error from
// fn stops the walk.
func (s *Set) Report(t *syntax.Tree, mask pattern.ContainerMask, fn func(id syntax.NodeID, exact bool) error) error {
	var err error
	t.Walk(syntax.Root, func(id syntax.NodeID, n *syntax.Node) bool {
		if err != nil || len(s.trusted) == 0 {
			return false
		}
		k := keyOf(n)
		e, ok := s.trusted[k]
		if !ok {
			return true
		}
		delete(s.trusted, k)
		if !mask.Permits(n.Container) {
			return true
		}
		err = fn(e.id, e.level == pattern.Accurate)
		return err == nil
	})
	return err
}
