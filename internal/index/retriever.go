package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/store"
)

// ErrNotIndexed is returned for patterns with no index representation.
var ErrNotIndexed = errors.New("pattern has no index keys")

// Reader is the index surface the retriever needs. *store.Store implements it.
type Reader interface {
	EntriesByPrefix(category, prefix string, caseSensitive bool) ([]store.Entry, error)
	DocumentsByIDs(ids []int64) ([]*store.Document, error)
}

var _ Reader = (*store.Store)(nil)

// Scope filters candidate documents.
type Scope interface {
	Encloses(doc *store.Document) bool
}

// Candidate is a document that satisfies every sub-key of a pattern, with
// the decoded keys of the last sub-key that matched in it.
type Candidate struct {
	Doc  *store.Document
	Keys []pattern.Key
}

// Retriever answers patterns from the inverted index.
type Retriever struct {
	reader Reader
}

// NewRetriever creates a Retriever over r.
func NewRetriever(r Reader) *Retriever {
	return &Retriever{reader: r}
}

// payloads maps a document ID to the decoded keys that hit it.
type payloads map[int64][]pattern.Key

// Retrieve calls fn for every candidate document of p inside scope, in
// document ID order. Cancellation is polled before each sub-key query.
func (r *Retriever) Retrieve(ctx context.Context, p pattern.Pattern, scope Scope, fn func(Candidate) error) error {
	possible, keys, err := r.candidates(ctx, p)
	if err != nil {
		return err
	}
	if possible == nil || possible.IsEmpty() {
		return nil
	}
	docs, err := r.reader.DocumentsByIDs(possible.IDs())
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	for _, d := range docs {
		if scope != nil && !scope.Encloses(d) {
			continue
		}
		if err := fn(Candidate{Doc: d, Keys: keys[d.ID]}); err != nil {
			return err
		}
	}
	return nil
}

// DocumentIDs returns the candidate IDs of p without scope filtering.
func (r *Retriever) DocumentIDs(ctx context.Context, p pattern.Pattern) ([]int64, error) {
	possible, _, err := r.candidates(ctx, p)
	if err != nil || possible == nil {
		return nil, err
	}
	return possible.IDs(), nil
}

func (r *Retriever) candidates(ctx context.Context, p pattern.Pattern) (*BitVector, payloads, error) {
	switch p := p.(type) {
	case pattern.MultiKey:
		return r.intersect(ctx, p)
	case pattern.Composite:
		return r.union(ctx, p.Patterns())
	case pattern.Keyed:
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("retrieve: %w", err)
		}
		return r.round(p)
	}
	return nil, nil, fmt.Errorf("retrieve %s: %w", p.Kind(), ErrNotIndexed)
}

// intersect runs one round per sub-key and ANDs the rounds together,
// stopping as soon as the intersection is empty.
func (r *Retriever) intersect(ctx context.Context, p pattern.MultiKey) (*BitVector, payloads, error) {
	var possible *BitVector
	var last payloads
	p.ResetQuery()
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("retrieve: %w", err)
		}
		sub := p.Current()
		if sub == nil {
			return nil, nil, nil
		}
		round, keys, err := r.candidates(ctx, sub)
		if err != nil {
			return nil, nil, err
		}
		if possible == nil {
			possible = round
		} else if !possible.And(round) {
			return nil, nil, nil
		}
		if possible.IsEmpty() {
			return nil, nil, nil
		}
		last = keys
		if !p.HasNextQuery() {
			return possible, last, nil
		}
	}
}

func (r *Retriever) union(ctx context.Context, subs []pattern.Pattern) (*BitVector, payloads, error) {
	all := NewBitVector(0)
	merged := payloads{}
	for _, sub := range subs {
		bv, keys, err := r.candidates(ctx, sub)
		if err != nil {
			return nil, nil, err
		}
		if bv == nil {
			continue
		}
		all.Or(bv)
		for id, ks := range keys {
			merged[id] = append(merged[id], ks...)
		}
	}
	return all, merged, nil
}

// round ORs the posting lists of every entry whose decoded key the pattern
// accepts, across all of the pattern's categories.
func (r *Retriever) round(p pattern.Keyed) (*BitVector, payloads, error) {
	bv := NewBitVector(0)
	keys := payloads{}
	rule := p.Rule()
	prefix := p.IndexKeyPrefix()
	for _, cat := range p.Categories() {
		entries, err := r.reader.EntriesByPrefix(string(cat), prefix, rule.CaseSensitive)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieve %s %q: %w", cat, prefix, err)
		}
		for _, e := range entries {
			k := p.DecodeIndexKey(cat, e.Key)
			if !p.MatchesDecodedKey(k) {
				continue
			}
			for _, id := range e.Docs {
				bv.Set(id)
				keys[id] = append(keys[id], k)
			}
		}
	}
	return bv, keys, nil
}
