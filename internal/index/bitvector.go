// Package index computes candidate documents for a pattern from the inverted
// index by intersecting posting lists held as bit vectors.
package index

import "math/bits"

const wordBits = 64

// BitVector is a set of document IDs, one bit per ID. ID 0 is reserved and
// never stored.
type BitVector struct {
	words []uint64
}

// NewBitVector returns a vector sized for IDs up to maxID.
func NewBitVector(maxID int64) *BitVector {
	return &BitVector{words: make([]uint64, maxID/wordBits+1)}
}

// Set adds id. Non-positive IDs are ignored.
func (b *BitVector) Set(id int64) {
	if id <= 0 {
		return
	}
	w := int(id / wordBits)
	if w >= len(b.words) {
		grown := make([]uint64, w+1)
		copy(grown, b.words)
		b.words = grown
	}
	b.words[w] |= 1 << uint(id%wordBits)
}

// Has reports whether id is in the set.
func (b *BitVector) Has(id int64) bool {
	if id <= 0 {
		return false
	}
	w := int(id / wordBits)
	return w < len(b.words) && b.words[w]&(1<<uint(id%wordBits)) != 0
}

// Or adds every ID of o.
func (b *BitVector) Or(o *BitVector) {
	if len(o.words) > len(b.words) {
		grown := make([]uint64, len(o.words))
		copy(grown, b.words)
		b.words = grown
	}
	for i, w := range o.words {
		b.words[i] |= w
	}
}

// And keeps only IDs also in o. It reports whether any ID survives.
func (b *BitVector) And(o *BitVector) bool {
	nonEmpty := false
	for i := range b.words {
		if i < len(o.words) {
			b.words[i] &= o.words[i]
		} else {
			b.words[i] = 0
		}
		if b.words[i] != 0 {
			nonEmpty = true
		}
	}
	return nonEmpty
}

// IsEmpty reports whether no ID is set.
func (b *BitVector) IsEmpty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of IDs in the set.
func (b *BitVector) Len() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// IDs returns the set's IDs in ascending order.
func (b *BitVector) IDs() []int64 {
	ids := make([]int64, 0, b.Len())
	for i, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			ids = append(ids, int64(i*wordBits+tz))
			w &= w - 1
		}
	}
	return ids
}
