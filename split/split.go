// Package split decomposes trees into bipartitions of their leaf set
// and compares trees through them: Robinson-Foulds distances, shared
// and differing splits, and bootstrap support annotation.
package split

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fredericlemoine/bitset"

	"github.com/KlausVigo/Manila/tree"
)

// Split is one bipartition of a fixed, sorted taxon ordering,
// canonicalized so that the side not containing the first taxon is
// stored. Two splits over the same ordering are equal iff their
// bitsets are equal.
type Split struct {
	bits *bitset.BitSet
	set  *Set
}

// Set is the bipartition set of one tree: the non-trivial splits
// induced by its internal edges, over the sorted taxon ordering.
type Set struct {
	taxa   []string
	index  map[string]int
	splits map[string]*Split
}

// LeafSetMismatchError reports a comparison between trees with
// different leaf sets.
type LeafSetMismatchError struct {
	OnlyA, OnlyB []string
}

func (e *LeafSetMismatchError) Error() string {
	return fmt.Sprintf("leaf sets differ: %d taxa only in first tree, %d only in second",
		len(e.OnlyA), len(e.OnlyB))
}

// Decompose returns the bipartition set of a tree. Trivial splits
// (single leaf versus the rest) are omitted; in a rooted tree the two
// basal edges induce the same split and are stored once.
func Decompose(t *tree.Tree) (*Set, error) {
	if t.NLeaves() < 2 {
		return nil, tree.ErrTreeTooSmall
	}
	var taxa []string
	for name := range t.LeafSet() {
		taxa = append(taxa, name)
	}
	sort.Strings(taxa)

	s := &Set{
		taxa:   taxa,
		index:  make(map[string]int, len(taxa)),
		splits: make(map[string]*Split),
	}
	for i, name := range taxa {
		s.index[name] = i
	}

	n := uint(len(taxa))
	below := make(map[*tree.Node]*bitset.BitSet)
	for leaf := range t.Terminals() {
		b := bitset.New(n)
		b.Set(uint(s.index[leaf.Name]))
		below[leaf] = b
	}
	// NodeOrder yields children before their parent, so every child
	// set is ready when its parent is reached.
	for _, node := range t.NodeOrder() {
		b := bitset.New(n)
		for _, child := range node.ChildNodes() {
			cb := below[child]
			for i, ok := cb.NextSet(0); ok; i, ok = cb.NextSet(i + 1) {
				b.Set(i)
			}
		}
		below[node] = b
		if node.IsRoot() {
			continue
		}
		sp := s.canonical(b)
		if !sp.trivial() {
			s.splits[sp.key()] = sp
		}
	}
	return s, nil
}

// canonical flips a leaf bitset so taxon 0 is never included.
func (s *Set) canonical(b *bitset.BitSet) *Split {
	bits := b.Clone()
	if bits.Test(0) {
		flipped := bitset.New(uint(len(s.taxa)))
		for i := uint(0); i < uint(len(s.taxa)); i++ {
			if !bits.Test(i) {
				flipped.Set(i)
			}
		}
		bits = flipped
	}
	return &Split{bits: bits, set: s}
}

// trivial tells if the split separates fewer than two taxa from the
// rest.
func (sp *Split) trivial() bool {
	c := int(sp.bits.Count())
	return c < 2 || c > len(sp.set.taxa)-2
}

func (sp *Split) key() string {
	var sb strings.Builder
	for i, ok := sp.bits.NextSet(0); ok; i, ok = sp.bits.NextSet(i + 1) {
		sb.WriteString(strconv.Itoa(int(i)))
		sb.WriteByte(',')
	}
	return sb.String()
}

// Taxa returns the taxon names on the stored side of the split.
func (sp *Split) Taxa() []string {
	var names []string
	for i, ok := sp.bits.NextSet(0); ok; i, ok = sp.bits.NextSet(i + 1) {
		names = append(names, sp.set.taxa[i])
	}
	return names
}

// String renders the split as its stored side.
func (sp *Split) String() string {
	return strings.Join(sp.Taxa(), "|")
}

// Len returns the number of non-trivial splits.
func (s *Set) Len() int {
	return len(s.splits)
}

// Splits returns the splits in a deterministic order.
func (s *Set) Splits() []*Split {
	keys := make([]string, 0, len(s.splits))
	for k := range s.splits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Split, len(keys))
	for i, k := range keys {
		out[i] = s.splits[k]
	}
	return out
}

// Contains tells if the set holds a split with the same taxon
// bipartition.
func (s *Set) Contains(sp *Split) bool {
	_, ok := s.splits[sp.key()]
	return ok
}

// sameTaxa checks both sets cover the identical taxon list (they are
// sorted, so positional comparison suffices).
func sameTaxa(a, b *Set) error {
	mismatch := &LeafSetMismatchError{}
	for _, name := range a.taxa {
		if _, ok := b.index[name]; !ok {
			mismatch.OnlyA = append(mismatch.OnlyA, name)
		}
	}
	for _, name := range b.taxa {
		if _, ok := a.index[name]; !ok {
			mismatch.OnlyB = append(mismatch.OnlyB, name)
		}
	}
	if len(mismatch.OnlyA) > 0 || len(mismatch.OnlyB) > 0 {
		return mismatch
	}
	return nil
}
