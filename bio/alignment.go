package bio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
)

// ErrNoSequences is returned when an alignment is built from an empty
// sequence set.
var ErrNoSequences = errors.New("alignment without sequences")

// Alignment is a validated multiple sequence alignment: a non-empty
// set of equal-length, bit-encoded nucleotide sequences with unique
// taxon names. An Alignment is read-only after construction.
type Alignment struct {
	names []string
	index map[string]int
	rows  [][]byte
	width int
}

// NewAlignment validates seqs and encodes them into an Alignment.
// It fails on an empty set, on duplicate names, on length mismatch
// and on symbols outside the nucleotide alphabet.
func NewAlignment(seqs Sequences) (*Alignment, error) {
	if len(seqs) == 0 {
		return nil, ErrNoSequences
	}
	aln := &Alignment{
		names: make([]string, len(seqs)),
		index: make(map[string]int, len(seqs)),
		rows:  make([][]byte, len(seqs)),
		width: len(seqs[0].Sequence),
	}
	for i, seq := range seqs {
		if seq.Name == "" {
			return nil, fmt.Errorf("sequence %d has no name", i)
		}
		if _, ok := aln.index[seq.Name]; ok {
			return nil, fmt.Errorf("duplicate sequence name %q", seq.Name)
		}
		if len(seq.Sequence) != aln.width {
			return nil, fmt.Errorf("sequence %q has length %d, expected %d: is this an alignment?",
				seq.Name, len(seq.Sequence), aln.width)
		}
		row := make([]byte, aln.width)
		for j := 0; j < aln.width; j++ {
			e := EncodeNucleotide(seq.Sequence[j])
			if e == 0 {
				return nil, fmt.Errorf("invalid nucleotide %q in sequence %q", seq.Sequence[j], seq.Name)
			}
			row[j] = e
		}
		aln.names[i] = seq.Name
		aln.index[seq.Name] = i
		aln.rows[i] = row
	}
	return aln, nil
}

// NTaxa returns the number of sequences.
func (aln *Alignment) NTaxa() int {
	return len(aln.names)
}

// Length returns the alignment width.
func (aln *Alignment) Length() int {
	return aln.width
}

// Names returns taxon names in alignment order.
func (aln *Alignment) Names() []string {
	names := make([]string, len(aln.names))
	copy(names, aln.names)
	return names
}

// Name returns the taxon name of row i.
func (aln *Alignment) Name(i int) string {
	return aln.names[i]
}

// Row returns the bit-encoded sequence of row i. The returned slice
// must not be modified.
func (aln *Alignment) Row(i int) []byte {
	return aln.rows[i]
}

// GlobalMask returns a column filter for the global gap-exclusion
// policy: mask[j] is true iff column j has a certainly known base in
// every sequence.
func (aln *Alignment) GlobalMask() []bool {
	mask := make([]bool, aln.width)
	for j := 0; j < aln.width; j++ {
		mask[j] = true
		for _, row := range aln.rows {
			if !IsKnown(row[j]) {
				mask[j] = false
				break
			}
		}
	}
	return mask
}

// Bootstrap returns a new alignment of the same names and width with
// columns drawn from aln with replacement.
func (aln *Alignment) Bootstrap(rng *rand.Rand) *Alignment {
	cols := make([]int, aln.width)
	for j := range cols {
		cols[j] = rng.Intn(aln.width)
	}
	b := &Alignment{
		names: aln.names,
		index: aln.index,
		rows:  make([][]byte, len(aln.rows)),
		width: aln.width,
	}
	for i, row := range aln.rows {
		r := make([]byte, aln.width)
		for j, c := range cols {
			r[j] = row[c]
		}
		b.rows[i] = r
	}
	return b
}

// Digest returns a hex digest of the alignment content, usable as a
// cache key.
func (aln *Alignment) Digest() string {
	h := sha256.New()
	for i, name := range aln.names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(aln.rows[i])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
