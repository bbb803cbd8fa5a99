// Package bio provides nucleotide sequences and multiple sequence
// alignments.
package bio

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Bit-coded IUPAC nucleotide alphabet. Each of the four high bits
// stands for one of A, G, C, T; ambiguity codes set several bits.
// Bit 3 (value 8) marks a certainly known base, so x&8 == 8 holds
// exactly for A, C, G and T.
const (
	NucA = 136
	NucG = 72
	NucC = 40
	NucT = 24
)

var encoding [256]byte

func init() {
	codes := map[byte]byte{
		'A': NucA, 'G': NucG, 'C': NucC, 'T': NucT, 'U': NucT,
		'R': 192, 'M': 160, 'W': 144, 'S': 96, 'K': 80, 'Y': 48,
		'V': 224, 'H': 176, 'D': 208, 'B': 112, 'N': 240,
		'-': 244, '?': 242,
	}
	for c, e := range codes {
		encoding[c] = e
		if c >= 'A' && c <= 'Z' {
			encoding[c+'a'-'A'] = e
		}
	}
}

// EncodeNucleotide returns the bit-coded value of a nucleotide
// symbol, or 0 for a symbol outside the alphabet.
func EncodeNucleotide(c byte) byte {
	return encoding[c]
}

// IsKnown tells if a bit-coded nucleotide is one of A, C, G, T.
func IsKnown(e byte) bool {
	return e&8 == 8
}

// Sequence is a type which is intended for storing a nucleotide
// sequence with its name.
type Sequence struct {
	Name     string
	Sequence string
}

// Sequences stores multiple sequences. E.g. a sequence alignment.
type Sequences []Sequence

// ParseFasta parses FASTA sequences from a reader.
func ParseFasta(rd io.Reader) (seqs Sequences, err error) {
	seqs = make(Sequences, 0, 10)
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			seq := Sequence{Name: strings.TrimSpace(line[1:])}
			seqs = append(seqs, seq)
		} else {
			if len(seqs) == 0 {
				return nil, errors.New("sequence w/o prefix")
			}
			line = strings.ToUpper(strings.Replace(line, " ", "", -1))
			seqs[len(seqs)-1].Sequence += line
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return
}

// Wrap inputs a string and wraps it so string length is n characters
// or less.
func Wrap(seq string, n int) (s string) {
	for i := 0; i < len(seq); i += n {
		end := i + n
		if end > len(seq) {
			end = len(seq)
		}
		s += seq[i:end] + "\n"
	}
	return
}

// String returns a sequence in FASTA format.
func (seq Sequence) String() (s string) {
	s = ">" + seq.Name + "\n" + Wrap(seq.Sequence, 80)
	return
}

// String returns sequences in FASTA format.
func (seqs Sequences) String() (s string) {
	for _, seq := range seqs {
		s += seq.String()
	}
	return s[:len(s)-1]
}
