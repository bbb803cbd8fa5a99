package dist

import (
	"fmt"
	"math"
)

// Model is a nucleotide substitution model with a closed-form
// pairwise distance.
type Model int

const (
	// Raw is the observed proportion of differing sites (p-distance).
	Raw Model = iota
	// JC69 is the Jukes-Cantor one-parameter model.
	JC69
	// K80 is the Kimura two-parameter model separating transitions
	// and transversions.
	K80
	// F81 is the Felsenstein model with unequal base frequencies.
	F81
)

// ModelFromString returns a model from its lower-case name.
func ModelFromString(s string) (Model, error) {
	switch s {
	case "raw":
		return Raw, nil
	case "jc69", "jc":
		return JC69, nil
	case "k80":
		return K80, nil
	case "f81":
		return F81, nil
	}
	return Raw, fmt.Errorf("unknown substitution model: %s", s)
}

func (m Model) String() string {
	switch m {
	case Raw:
		return "raw"
	case JC69:
		return "jc69"
	case K80:
		return "k80"
	case F81:
		return "f81"
	}
	return fmt.Sprintf("model(%d)", int(m))
}

// pairCounts accumulates what the distance formulas need from the
// comparable columns of one sequence pair.
type pairCounts struct {
	l    int    // comparable columns
	d    int    // differing columns
	ts1  int    // purine transitions (A<->G)
	ts2  int    // pyrimidine transitions (C<->T)
	base [4]int // A, G, C, T counts over both sequences
}

func (c *pairCounts) add(a, b byte) {
	c.l++
	for _, e := range [2]byte{a, b} {
		switch e {
		case 136: // A
			c.base[0]++
		case 72: // G
			c.base[1]++
		case 40: // C
			c.base[2]++
		case 24: // T
			c.base[3]++
		}
	}
	if a == b {
		return
	}
	c.d++
	switch a | b {
	case 200: // one A, one G
		c.ts1++
	case 56: // one C, one T
		c.ts2++
	}
}

// distance evaluates the model's closed-form distance. A saturated
// pair (a logarithm argument dropping to zero or below) yields +Inf.
func (m Model) distance(c *pairCounts) float64 {
	l := float64(c.l)
	p := float64(c.d) / l
	switch m {
	case Raw:
		return p
	case JC69:
		w := 1 - 4*p/3
		if w <= 0 {
			return math.Inf(1)
		}
		return -0.75 * math.Log(w)
	case K80:
		ts := float64(c.ts1+c.ts2) / l
		tv := p - ts
		w1 := 1 - 2*ts - tv
		w2 := 1 - 2*tv
		if w1 <= 0 || w2 <= 0 {
			return math.Inf(1)
		}
		return -0.5*math.Log(w1) - 0.25*math.Log(w2)
	case F81:
		b := f81B(c)
		w := 1 - p/b
		if w <= 0 {
			return math.Inf(1)
		}
		return -b * math.Log(w)
	}
	return math.NaN()
}

// f81B returns b = 1 - sum(pi^2) from the pair's empirical base
// frequencies.
func f81B(c *pairCounts) float64 {
	total := float64(c.base[0] + c.base[1] + c.base[2] + c.base[3])
	b := 1.0
	for _, n := range c.base {
		pi := float64(n) / total
		b -= pi * pi
	}
	return b
}
