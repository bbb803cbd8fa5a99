// Package dist computes pairwise evolutionary distances between
// aligned sequences and provides the labeled symmetric distance
// matrix shared by tree inference and tree comparison.
package dist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a symmetric distance matrix with a zero diagonal, indexed
// by an ordered list of taxon names. A Matrix is read-only after
// construction.
type Matrix struct {
	names []string
	index map[string]int
	sym   *mat.SymDense
}

// Build constructs a Matrix by calling f for every unordered pair
// i < j. Construction fails atomically on the first error from f and
// on duplicate names.
func Build(names []string, f func(i, j int) (float64, error)) (*Matrix, error) {
	dm, err := newMatrix(names)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			d, err := f(i, j)
			if err != nil {
				return nil, err
			}
			dm.sym.SetSym(i, j, d)
		}
	}
	return dm, nil
}

func newMatrix(names []string) (*Matrix, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("distance matrix without taxa")
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("duplicate taxon name %q", name)
		}
		index[name] = i
	}
	ns := make([]string, len(names))
	copy(ns, names)
	return &Matrix{
		names: ns,
		index: index,
		sym:   mat.NewSymDense(len(names), nil),
	}, nil
}

// Len returns the number of taxa.
func (dm *Matrix) Len() int {
	return len(dm.names)
}

// Names returns taxon names in matrix order.
func (dm *Matrix) Names() []string {
	names := make([]string, len(dm.names))
	copy(names, dm.names)
	return names
}

// Name returns the taxon name of row i.
func (dm *Matrix) Name(i int) string {
	return dm.names[i]
}

// At returns the distance between rows i and j.
func (dm *Matrix) At(i, j int) float64 {
	return dm.sym.At(i, j)
}

// ByName returns the distance between two named taxa.
func (dm *Matrix) ByName(a, b string) (float64, error) {
	i, ok := dm.index[a]
	if !ok {
		return 0, fmt.Errorf("unknown taxon %q", a)
	}
	j, ok := dm.index[b]
	if !ok {
		return 0, fmt.Errorf("unknown taxon %q", b)
	}
	return dm.sym.At(i, j), nil
}

// String renders the matrix in PHYLIP style: taxon count, then one
// row per taxon.
func (dm *Matrix) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d\n", len(dm.names))
	for i, name := range dm.names {
		buf.WriteString(name)
		for j := range dm.names {
			buf.WriteByte('\t')
			buf.WriteString(strconv.FormatFloat(dm.sym.At(i, j), 'g', 6, 64))
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// matrixJSON is the serialized form: names plus the strict upper
// triangle in row order.
type matrixJSON struct {
	Names  []string
	Values []float64
}

// MarshalJSON implements json.Marshaler.
func (dm *Matrix) MarshalJSON() ([]byte, error) {
	n := len(dm.names)
	v := matrixJSON{
		Names:  dm.names,
		Values: make([]float64, 0, n*(n-1)/2),
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v.Values = append(v.Values, dm.sym.At(i, j))
		}
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (dm *Matrix) UnmarshalJSON(data []byte) error {
	var v matrixJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n := len(v.Names)
	if len(v.Values) != n*(n-1)/2 {
		return fmt.Errorf("distance matrix has %d values, expected %d", len(v.Values), n*(n-1)/2)
	}
	k := 0
	got, err := Build(v.Names, func(i, j int) (float64, error) {
		d := v.Values[k]
		k++
		return d, nil
	})
	if err != nil {
		return err
	}
	*dm = *got
	return nil
}
