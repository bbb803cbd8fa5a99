package dist

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/KlausVigo/Manila/bio"
)

const floatTol = 1e-9

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func mustAlign(t *testing.T, seqs bio.Sequences) *bio.Alignment {
	t.Helper()
	aln, err := bio.NewAlignment(seqs)
	if err != nil {
		t.Fatal("Error building alignment", err)
	}
	return aln
}

func TestRawDistance(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "ACGA"},
	})
	dm, err := Compute(aln, Options{Model: Raw, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(dm.At(0, 1), 0.25, floatTol) {
		t.Errorf("expected 0.25, got %v", dm.At(0, 1))
	}
}

func TestJC69HandComputed(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "ACGA"},
	})
	dm, err := Compute(aln, Options{Model: JC69, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	// p = 1/4: -3/4 * ln(1 - 4p/3)
	if !almostEqual(dm.At(0, 1), 0.30409883108112323, floatTol) {
		t.Errorf("expected 0.304099, got %v", dm.At(0, 1))
	}
}

func TestK80HandComputed(t *testing.T) {
	// Two transitions (A<->G at 0, C<->T at 5) in ten sites:
	// P = 0.2, Q = 0.
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGTACGTAC"},
		{Name: "b", Sequence: "GCGTATGTAC"},
	})
	dm, err := Compute(aln, Options{Model: K80, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(dm.At(0, 1), 0.25541281188299536, floatTol) {
		t.Errorf("expected 0.255413, got %v", dm.At(0, 1))
	}
}

func TestF81HandComputed(t *testing.T) {
	// a = ACGT, b = GCGT: p = 1/4, combined base counts
	// A:1 C:2 G:3 T:2, b = 1 - sum(pi^2) = 0.71875.
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "GCGT"},
	})
	dm, err := Compute(aln, Options{Model: F81, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(dm.At(0, 1), 0.30722538565686286, floatTol) {
		t.Errorf("expected 0.307225, got %v", dm.At(0, 1))
	}
}

func TestIdenticalSequencesZeroDistance(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGTACGT"},
		{Name: "b", Sequence: "ACGTACGT"},
	})
	for _, model := range []Model{Raw, JC69, K80, F81} {
		dm, err := Compute(aln, Options{Model: model, Threads: 1})
		if err != nil {
			t.Fatal(model, err)
		}
		if dm.At(0, 1) != 0 {
			t.Errorf("%s: expected 0, got %v", model, dm.At(0, 1))
		}
	}
}

func TestSaturatedPairIsInf(t *testing.T) {
	// All sites differ: the JC69 logarithm argument drops below zero.
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "AAAA"},
		{Name: "b", Sequence: "CCCC"},
	})
	dm, err := Compute(aln, Options{Model: JC69, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(dm.At(0, 1), 1) {
		t.Errorf("expected +Inf, got %v", dm.At(0, 1))
	}
}

func TestMatrixInvariants(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGTACGTAA"},
		{Name: "b", Sequence: "ACGAACGTAC"},
		{Name: "c", Sequence: "ACTTACGAAC"},
		{Name: "d", Sequence: "GCGTACTTAC"},
	})
	dm, err := Compute(aln, Options{Model: F81, Threads: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < dm.Len(); i++ {
		if dm.At(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) = %v", i, i, dm.At(i, i))
		}
		for j := 0; j < dm.Len(); j++ {
			if dm.At(i, j) != dm.At(j, i) {
				t.Errorf("asymmetry at (%d,%d)", i, j)
			}
			if i != j && dm.At(i, j) < 0 {
				t.Errorf("negative distance at (%d,%d)", i, j)
			}
		}
	}
}

func TestGapExclusionPolicies(t *testing.T) {
	// Column 0 has a gap in c only. Under pairwise exclusion the
	// a/b comparison still uses it; under global exclusion nobody
	// does.
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "GCGT"},
		{Name: "c", Sequence: "-CGT"},
	})
	pw, err := Compute(aln, Options{Model: Raw, Policy: ExcludePairwise, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(pw.At(0, 1), 0.25, floatTol) {
		t.Errorf("pairwise a/b: expected 0.25, got %v", pw.At(0, 1))
	}

	gl, err := Compute(aln, Options{Model: Raw, Policy: ExcludeGlobal, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if gl.At(0, 1) != 0 {
		t.Errorf("global a/b: expected 0, got %v", gl.At(0, 1))
	}
}

func TestInsufficientData(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "AC--"},
		{Name: "b", Sequence: "--GT"},
	})
	_, err := Compute(aln, Options{Model: JC69, Threads: 1})
	ide, ok := err.(*InsufficientDataError)
	if !ok {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ide.TaxonA != "a" || ide.TaxonB != "b" {
		t.Errorf("wrong pair in error: %v", ide)
	}
}

func TestByName(t *testing.T) {
	aln := mustAlign(t, bio.Sequences{
		{Name: "a", Sequence: "ACGT"},
		{Name: "b", Sequence: "ACGA"},
	})
	dm, err := Compute(aln, Options{Model: Raw, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	d, err := dm.ByName("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(d, 0.25, floatTol) {
		t.Errorf("expected 0.25, got %v", d)
	}
	if _, err := dm.ByName("a", "nope"); err == nil {
		t.Error("expected unknown taxon error")
	}
}

func TestMatrixJSONRoundTrip(t *testing.T) {
	dm, err := Build([]string{"a", "b", "c"}, func(i, j int) (float64, error) {
		return float64(i + j), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(dm)
	if err != nil {
		t.Fatal(err)
	}
	got := &Matrix{}
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatal(err)
	}
	if got.Len() != 3 || got.Name(2) != "c" {
		t.Fatalf("wrong decoded matrix: %v", got.Names())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if got.At(i, j) != dm.At(i, j) {
				t.Errorf("value mismatch at (%d,%d)", i, j)
			}
		}
	}
}

func TestF81GradientMatchesNumericDiff(t *testing.T) {
	obj := &f81Objective{nSame: 30, nDiff: 10, pi2: 0.28125, b: 0.71875}
	const h = 1e-7
	for _, d := range []float64{0.05, 0.3, 1.2} {
		g := obj.EvaluateGradient([]float64{d})[0]
		num := (obj.EvaluateFunction([]float64{d + h}) - obj.EvaluateFunction([]float64{d - h})) / (2 * h)
		if !almostEqual(g, num, 1e-4) {
			t.Errorf("d=%v: analytic %v vs numeric %v", d, g, num)
		}
	}
}

func TestF81ClosedFormIsStationary(t *testing.T) {
	// The closed-form F81 distance maximizes the pairwise
	// likelihood, so the gradient there must vanish.
	c := &pairCounts{l: 40, d: 10, base: [4]int{10, 30, 20, 20}}
	d := F81.distance(c)
	b := f81B(c)
	obj := &f81Objective{nSame: 30, nDiff: 10, pi2: 1 - b, b: b}
	g := obj.EvaluateGradient([]float64{d})[0]
	if !almostEqual(g, 0, 1e-6) {
		t.Errorf("gradient at closed form = %v", g)
	}
}
