package infer

import (
	"testing"

	"github.com/KlausVigo/Manila/bio"
	"github.com/KlausVigo/Manila/dist"
)

// mustMatrix builds a distance matrix from the upper triangle given in
// row-major pair order.
func mustMatrix(tst *testing.T, names []string, upper []float64) *dist.Matrix {
	tst.Helper()
	k := 0
	dm, err := dist.Build(names, func(i, j int) (float64, error) {
		d := upper[k]
		k++
		return d, nil
	})
	if err != nil {
		tst.Fatal("Error building matrix", err)
	}
	return dm
}

func TestNeighborJoinAdditive(tst *testing.T) {
	// Distances generated by the tree ((A:1,B:1):2,C:1,D:1); an
	// additive matrix must be recovered exactly.
	dm := mustMatrix(tst, []string{"A", "B", "C", "D"},
		[]float64{2, 4, 4, 4, 4, 2})
	t, err := NeighborJoin(dm)
	if err != nil {
		tst.Fatal("Error building tree", err)
	}
	if t.String() != "((A:1,B:1):2,C:1,D:1);" {
		tst.Error("wrong tree:", t)
	}
	if t.IsRooted() {
		tst.Error("neighbor joining tree must be unrooted")
	}
}

func TestNeighborJoinThreeTaxa(tst *testing.T) {
	dm := mustMatrix(tst, []string{"A", "B", "C"}, []float64{3, 4, 5})
	t, err := NeighborJoin(dm)
	if err != nil {
		tst.Fatal("Error building tree", err)
	}
	if t.String() != "(A:1,B:2,C:3);" {
		tst.Error("wrong tree:", t)
	}
}

func TestNeighborJoinTwoTaxa(tst *testing.T) {
	dm := mustMatrix(tst, []string{"A", "B"}, []float64{3})
	t, err := NeighborJoin(dm)
	if err != nil {
		tst.Fatal("Error building tree", err)
	}
	if t.String() != "(A:1.5,B:1.5);" {
		tst.Error("wrong tree:", t)
	}
}

func TestNeighborJoinLeafSet(tst *testing.T) {
	names := []string{"t1", "t2", "t3", "t4", "t5"}
	dm := mustMatrix(tst, names,
		[]float64{3, 5, 7, 9, 4, 6, 8, 5, 7, 6})
	t, err := NeighborJoin(dm)
	if err != nil {
		tst.Fatal("Error building tree", err)
	}
	leaves := t.LeafSet()
	if len(leaves) != len(names) {
		tst.Fatal("wrong number of leaves:", len(leaves))
	}
	for _, name := range names {
		if !leaves[name] {
			tst.Error("missing leaf", name)
		}
	}
}

func TestNeighborJoinDegenerate(tst *testing.T) {
	dm := mustMatrix(tst, []string{"A"}, nil)
	if _, err := NeighborJoin(dm); err != ErrDegenerateMatrix {
		tst.Error("expected ErrDegenerateMatrix, got", err)
	}
}

func TestNeighborJoinNegativeBranchClamp(tst *testing.T) {
	// A non-additive matrix that drives one NJ branch length
	// negative; it must come out as zero.
	dm := mustMatrix(tst, []string{"A", "B", "C"}, []float64{1, 1, 4})
	t, err := NeighborJoin(dm)
	if err != nil {
		tst.Fatal("Error building tree", err)
	}
	for leaf := range t.Terminals() {
		if leaf.BranchLength < 0 {
			tst.Errorf("negative branch length at %s: %v",
				leaf.Name, leaf.BranchLength)
		}
	}
}

func TestBootstrapNJReproducible(tst *testing.T) {
	aln, err := bio.NewAlignment(bio.Sequences{
		{Name: "A", Sequence: "ACGTACGTACGTACGTAAAA"},
		{Name: "B", Sequence: "ACGTACGTACGTACGAAAAA"},
		{Name: "C", Sequence: "ACGTACGTACGAACGTTTTT"},
		{Name: "D", Sequence: "ACGAACGTACGAACGTTTTT"},
	})
	if err != nil {
		tst.Fatal("Error building alignment", err)
	}
	opt := dist.Options{Model: dist.JC69, Threads: 1}
	trees1, err := BootstrapNJ(aln, opt, 5, 42)
	if err != nil {
		tst.Fatal("Error bootstrapping", err)
	}
	trees2, err := BootstrapNJ(aln, opt, 5, 42)
	if err != nil {
		tst.Fatal("Error bootstrapping", err)
	}
	if len(trees1) != 5 || len(trees2) != 5 {
		tst.Fatal("wrong replicate counts:", len(trees1), len(trees2))
	}
	for i := range trees1 {
		if trees1[i].String() != trees2[i].String() {
			tst.Errorf("replicate %d differs: %s vs %s",
				i, trees1[i], trees2[i])
		}
	}
}
