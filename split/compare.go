package split

import (
	"runtime"
	"sync"

	"github.com/fredericlemoine/bitset"
	"github.com/op/go-logging"

	"github.com/KlausVigo/Manila/dist"
	"github.com/KlausVigo/Manila/tree"
)

var log = logging.MustGetLogger("split")

// RobinsonFoulds returns the Robinson-Foulds distance between two
// trees over the same leaf set: the number of bipartitions present in
// exactly one of them. The result is a non-negative even integer for
// binary trees; trees with different leaf sets are rejected with a
// LeafSetMismatchError (restrict them with tree.Restrict first).
func RobinsonFoulds(a, b *tree.Tree) (int, error) {
	sa, err := Decompose(a)
	if err != nil {
		return 0, err
	}
	sb, err := Decompose(b)
	if err != nil {
		return 0, err
	}
	return rf(sa, sb)
}

func rf(sa, sb *Set) (int, error) {
	if err := sameTaxa(sa, sb); err != nil {
		return 0, err
	}
	d := 0
	for _, sp := range sa.Splits() {
		if !sb.Contains(sp) {
			d++
		}
	}
	for _, sp := range sb.Splits() {
		if !sa.Contains(sp) {
			d++
		}
	}
	return d, nil
}

// SharedSplits returns the splits present in both trees.
func SharedSplits(a, b *tree.Tree) ([]*Split, error) {
	sa, err := Decompose(a)
	if err != nil {
		return nil, err
	}
	sb, err := Decompose(b)
	if err != nil {
		return nil, err
	}
	if err := sameTaxa(sa, sb); err != nil {
		return nil, err
	}
	var shared []*Split
	for _, sp := range sa.Splits() {
		if sb.Contains(sp) {
			shared = append(shared, sp)
		}
	}
	return shared, nil
}

// DifferingSplits returns the splits unique to the first tree and the
// splits unique to the second.
func DifferingSplits(a, b *tree.Tree) ([]*Split, []*Split, error) {
	sa, err := Decompose(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := Decompose(b)
	if err != nil {
		return nil, nil, err
	}
	if err := sameTaxa(sa, sb); err != nil {
		return nil, nil, err
	}
	var onlyA, onlyB []*Split
	for _, sp := range sa.Splits() {
		if !sb.Contains(sp) {
			onlyA = append(onlyA, sp)
		}
	}
	for _, sp := range sb.Splits() {
		if !sa.Contains(sp) {
			onlyB = append(onlyB, sp)
		}
	}
	return onlyA, onlyB, nil
}

// RFMatrix computes the Robinson-Foulds distance for every unordered
// pair of trees and returns the symmetric matrix labeled with the
// supplied names. Pairs are independent and are fanned out over a
// worker pool.
func RFMatrix(trees []*tree.Tree, names []string, threads int) (*dist.Matrix, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	sets := make([]*Set, len(trees))
	for i, t := range trees {
		s, err := Decompose(t)
		if err != nil {
			return nil, err
		}
		sets[i] = s
	}

	type job struct{ i, j, k int }
	n := len(trees)
	nPairs := n * (n - 1) / 2
	values := make([]float64, nPairs)
	errs := make([]error, nPairs)

	jobs := make(chan job, threads)
	var wg sync.WaitGroup
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			for jb := range jobs {
				d, err := rf(sets[jb.i], sets[jb.j])
				values[jb.k], errs[jb.k] = float64(d), err
			}
		}()
	}
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			jobs <- job{i, j, k}
			k++
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	log.Debugf("computed %d pairwise Robinson-Foulds distances", nPairs)

	k = 0
	return dist.Build(names, func(i, j int) (float64, error) {
		d := values[k]
		k++
		return d, nil
	})
}

// AnnotateSupport attaches a bootstrap support value to every
// internal edge of the base tree: the percentage of replicate trees
// containing the same bipartition. The base tree is modified in
// place; replicates are read-only.
func AnnotateSupport(base *tree.Tree, replicates []*tree.Tree) error {
	sb, err := Decompose(base)
	if err != nil {
		return err
	}
	sets := make([]*Set, len(replicates))
	for i, t := range replicates {
		s, err := Decompose(t)
		if err != nil {
			return err
		}
		if err := sameTaxa(sb, s); err != nil {
			return err
		}
		sets[i] = s
	}

	n := uint(len(sb.taxa))
	for node := range base.NonTerminals() {
		if node.IsRoot() {
			continue
		}
		below := bitset.New(n)
		ch := make(chan *tree.Node, node.NSubNodes())
		node.Walk(ch, func(n *tree.Node) bool { return n.IsTerminal() })
		close(ch)
		for leaf := range ch {
			below.Set(uint(sb.index[leaf.Name]))
		}
		sp := sb.canonical(below)
		if sp.trivial() {
			continue
		}
		count := 0
		for _, s := range sets {
			if s.Contains(sp) {
				count++
			}
		}
		node.Support = 100 * float64(count) / float64(len(sets))
	}
	return nil
}
