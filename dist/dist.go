package dist

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/op/go-logging"

	"github.com/KlausVigo/Manila/bio"
)

var log = logging.MustGetLogger("dist")

// GapPolicy selects how alignment columns with gaps or ambiguous
// symbols are excluded from a pairwise comparison.
type GapPolicy int

const (
	// ExcludePairwise drops a column only for the pair under
	// comparison, when either of the two bases is not certainly
	// known.
	ExcludePairwise GapPolicy = iota
	// ExcludeGlobal drops every column with a gap or ambiguity in
	// any sequence of the alignment; the column mask is computed
	// once.
	ExcludeGlobal
)

// GapPolicyFromString returns a gap policy from its name.
func GapPolicyFromString(s string) (GapPolicy, error) {
	switch s {
	case "pairwise":
		return ExcludePairwise, nil
	case "global":
		return ExcludeGlobal, nil
	}
	return ExcludePairwise, fmt.Errorf("unknown gap exclusion policy: %s", s)
}

func (p GapPolicy) String() string {
	if p == ExcludeGlobal {
		return "global"
	}
	return "pairwise"
}

// InsufficientDataError reports a sequence pair left with no
// comparable columns after gap exclusion.
type InsufficientDataError struct {
	TaxonA, TaxonB string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no comparable columns between %q and %q", e.TaxonA, e.TaxonB)
}

// Options control a distance computation.
type Options struct {
	Model    Model
	Policy   GapPolicy
	Threads  int  // worker count, NumCPU when <= 0
	MLRefine bool // refine F81 distances by likelihood maximization
}

// Compute estimates the evolutionary distance for every unordered
// pair of taxa in aln and returns the resulting matrix. Pairs are
// independent and are fanned out over a worker pool.
func Compute(aln *bio.Alignment, opt Options) (*Matrix, error) {
	n := aln.NTaxa()
	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	var mask []bool
	if opt.Policy == ExcludeGlobal {
		mask = aln.GlobalMask()
	}

	type job struct{ i, j, k int }
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
				values[jb.k], errs[jb.k] = pairDistance(aln, jb.i, jb.j, mask, opt)
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
	log.Debugf("computed %d %s distances (%s exclusion)", nPairs, opt.Model, opt.Policy)

	k = 0
	return Build(aln.Names(), func(i, j int) (float64, error) {
		d := values[k]
		k++
		return d, nil
	})
}

func pairDistance(aln *bio.Alignment, i, j int, mask []bool, opt Options) (float64, error) {
	a := aln.Row(i)
	b := aln.Row(j)
	var c pairCounts
	for col := range a {
		if mask != nil {
			if !mask[col] {
				continue
			}
		} else if !bio.IsKnown(a[col]) || !bio.IsKnown(b[col]) {
			continue
		}
		c.add(a[col], b[col])
	}
	if c.l == 0 {
		return 0, &InsufficientDataError{TaxonA: aln.Name(i), TaxonB: aln.Name(j)}
	}
	d := opt.Model.distance(&c)
	if opt.MLRefine && opt.Model == F81 {
		return mlF81Distance(&c, d)
	}
	return d, nil
}
