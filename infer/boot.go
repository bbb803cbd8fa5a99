package infer

import (
	"math/rand"

	"github.com/KlausVigo/Manila/bio"
	"github.com/KlausVigo/Manila/dist"
	"github.com/KlausVigo/Manila/tree"
)

// BootstrapNJ resamples the alignment columns n times and infers a
// neighbor joining tree from each replicate under the given distance
// options. Replicates are reproducible for a fixed seed; use the
// result with split.AnnotateSupport to attach support values to a
// base tree.
func BootstrapNJ(aln *bio.Alignment, opt dist.Options, n int, seed int64) ([]*tree.Tree, error) {
	rng := rand.New(rand.NewSource(seed))
	trees := make([]*tree.Tree, 0, n)
	for i := 0; i < n; i++ {
		rep := aln.Bootstrap(rng)
		dm, err := dist.Compute(rep, opt)
		if err != nil {
			// A replicate can lose all comparable columns for
			// a gappy pair even when the original alignment
			// has them; skip it rather than fail the run.
			if _, ok := err.(*dist.InsufficientDataError); ok {
				log.Warningf("skipping bootstrap replicate %d: %v", i, err)
				continue
			}
			return nil, err
		}
		t, err := NeighborJoin(dm)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	log.Infof("built %d bootstrap trees", len(trees))
	return trees, nil
}
