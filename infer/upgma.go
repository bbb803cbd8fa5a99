package infer

import (
	"github.com/KlausVigo/Manila/dist"
	"github.com/KlausVigo/Manila/tree"
)

// UPGMA builds a rooted ultrametric tree from a distance matrix by
// average-linkage agglomerative clustering. The closest cluster pair
// is merged each round at half its distance; ties are broken by the
// first pair in ascending index order. Every leaf ends up at the same
// distance from the root.
func UPGMA(dm *dist.Matrix) (*tree.Tree, error) {
	n := dm.Len()
	if n < 2 {
		return nil, ErrDegenerateMatrix
	}

	nodes := make([]*tree.Node, n)
	heights := make([]float64, n)
	sizes := make([]int, n)
	for i := 0; i < n; i++ {
		nodes[i] = tree.NewNode(nil, 0)
		nodes[i].Name = dm.Name(i)
		sizes[i] = 1
	}
	d := workingMatrix(dm)

	for len(nodes) > 1 {
		m := len(nodes)
		bi, bj := 0, 1
		for i := 0; i < m; i++ {
			for j := i + 1; j < m; j++ {
				if d[i][j] < d[bi][bj] {
					bi, bj = i, j
				}
			}
		}

		height := d[bi][bj] / 2
		u := tree.NewNode(nil, 0)
		joinChild(u, nodes[bi], height-heights[bi])
		joinChild(u, nodes[bj], height-heights[bj])

		// Size-weighted average linkage update.
		si, sj := float64(sizes[bi]), float64(sizes[bj])
		for k := 0; k < m; k++ {
			if k == bi || k == bj {
				continue
			}
			dk := (si*d[bi][k] + sj*d[bj][k]) / (si + sj)
			d[bi][k] = dk
			d[k][bi] = dk
		}
		nodes[bi] = u
		heights[bi] = height
		sizes[bi] += sizes[bj]

		nodes = remove(nodes, bj)
		heights = append(heights[:bj], heights[bj+1:]...)
		sizes = append(sizes[:bj], sizes[bj+1:]...)
		d = removeRowCol(d, bj)
	}

	t := tree.New(nodes[0])
	log.Debugf("upgma: %d leaves, %d nodes", t.NLeaves(), t.NNodes())
	return t, nil
}
