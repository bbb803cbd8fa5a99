// Package infer builds phylogenetic trees from distance matrices:
// Neighbor Joining (unrooted) and UPGMA (rooted, ultrametric), plus
// bootstrap replicate generation for support estimation.
package infer

import (
	"errors"

	"github.com/op/go-logging"

	"github.com/KlausVigo/Manila/dist"
	"github.com/KlausVigo/Manila/tree"
)

var log = logging.MustGetLogger("infer")

// ErrDegenerateMatrix is returned when a distance matrix holds fewer
// than two taxa.
var ErrDegenerateMatrix = errors.New("distance matrix has fewer than two taxa")

// NeighborJoin builds an unrooted tree from a distance matrix with
// the neighbor joining algorithm. The pair minimizing the Q criterion
// is joined each round; ties are broken by the first pair in
// ascending index order, so the result is deterministic for a given
// matrix. Branch lengths produced negative by the NJ formulas are
// clamped to zero.
func NeighborJoin(dm *dist.Matrix) (*tree.Tree, error) {
	n := dm.Len()
	if n < 2 {
		return nil, ErrDegenerateMatrix
	}

	nodes := make([]*tree.Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = tree.NewNode(nil, 0)
		nodes[i].Name = dm.Name(i)
	}
	d := workingMatrix(dm)

	for len(nodes) > 3 {
		m := len(nodes)
		r := make([]float64, m)
		for i := 0; i < m; i++ {
			for k := 0; k < m; k++ {
				r[i] += d[i][k]
			}
		}

		// Pair minimizing Q(i,j) = (m-2)d(i,j) - r(i) - r(j).
		bi, bj := 0, 1
		bestQ := 0.0
		first := true
		for i := 0; i < m; i++ {
			for j := i + 1; j < m; j++ {
				q := float64(m-2)*d[i][j] - r[i] - r[j]
				if first || q < bestQ {
					bi, bj, bestQ = i, j, q
					first = false
				}
			}
		}

		li := 0.5*d[bi][bj] + (r[bi]-r[bj])/(2*float64(m-2))
		lj := d[bi][bj] - li
		u := tree.NewNode(nil, 0)
		joinChild(u, nodes[bi], li)
		joinChild(u, nodes[bj], lj)

		// Reduce: u replaces i, j drops.
		du := make([]float64, m)
		for k := 0; k < m; k++ {
			if k == bi || k == bj {
				continue
			}
			du[k] = 0.5 * (d[bi][k] + d[bj][k] - d[bi][bj])
		}
		nodes[bi] = u
		for k := 0; k < m; k++ {
			d[bi][k] = du[k]
			d[k][bi] = du[k]
		}
		d[bi][bi] = 0
		nodes = remove(nodes, bj)
		d = removeRowCol(d, bj)
	}

	root := tree.NewNode(nil, 0)
	switch len(nodes) {
	case 2:
		joinChild(root, nodes[0], d[0][1]/2)
		joinChild(root, nodes[1], d[0][1]/2)
	case 3:
		joinChild(root, nodes[0], (d[0][1]+d[0][2]-d[1][2])/2)
		joinChild(root, nodes[1], (d[0][1]+d[1][2]-d[0][2])/2)
		joinChild(root, nodes[2], (d[0][2]+d[1][2]-d[0][1])/2)
	}

	t := tree.New(root)
	log.Debugf("neighbor joining: %d leaves, %d nodes", t.NLeaves(), t.NNodes())
	return t, nil
}

// joinChild attaches child to parent with a branch length clamped at
// zero.
func joinChild(parent, child *tree.Node, l float64) {
	if l < 0 {
		l = 0
	}
	child.BranchLength = l
	parent.AddChild(child)
}

func workingMatrix(dm *dist.Matrix) [][]float64 {
	n := dm.Len()
	d := make([][]float64, n)
	for i := 0; i < n; i++ {
		d[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d[i][j] = dm.At(i, j)
		}
	}
	return d
}

func remove(nodes []*tree.Node, i int) []*tree.Node {
	return append(nodes[:i], nodes[i+1:]...)
}

func removeRowCol(d [][]float64, i int) [][]float64 {
	d = append(d[:i], d[i+1:]...)
	for r := range d {
		d[r] = append(d[r][:i], d[r][i+1:]...)
	}
	return d
}
