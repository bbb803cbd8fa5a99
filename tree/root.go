package tree

import (
	"errors"
	"math"
)

// ErrNotRooted is returned by Unroot on a tree without a bifurcating
// basal node.
var ErrNotRooted = errors.New("tree is not rooted")

// branch lengths may be unset; treat NaN as zero when summing paths.
func lengthOrZero(l float64) float64 {
	if math.IsNaN(l) {
		return 0
	}
	return l
}

func addLengths(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return a + b
}

// Unroot collapses a bifurcating basal node into a trifurcation. The
// two basal edges are merged; the tree is modified in place and
// renumbered. Unrooting a two-leaf tree is an error.
func (tree *Tree) Unroot() error {
	root := tree.Node
	if len(root.childNodes) != 2 {
		return ErrNotRooted
	}
	var pivot, other *Node
	for _, child := range root.childNodes {
		if pivot == nil && !child.IsTerminal() {
			pivot = child
		} else {
			other = child
		}
	}
	if pivot == nil {
		return ErrTreeTooSmall
	}
	merged := addLengths(pivot.BranchLength, other.BranchLength)
	root.RemoveChild(pivot)
	root.RemoveChild(other)
	for _, grandchild := range pivot.ChildNodes() {
		root.AddChild(grandchild)
	}
	other.BranchLength = merged
	root.AddChild(other)
	root.Support = math.NaN()
	tree.Renumber()
	return nil
}

// MidpointRoot returns a copy of the tree rooted at the midpoint of
// the longest leaf-to-leaf path. When the midpoint falls inside an
// edge a new root node is inserted there; when it falls exactly on an
// internal node the tree is rerooted at that node. Ties between
// equally long paths are broken by the smallest leaf id pair, so
// rerooting is deterministic; rerooting an already midpoint-rooted
// tree changes nothing beyond that tie-break rule.
func (tree *Tree) MidpointRoot() (*Tree, error) {
	if tree.NLeaves() < 2 {
		return nil, ErrTreeTooSmall
	}
	t := tree.Copy()

	leaves := make([]*Node, 0, t.NLeaves())
	for leaf := range t.Terminals() {
		leaves = append(leaves, leaf)
	}

	// Longest leaf-to-leaf path over the undirected node graph.
	var best float64 = -1
	var from, to *Node
	for _, leaf := range leaves {
		d, _ := pathsFrom(leaf)
		for _, leaf2 := range leaves {
			if leaf2.LeafID <= leaf.LeafID {
				continue
			}
			if d[leaf2] > best {
				best = d[leaf2]
				from, to = leaf, leaf2
			}
		}
	}

	_, pred := pathsFrom(from)
	path := []*Node{to}
	for n := to; n != from; n = pred[n] {
		path = append(path, pred[n])
	}
	// path runs from -> to
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	mid := best / 2
	acc := 0.0
	root := from
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		l := edgeLength(a, b)
		if acc+l < mid-1e-12 {
			acc += l
			continue
		}
		offset := mid - acc
		switch {
		case offset < 1e-12 && !a.IsTerminal():
			root = a
		case l-offset < 1e-12 && !b.IsTerminal():
			root = b
		default:
			root = splitEdge(a, b, offset)
		}
		break
	}

	t.ClearCache()
	reorient(t, root)
	suppressUnary(t)
	t.Renumber()
	return t, nil
}

// pathsFrom returns path lengths and predecessors from start over the
// undirected node graph.
func pathsFrom(start *Node) (map[*Node]float64, map[*Node]*Node) {
	d := map[*Node]float64{start: 0}
	pred := map[*Node]*Node{}
	queue := []*Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range neighbors(n) {
			if _, ok := d[m]; ok {
				continue
			}
			d[m] = d[n] + edgeLength(n, m)
			pred[m] = n
			queue = append(queue, m)
		}
	}
	return d, pred
}

func neighbors(n *Node) []*Node {
	ns := make([]*Node, 0, len(n.childNodes)+1)
	if n.Parent != nil {
		ns = append(ns, n.Parent)
	}
	ns = append(ns, n.childNodes...)
	return ns
}

// edgeLength returns the length of the edge between two adjacent
// nodes, whichever way it is oriented.
func edgeLength(a, b *Node) float64 {
	if b.Parent == a {
		return lengthOrZero(b.BranchLength)
	}
	return lengthOrZero(a.BranchLength)
}

// splitEdge inserts a new node on the edge between two adjacent nodes
// at the given distance from a, and returns it.
func splitEdge(a, b *Node, offset float64) *Node {
	parent, child := a, b
	fromParent := offset
	if a.Parent == b {
		parent, child = b, a
		fromParent = edgeLength(a, b) - offset
	}
	m := NewNode(nil, 0)
	parent.RemoveChild(child)
	parent.AddChild(m)
	m.AddChild(child)
	m.BranchLength = fromParent
	child.BranchLength = lengthOrZero(child.BranchLength) - fromParent
	return m
}

// reorient makes root the new basal node and re-derives every
// parent/child relation and branch length from it.
func reorient(t *Tree, root *Node) {
	type edge struct {
		to     *Node
		length float64
	}
	adj := make(map[*Node][]edge)
	for node := range t.Walker(nil) {
		for _, child := range node.childNodes {
			l := child.BranchLength
			adj[node] = append(adj[node], edge{child, l})
			adj[child] = append(adj[child], edge{node, l})
		}
	}
	for node := range adj {
		node.childNodes = nil
		node.Parent = nil
	}
	var build func(n, from *Node)
	build = func(n, from *Node) {
		for _, e := range adj[n] {
			if e.to == from {
				continue
			}
			n.AddChild(e.to)
			e.to.BranchLength = e.length
			build(e.to, n)
		}
	}
	build(root, nil)
	root.BranchLength = math.NaN()
	t.Node = root
	t.ClearCache()
}

// suppressUnary collapses internal nodes left with a single child,
// merging the two edge lengths.
func suppressUnary(t *Tree) {
	changed := true
	for changed {
		changed = false
		for node := range t.Walker(nil) {
			if node.IsRoot() || len(node.childNodes) != 1 {
				continue
			}
			child := node.childNodes[0]
			child.BranchLength = addLengths(child.BranchLength, node.BranchLength)
			parent := node.Parent
			parent.RemoveChild(node)
			parent.AddChild(child)
			changed = true
			break
		}
		t.ClearCache()
	}
}

// Restrict returns a copy of the tree containing only the kept leaf
// taxa, with pass-through internal nodes collapsed and their edge
// lengths merged.
func (tree *Tree) Restrict(keep map[string]bool) (*Tree, error) {
	root := restrictNode(tree.Node, keep)
	if root == nil {
		return nil, ErrTreeTooSmall
	}
	for len(root.childNodes) == 1 {
		root = root.childNodes[0]
		root.Parent = nil
		root.BranchLength = math.NaN()
	}
	return New(root), nil
}

func restrictNode(node *Node, keep map[string]bool) *Node {
	if node.IsTerminal() {
		if !keep[node.Name] {
			return nil
		}
		return node.Copy()
	}
	var kept []*Node
	for _, child := range node.childNodes {
		if sub := restrictNode(child, keep); sub != nil {
			kept = append(kept, sub)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		kept[0].BranchLength = addLengths(kept[0].BranchLength, node.BranchLength)
		kept[0].Parent = nil
		return kept[0]
	}
	n := node.Copy()
	for _, child := range kept {
		n.AddChild(child)
	}
	return n
}
