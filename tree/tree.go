// Package tree provides the phylogenetic tree structure shared by
// tree inference and tree comparison, together with the newick codec
// and rerooting operations.
package tree

import (
	"errors"
	"math"
)

// ErrTreeTooSmall is returned by operations that need at least two
// leaves.
var ErrTreeTooSmall = errors.New("tree has fewer than two leaves")

// Tree is a rooted or unrooted phylogenetic tree. An unrooted tree is
// represented with a trifurcating (or higher degree) basal node.
type Tree struct {
	*Node
	nNodes    int
	nodes     []*Node
	nodeOrder []*Node
}

// New creates a tree from a root node and renumbers node and leaf
// ids in preorder.
func New(root *Node) *Tree {
	t := &Tree{Node: root}
	t.Renumber()
	return t
}

// Renumber reassigns node ids in preorder and leaf ids in leaf
// preorder, and drops cached node lists.
func (tree *Tree) Renumber() {
	tree.ClearCache()
	nodeID := 0
	leafID := 0
	var walk func(*Node)
	walk = func(node *Node) {
		node.ID = nodeID
		nodeID++
		if node.IsTerminal() {
			node.LeafID = leafID
			leafID++
		}
		for _, child := range node.childNodes {
			walk(child)
		}
	}
	walk(tree.Node)
}

// ClearCache drops cached node lists; call after structural changes.
func (tree *Tree) ClearCache() {
	tree.nNodes = 0
	tree.nodes = nil
	tree.nodeOrder = nil
}

// NNodes returns the number of nodes in the tree.
func (tree *Tree) NNodes() int {
	if tree.nNodes == 0 {
		tree.nNodes = tree.NSubNodes()
	}
	return tree.nNodes
}

// Nodes returns all nodes indexed by id.
func (tree *Tree) Nodes() []*Node {
	if tree.nodes == nil {
		tree.nodes = make([]*Node, tree.NNodes())
		for node := range tree.Walker(nil) {
			tree.nodes[node.ID] = node
		}
	}
	return tree.nodes
}

// Terminals returns a channel with all the leaves.
func (tree *Tree) Terminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return node.IsTerminal()
	})
}

// NonTerminals returns a channel with all the internal nodes.
func (tree *Tree) NonTerminals() <-chan *Node {
	return tree.Walker(func(node *Node) bool {
		return !node.IsTerminal()
	})
}

// NLeaves returns the number of leaves.
func (tree *Tree) NLeaves() (i int) {
	for range tree.Terminals() {
		i++
	}
	return
}

// LeafSet returns the set of leaf taxon names.
func (tree *Tree) LeafSet() map[string]bool {
	set := make(map[string]bool)
	for node := range tree.Terminals() {
		set[node.Name] = true
	}
	return set
}

// Walker returns a channel with all the nodes matching filter, in
// preorder.
func (tree *Tree) Walker(filter func(*Node) bool) <-chan *Node {
	ch := make(chan *Node, tree.NNodes())
	tree.Walk(ch, filter)
	close(ch)
	return ch
}

// Copy creates an independent copy of the tree.
func (tree *Tree) Copy() (newTree *Tree) {
	nNodes := tree.NNodes()
	newTree = &Tree{
		nNodes: nNodes,
		nodes:  make([]*Node, nNodes),
	}

	for i, node := range tree.Nodes() {
		if i != node.ID {
			panic("node id mismatch")
		}
		newTree.nodes[i] = node.Copy()
	}

	// Rewire node/parent connections.
	for i, node := range tree.Nodes() {
		newNode := newTree.nodes[i]
		for _, child := range node.childNodes {
			newNode.AddChild(newTree.nodes[child.ID])
		}
	}

	newTree.Node = newTree.nodes[tree.Node.ID]
	newTree.Node.Parent = nil

	return
}

// NodeOrder returns internal nodes in an order where children always
// come before their parent (postorder over internal nodes).
func (tree *Tree) NodeOrder() []*Node {
	if tree.nodeOrder == nil {
		tree.nodeOrder = make([]*Node, 0, tree.NNodes())
		computed := make(map[*Node]bool, tree.NNodes())
		awaiting := make(chan *Node, tree.NNodes()*2)
		for node := range tree.Terminals() {
			computed[node] = true
			awaiting <- node.Parent
		}

		for node := range awaiting {
			if node == nil {
				break
			}
			if computed[node] {
				continue
			}
			allComputed := true
			for _, childNode := range node.ChildNodes() {
				if !computed[childNode] {
					allComputed = false
					break
				}
			}
			if !allComputed {
				awaiting <- node
			} else {
				tree.nodeOrder = append(tree.nodeOrder, node)
				computed[node] = true
				awaiting <- node.Parent
			}
		}
	}
	return tree.nodeOrder
}

// IsRooted tells if the basal node is a bifurcation.
func (tree *Tree) IsRooted() bool {
	return len(tree.Node.childNodes) == 2
}

// Node is a node of a phylogenetic tree. A leaf carries a taxon name;
// an internal node may carry a support value. BranchLength is the
// length of the edge to the parent, NaN when unset.
type Node struct {
	Name         string
	BranchLength float64
	Support      float64
	Parent       *Node
	childNodes   []*Node
	ID           int
	LeafID       int
}

// NewNode creates a new node with unset branch length and support.
func NewNode(parent *Node, nodeID int) (node *Node) {
	node = &Node{
		Parent:       parent,
		ID:           nodeID,
		BranchLength: math.NaN(),
		Support:      math.NaN(),
	}
	return
}

// Copy creates a copy of the node with empty parent and children.
func (node *Node) Copy() *Node {
	return &Node{
		Name:         node.Name,
		BranchLength: node.BranchLength,
		Support:      node.Support,
		childNodes:   make([]*Node, 0, len(node.childNodes)),
		ID:           node.ID,
		LeafID:       node.LeafID,
	}
}

// AddChild adds a child node.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// RemoveChild detaches a direct child.
func (node *Node) RemoveChild(subNode *Node) {
	for i, child := range node.childNodes {
		if child == subNode {
			node.childNodes = append(node.childNodes[:i], node.childNodes[i+1:]...)
			subNode.Parent = nil
			return
		}
	}
}

// ChildNodes returns the direct children.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

// Walk sends node and all its descendants matching filter to ch.
func (node *Node) Walk(ch chan *Node, filter func(*Node) bool) {
	if filter == nil || filter(node) {
		ch <- node
	}
	for _, child := range node.childNodes {
		child.Walk(ch, filter)
	}
}

// NSubNodes returns the number of nodes in the subtree, including the
// node itself.
func (node *Node) NSubNodes() (size int) {
	for _, child := range node.childNodes {
		size += child.NSubNodes()
	}
	return size + 1
}

// IsRoot tells if the node has no parent.
func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

// IsTerminal tells if the node is a leaf.
func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}
