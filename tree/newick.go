package tree

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Branch lengths and support values round-trip through the newick
// codec at this precision (significant digits).
const newickPrecision = 6

type parseMode int

const (
	normal parseMode = iota
	length
)

// MalformedNewickError reports a newick parse failure.
type MalformedNewickError struct {
	Msg string
}

func (e *MalformedNewickError) Error() string {
	return "malformed newick: " + e.Msg
}

func malformed(format string, args ...interface{}) error {
	return &MalformedNewickError{Msg: fmt.Sprintf(format, args...)}
}

// IsSpecial tells if a rune is a newick control character.
func IsSpecial(c rune) bool {
	switch c {
	case '(', ')', ':', ';', ',':
		return true
	}
	return false
}

// NewickSplit is a bufio.SplitFunc returning newick control
// characters as single tokens and everything else as words.
func NewickSplit(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	// Skip leading spaces; and return 1-char tokens.
	for width := 0; start < len(data); start += width {
		var r rune
		r, width = utf8.DecodeRune(data[start:])
		if IsSpecial(r) {
			return start + width, data[start : start+width], nil
		}
		if !unicode.IsSpace(r) {
			break
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// Scan until space or special character.
	for width, i := 0, start; i < len(data); i += width {
		var r rune
		r, width = utf8.DecodeRune(data[i:])
		if unicode.IsSpace(r) || IsSpecial(r) {
			return i, data[start:i], nil
		}
	}
	// If we're at EOF, we have a final, non-empty, non-terminated word. Return it.
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	// Request more data.
	return 0, nil, nil
}

// ParseNewick reads a single newick tree from rd.
func ParseNewick(rd io.Reader) (*Tree, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(NewickSplit)
	tree, err := parseOne(scanner)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, malformed("empty input")
	}
	return tree, nil
}

// ReadAll reads every newick tree from rd, one or more per stream,
// each terminated by a semicolon.
func ReadAll(rd io.Reader) ([]*Tree, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Split(NewickSplit)
	var trees []*Tree
	for {
		tree, err := parseOne(scanner)
		if err != nil {
			return nil, err
		}
		if tree == nil {
			break
		}
		trees = append(trees, tree)
	}
	if len(trees) == 0 {
		return nil, malformed("empty input")
	}
	return trees, nil
}

// parseOne consumes tokens up to and including the next semicolon and
// builds the tree. It returns (nil, nil) on a clean end of input.
func parseOne(scanner *bufio.Scanner) (*Tree, error) {
	var root *Node
	var node *Node
	seen := make(map[string]bool)
	mode := normal

	for scanner.Scan() {
		text := scanner.Text()
		if root == nil {
			root = NewNode(nil, 0)
			node = root
		}
		switch text {
		case "(":
			subNode := NewNode(nil, 0)
			node.AddChild(subNode)
			node = subNode

		case ",":
			if node.Parent == nil {
				return nil, malformed("top level comma mismatch")
			}
			subNode := NewNode(nil, 0)
			node.Parent.AddChild(subNode)
			node = subNode

		case ")":
			if node.Parent == nil {
				return nil, malformed("brackets mismatch")
			}
			node = node.Parent

		case ":":
			mode = length

		case ";":
			if node != root {
				return nil, malformed("brackets mismatch")
			}
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return New(root), nil

		default:
			switch mode {
			case length:
				l, err := strconv.ParseFloat(text, 64)
				if err != nil {
					return nil, malformed("bad branch length %q", text)
				}
				node.BranchLength = l
				mode = normal
			default:
				if node.IsTerminal() {
					if seen[text] {
						return nil, malformed("duplicate leaf label %q", text)
					}
					seen[text] = true
					node.Name = text
				} else if s, err := strconv.ParseFloat(text, 64); err == nil {
					// Internal node labels are read as
					// support values when numeric.
					node.Support = s
				} else {
					node.Name = text
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if root != nil {
		return nil, malformed("missing terminating semicolon")
	}
	return nil, nil
}

func formatNewickFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', newickPrecision, 64)
}

func (node *Node) writeNewick(sb *strings.Builder) {
	if node.IsTerminal() {
		sb.WriteString(node.Name)
	} else {
		sb.WriteByte('(')
		for i, child := range node.childNodes {
			if i > 0 {
				sb.WriteByte(',')
			}
			child.writeNewick(sb)
		}
		sb.WriteByte(')')
		if !math.IsNaN(node.Support) {
			sb.WriteString(formatNewickFloat(node.Support))
		} else if node.Name != "" {
			sb.WriteString(node.Name)
		}
	}
	if !node.IsRoot() && !math.IsNaN(node.BranchLength) {
		sb.WriteByte(':')
		sb.WriteString(formatNewickFloat(node.BranchLength))
	}
}

// Newick encodes the tree in newick format, semicolon terminated.
func (tree *Tree) Newick() string {
	var sb strings.Builder
	tree.Node.writeNewick(&sb)
	sb.WriteByte(';')
	return sb.String()
}

// String returns the newick encoding.
func (tree *Tree) String() string {
	return tree.Newick()
}

// LongString returns a one-line debug description of the node.
func (node *Node) LongString() (s string) {
	s = "<"
	if node.Parent == nil {
		s += "root, "
	}
	if node.Name != "" {
		s += "name=" + node.Name + ", "
	}
	s += fmt.Sprintf("ID=%v, BranchLength=%v", node.ID, node.BranchLength)
	if !math.IsNaN(node.Support) {
		s += fmt.Sprintf(", Support=%v", node.Support)
	}
	if node.IsTerminal() {
		s += fmt.Sprintf(", LeafID=%v", node.LeafID)
	}
	s += ">"
	return
}

// FullString returns an indented debug dump of the subtree.
func (node *Node) FullString() string {
	return strings.TrimSpace(node.prefixString(""))
}

func (node *Node) prefixString(prefix string) (s string) {
	s = prefix + node.LongString() + "\n"
	for _, child := range node.childNodes {
		s += child.prefixString(prefix + "    ")
	}
	return
}
