package tree

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestNewickRoundTrip(tst *testing.T) {
	for _, nwk := range []string{
		"(a:1,b:2,c:4);",
		"((a:1,b:2):3,c:1);",
		"((A:0.1,B:0.2)90:0.05,(C:0.3,D:0.4)75:0.06);",
		"(a,b,(c,d));",
		"((a:1e-05,b:2.5):0.001,c:10);",
	} {
		t, err := ParseNewick(bytes.NewBufferString(nwk))
		if err != nil {
			tst.Fatalf("Error parsing %q: %v", nwk, err)
		}
		if t.String() != nwk {
			tst.Errorf("round trip failed, in=%q out=%q", nwk, t)
		}
	}
}

func TestNewickSupport(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString("((a:1,b:2)87:3,c:1);"))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	var inner *Node
	for node := range t.Walker(func(n *Node) bool {
		return !n.IsTerminal() && !n.IsRoot()
	}) {
		inner = node
	}
	if inner == nil {
		tst.Fatal("no internal node found")
	}
	if inner.Support != 87 {
		tst.Error("wrong support value:", inner.Support)
	}
	if !math.IsNaN(t.Node.Support) {
		tst.Error("root support should be unset, got", t.Node.Support)
	}
}

func TestNewickInternalName(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString("((a:1,b:2)clade:3,c:1);"))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.String() != "((a:1,b:2)clade:3,c:1);" {
		tst.Error("internal name lost:", t)
	}
}

func TestNewickUnsetLengths(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString("((a,b):3,c);"))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.String() != "((a,b):3,c);" {
		tst.Error("unset branch lengths must stay unset:", t)
	}
	for leaf := range t.Terminals() {
		if !math.IsNaN(leaf.BranchLength) {
			tst.Errorf("leaf %s should have no length, got %v",
				leaf.Name, leaf.BranchLength)
		}
	}
}

func TestNewickWhitespace(tst *testing.T) {
	nwk := "( (a : 1,\n\tb : 2) : 3,\n  c : 1) ;"
	t, err := ParseNewick(bytes.NewBufferString(nwk))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.String() != "((a:1,b:2):3,c:1);" {
		tst.Error("wrong tree:", t)
	}
}

func TestNewickMalformed(tst *testing.T) {
	for _, nwk := range []string{
		"((a:1,b:2):3,c:1",
		"((a:1,b:2:3,c:1);",
		"(a:1,b:2)):3;",
		"(a:1,a:2);",
		"(a:x,b:2);",
		"a:1,b:2;",
		"",
	} {
		_, err := ParseNewick(bytes.NewBufferString(nwk))
		if err == nil {
			tst.Errorf("expected parse error for %q", nwk)
			continue
		}
		if _, ok := err.(*MalformedNewickError); !ok {
			tst.Errorf("expected MalformedNewickError for %q, got %v", nwk, err)
		}
	}
}

func TestReadAll(tst *testing.T) {
	in := "(a:1,b:2,c:4);\n((a:1,b:2):3,c:1);\n"
	trees, err := ReadAll(strings.NewReader(in))
	if err != nil {
		tst.Fatal("Error reading trees", err)
	}
	if len(trees) != 2 {
		tst.Fatal("expected 2 trees, got", len(trees))
	}
	if trees[0].String() != "(a:1,b:2,c:4);" {
		tst.Error("wrong first tree:", trees[0])
	}
	if trees[1].String() != "((a:1,b:2):3,c:1);" {
		tst.Error("wrong second tree:", trees[1])
	}
}

func TestNewickPrecision(tst *testing.T) {
	t, err := ParseNewick(bytes.NewBufferString("(a:0.123456789,b:2);"))
	if err != nil {
		tst.Fatal("Error parsing tree", err)
	}
	if t.String() != "(a:0.123457,b:2);" {
		tst.Error("wrong rounding:", t)
	}
}
