// Package tree implements the Newick phylogenetic tree used to prepare a
// taxon set for binning. The tree is parsed from the nested-parenthesis
// format and supports two in-place structural edits: pruning a leaf and
// rerooting at an outgroup leaf. Both edits keep branch distance
// bookkeeping consistent for strictly binary trees.
package tree

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is returned for tree text that cannot be parsed:
// unbalanced parentheses, a non-numeric distance, or a tree with too few
// leaves.
var ErrMalformed = errors.New("malformed newick tree")

// Node is a single node of the tree. Leaves carry a name, internal nodes
// usually don't. Parent is a back-reference and is nil for the root.
type Node struct {
	Name       string
	Distance   float64
	Parent     *Node
	Outgroup   bool
	childNodes []*Node
}

// Tree is a rooted tree; it embeds its root node.
type Tree struct {
	*Node
}

// Parse reads a Newick tree. Only the text before the first semicolon is
// honored (Phylip concatenates several trees into one file). Whitespace
// inside the tree text is ignored.
func Parse(rd io.Reader) (*Tree, error) {
	text, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	return ParseString(string(text))
}

// ParseString parses a Newick tree from a string.
func ParseString(text string) (*Tree, error) {
	if i := strings.IndexByte(text, ';'); i >= 0 {
		text = text[:i]
	}
	text = strings.Join(strings.Fields(text), "")
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrMalformed)
	}
	root, err := parseNode(text)
	if err != nil {
		return nil, err
	}
	if len(root.childNodes) <= 1 {
		return nil, fmt.Errorf("%w: not enough leaves", ErrMalformed)
	}
	return &Tree{Node: root}, nil
}

// parseNode recursively parses one node: an optional parenthesized child
// list followed by the node's own name/distance meta text.
func parseNode(text string) (*Node, error) {
	node := &Node{}
	meta := text
	if len(text) > 0 && text[0] == '(' {
		end, err := matchingParen(text, 0)
		if err != nil {
			return nil, err
		}
		meta = text[end+1:]
		children, err := splitSiblings(text[1:end])
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			sub, err := parseNode(child)
			if err != nil {
				return nil, err
			}
			node.AddChild(sub)
		}
	}
	if len(meta) > 0 {
		name, distance, found := strings.Cut(meta, ":")
		node.Name = name
		if found {
			d, err := strconv.ParseFloat(distance, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: expected a number, got %q", ErrMalformed, distance)
			}
			node.Distance = d
		}
	}
	return node, nil
}

// matchingParen returns the index of the parenthesis closing the one at
// start.
func matchingParen(text string, start int) (int, error) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unmatched parentheses", ErrMalformed)
}

// splitSiblings splits a child list on top-level commas; commas inside
// nested parentheses do not split.
func splitSiblings(text string) ([]string, error) {
	var siblings []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unmatched parentheses", ErrMalformed)
			}
		case ',':
			if depth == 0 {
				siblings = append(siblings, text[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unmatched parentheses", ErrMalformed)
	}
	return append(siblings, text[start:]), nil
}

// AddChild appends subNode to the node's children and sets its parent.
func (node *Node) AddChild(subNode *Node) {
	subNode.Parent = node
	node.childNodes = append(node.childNodes, subNode)
}

// removeChild drops subNode from the node's child list. The child keeps
// its parent reference; callers rewire it.
func (node *Node) removeChild(subNode *Node) {
	for i, child := range node.childNodes {
		if child == subNode {
			node.childNodes = append(node.childNodes[:i], node.childNodes[i+1:]...)
			return
		}
	}
}

// ChildNodes returns the ordered child list.
func (node *Node) ChildNodes() []*Node {
	return node.childNodes
}

func (node *Node) IsRoot() bool {
	return node.Parent == nil
}

func (node *Node) IsTerminal() bool {
	return len(node.childNodes) == 0
}

// Walk calls f for the node and all nodes below it, depth first.
func (node *Node) Walk(f func(*Node)) {
	f(node)
	for _, child := range node.childNodes {
		child.Walk(f)
	}
}

func (node *Node) String() (s string) {
	if node.IsTerminal() {
		s = fmt.Sprintf("%s:%0.6f", node.Name, node.Distance)
	} else {
		s += "("
		for i, child := range node.childNodes {
			s += child.String()
			if i != len(node.childNodes)-1 {
				s += ","
			}
		}
		s += fmt.Sprintf(")%s:%0.6f", node.Name, node.Distance)
	}
	if node.IsRoot() {
		s += ";"
	}
	return s
}

// Compare defines a total order on subtrees: leaf name first, then
// distance, then child count, then children pairwise. It is used to sort
// children deterministically after parsing.
func (node *Node) Compare(other *Node) int {
	if c := strings.Compare(node.Name, other.Name); c != 0 {
		return c
	}
	switch {
	case node.Distance < other.Distance:
		return -1
	case node.Distance > other.Distance:
		return 1
	}
	if c := len(node.childNodes) - len(other.childNodes); c != 0 {
		return c
	}
	for i, child := range node.childNodes {
		if c := child.Compare(other.childNodes[i]); c != 0 {
			return c
		}
	}
	return 0
}

// SortChildren orders every child list by Compare, bottom up.
func (node *Node) SortChildren() {
	for _, child := range node.childNodes {
		child.SortChildren()
	}
	sort.SliceStable(node.childNodes, func(i, j int) bool {
		return node.childNodes[i].Compare(node.childNodes[j]) < 0
	})
}

// Compare orders trees by comparing their root subtrees.
func (tree *Tree) Compare(other *Tree) int {
	return tree.Node.Compare(other.Node)
}

// Leaves returns all terminal nodes in traversal order.
func (tree *Tree) Leaves() (leaves []*Node) {
	tree.Walk(func(node *Node) {
		if node.IsTerminal() {
			leaves = append(leaves, node)
		}
	})
	return leaves
}

// NLeaves returns the number of terminal nodes.
func (tree *Tree) NLeaves() int {
	return len(tree.Leaves())
}

// Length returns the sum of all branch distances.
func (tree *Tree) Length() (sum float64) {
	tree.Walk(func(node *Node) {
		sum += node.Distance
	})
	return sum
}

// Leaf returns the terminal node with the given name, or nil.
func (tree *Tree) Leaf(name string) *Node {
	for _, leaf := range tree.Leaves() {
		if leaf.Name == name {
			return leaf
		}
	}
	return nil
}

// Prune removes the named leaf. Internal nodes are assumed strictly
// binary: the leaf's parent is removed too, and the other child is
// promoted to the grandparent with its distance increased by the removed
// parent's distance. If the removed parent was the root, the promoted
// child becomes the new root.
func (tree *Tree) Prune(name string) error {
	leaf := tree.Leaf(name)
	if leaf == nil {
		return fmt.Errorf("no leaf named %q", name)
	}
	if !leaf.IsTerminal() || leaf.IsRoot() {
		return nil
	}
	parent := leaf.Parent
	parent.removeChild(leaf)
	other := parent.childNodes[0]
	other.Distance += parent.Distance
	if parent.IsRoot() {
		other.Parent = nil
		tree.Node = other
	} else {
		grandparent := parent.Parent
		grandparent.removeChild(parent)
		grandparent.AddChild(other)
	}
	return nil
}

// Reroot makes a new root whose two children are the named outgroup leaf
// and the refactored remainder of the tree. The path from the outgroup's
// old parent up to the old root is reversed; the outgroup keeps half its
// original distance and each reversed edge inherits the distance of the
// edge it replaces. The redistribution is only metric-preserving when the
// tree was effectively rooted midway on the outgroup edge.
func (tree *Tree) Reroot(name string) error {
	outgroup := tree.Leaf(name)
	if outgroup == nil {
		return fmt.Errorf("no leaf named %q", name)
	}
	if outgroup.IsRoot() {
		return fmt.Errorf("cannot reroot at the root")
	}
	newRoot := &Node{}
	oldParent := outgroup.Parent
	oldParent.removeChild(outgroup)
	newRoot.AddChild(outgroup)
	distance := outgroup.Distance * 0.5
	oldDistance := oldParent.Distance
	outgroup.Distance = distance
	outgroup.Outgroup = true
	oldParent.Distance = distance
	newParent := newRoot
	for oldParent != tree.Node {
		node := oldParent
		oldParent = node.Parent
		oldParent.removeChild(node)
		newParent.AddChild(node)
		newParent = node
		node.Distance = distance
		distance = oldDistance
		oldDistance = oldParent.Distance
	}
	for _, child := range oldParent.childNodes {
		newParent.AddChild(child)
		distance = child.Distance + distance
		child.Distance = distance
	}
	tree.Node = newRoot
	return nil
}
