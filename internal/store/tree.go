package store

import (
	"errors"
	"fmt"
	"strings"

	"wbs-cli/internal/model"
)

// Tree is an immutable ordered forest.
//
// Children slices are the only source of truth for structure. The lookup maps below are
// derived from them and rebuilt whenever a new Tree value is produced.
type Tree struct {
	roots []*model.Node

	// Derived indexes. Not an ownership edge.
	byID   map[string]*model.Node
	parent map[string]string // "" for roots
	index  map[string]int    // position among siblings
	depth  map[string]int
	order  []string // pre-order ids
}

// NewTree builds a tree from a deep copy of roots. The caller keeps ownership of roots.
func NewTree(roots []*model.Node) (*Tree, error) {
	return newTree(model.CloneForest(roots))
}

func newTree(roots []*model.Node) (*Tree, error) {
	t := &Tree{roots: roots}
	if err := t.reindex(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) reindex() error {
	t.byID = map[string]*model.Node{}
	t.parent = map[string]string{}
	t.index = map[string]int{}
	t.depth = map[string]int{}
	t.order = t.order[:0]

	var walk func(nodes []*model.Node, parentID string, depth int) error
	walk = func(nodes []*model.Node, parentID string, depth int) error {
		for i, n := range nodes {
			if n == nil {
				return fmt.Errorf("nil node under %q", parentID)
			}
			id := strings.TrimSpace(n.ID)
			if id == "" || id != n.ID {
				return fmt.Errorf("invalid node id %q under %q", n.ID, parentID)
			}
			if _, dup := t.byID[id]; dup {
				return fmt.Errorf("duplicate node id %q", id)
			}
			t.byID[id] = n
			t.parent[id] = parentID
			t.index[id] = i
			t.depth[id] = depth
			t.order = append(t.order, id)
			if err := walk(n.Children, id, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.roots, "", 0)
}

// Roots returns the root-level nodes. The slice is a copy; the nodes are shared.
func (t *Tree) Roots() []*model.Node {
	return append([]*model.Node(nil), t.roots...)
}

func (t *Tree) Len() int { return len(t.byID) }

// IDs returns every node id in depth-first pre-order.
func (t *Tree) IDs() []string { return append([]string(nil), t.order...) }

func (t *Tree) FindNode(id string) (*model.Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

func (t *Tree) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

// ParentOf returns the parent id of id ("" for a root node).
func (t *Tree) ParentOf(id string) (string, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// IndexOf returns the position of id among its siblings.
func (t *Tree) IndexOf(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

func (t *Tree) Depth(id string) (int, bool) {
	d, ok := t.depth[id]
	return d, ok
}

// ChildrenOf returns the ordered children of parentID; "" addresses the root list.
func (t *Tree) ChildrenOf(parentID string) ([]*model.Node, bool) {
	if parentID == "" {
		return t.Roots(), true
	}
	n, ok := t.byID[parentID]
	if !ok {
		return nil, false
	}
	return append([]*model.Node(nil), n.Children...), true
}

// IsAncestor reports whether nodeID lies in the subtree rooted at candidateAncestorID.
// A node counts as its own ancestor only when inclusive is set.
func (t *Tree) IsAncestor(candidateAncestorID, nodeID string, inclusive bool) bool {
	if !t.Has(candidateAncestorID) || !t.Has(nodeID) {
		return false
	}
	if candidateAncestorID == nodeID {
		return inclusive
	}
	cur := nodeID
	for {
		p := t.parent[cur]
		if p == "" {
			return false
		}
		if p == candidateAncestorID {
			return true
		}
		cur = p
	}
}

// PathTo returns the ids from the root down to id, inclusive.
func (t *Tree) PathTo(id string) []string {
	if !t.Has(id) {
		return nil
	}
	var rev []string
	for cur := id; cur != ""; cur = t.parent[cur] {
		rev = append(rev, cur)
	}
	out := make([]string, len(rev))
	for i := range rev {
		out[len(rev)-1-i] = rev[i]
	}
	return out
}

// SubtreeSize counts id and all of its descendants.
func (t *Tree) SubtreeSize(id string) int {
	n, ok := t.byID[id]
	if !ok {
		return 0
	}
	return countNodes(n)
}

func countNodes(n *model.Node) int {
	total := 1
	for _, ch := range n.Children {
		total += countNodes(ch)
	}
	return total
}

// Walk visits nodes in pre-order. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *model.Node, depth int) bool) {
	var walk func(nodes []*model.Node, depth int)
	walk = func(nodes []*model.Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(t.roots, 0)
}

// Export returns a deep, independent copy of the forest.
func (t *Tree) Export() []*model.Node {
	return model.CloneForest(t.roots)
}

// Shape renders the structure as a compact bracket expression, e.g. "A[B[D,E],C]".
// Roots are separated by commas.
func (t *Tree) Shape() string {
	return ShapeOf(t.roots)
}

func ShapeOf(nodes []*model.Node) string {
	var b strings.Builder
	var write func(nodes []*model.Node)
	write = func(nodes []*model.Node) {
		for i, n := range nodes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(n.ID)
			if len(n.Children) > 0 {
				b.WriteByte('[')
				write(n.Children)
				b.WriteByte(']')
			}
		}
	}
	write(nodes)
	return b.String()
}

// check compares a freshly produced tree against the tree it was derived from. Moves
// must neither create, drop nor duplicate ids.
func (t *Tree) check(op string, before *Tree) {
	if err := t.verify(before); err != nil {
		panic(InvariantError{Op: op, Detail: err.Error()})
	}
}

func (t *Tree) verify(before *Tree) error {
	if len(t.order) != len(t.byID) {
		return errors.New("pre-order length differs from index size")
	}
	if before != nil {
		if t.Len() != before.Len() {
			return fmt.Errorf("node count changed from %d to %d", before.Len(), t.Len())
		}
		for id := range before.byID {
			if !t.Has(id) {
				return fmt.Errorf("node %q dropped", id)
			}
		}
	}
	for id, n := range t.byID {
		p := t.parent[id]
		sibs := t.roots
		if p != "" {
			pn, ok := t.byID[p]
			if !ok {
				return fmt.Errorf("node %q has unknown parent %q", id, p)
			}
			sibs = pn.Children
		}
		i := t.index[id]
		if i < 0 || i >= len(sibs) || sibs[i] != n {
			return fmt.Errorf("parent index stale for %q", id)
		}
		if t.IsAncestor(id, p, false) {
			return fmt.Errorf("cycle through %q", id)
		}
	}
	return nil
}
