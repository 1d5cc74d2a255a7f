package outline

import (
	"sort"

	"wbs-cli/internal/model"
	"wbs-cli/internal/store"
)

// Collapse tracks which internal nodes are collapsed. It is independent of structure:
// a flag survives moves of the node and only ever affects projection.
type Collapse struct {
	ids map[string]bool
}

// NewCollapse returns a fully expanded state.
func NewCollapse() *Collapse {
	return &Collapse{ids: map[string]bool{}}
}

// Seed builds a collapse state from the Collapsed flags of a forest's internal nodes.
func Seed(roots []*model.Node) *Collapse {
	c := NewCollapse()
	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			if n.Collapsed && len(n.Children) > 0 {
				c.ids[n.ID] = true
			}
			walk(n.Children)
		}
	}
	walk(roots)
	return c
}

func (c *Collapse) IsCollapsed(id string) bool {
	if c == nil {
		return false
	}
	return c.ids[id]
}

// Toggle flips id's flag. Leaves and unknown ids are left alone; the return value
// reports whether anything changed.
func (c *Collapse) Toggle(t *store.Tree, id string) bool {
	n, ok := t.FindNode(id)
	if !ok || n.IsLeaf() {
		return false
	}
	if c.ids[id] {
		delete(c.ids, id)
	} else {
		c.ids[id] = true
	}
	return true
}

// Set forces id's flag. Like Toggle it ignores leaves.
func (c *Collapse) Set(t *store.Tree, id string, collapsed bool) bool {
	n, ok := t.FindNode(id)
	if !ok || n.IsLeaf() {
		return false
	}
	if c.ids[id] == collapsed {
		return false
	}
	if collapsed {
		c.ids[id] = true
	} else {
		delete(c.ids, id)
	}
	return true
}

// SetAll collapses or expands every internal node of t.
func (c *Collapse) SetAll(t *store.Tree, collapsed bool) {
	c.ids = map[string]bool{}
	if !collapsed {
		return
	}
	t.Walk(func(n *model.Node, _ int) bool {
		if !n.IsLeaf() {
			c.ids[n.ID] = true
		}
		return true
	})
}

// Prune drops flags for ids that are gone from t or no longer have children, so a node
// that loses its last child does not hide whatever is moved under it later. It reports
// how many flags were dropped.
func (c *Collapse) Prune(t *store.Tree) int {
	dropped := 0
	for id := range c.ids {
		if n, ok := t.FindNode(id); ok && !n.IsLeaf() {
			continue
		}
		delete(c.ids, id)
		dropped++
	}
	return dropped
}

// AllExpanded reports whether no internal node of t is collapsed.
func (c *Collapse) AllExpanded(t *store.Tree) bool {
	all := true
	t.Walk(func(n *model.Node, _ int) bool {
		if !n.IsLeaf() && c.ids[n.ID] {
			all = false
		}
		return all
	})
	return all
}

// IDs returns the collapsed ids in sorted order.
func (c *Collapse) IDs() []string {
	out := make([]string, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Collapse) Clone() *Collapse {
	out := NewCollapse()
	for id, v := range c.ids {
		if v {
			out.ids[id] = true
		}
	}
	return out
}

// Stamp returns a deep copy of roots whose Collapsed flags mirror c.
func (c *Collapse) Stamp(roots []*model.Node) []*model.Node {
	out := model.CloneForest(roots)
	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			n.Collapsed = c.IsCollapsed(n.ID)
			walk(n.Children)
		}
	}
	walk(out)
	return out
}
