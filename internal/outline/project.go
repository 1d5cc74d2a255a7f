package outline

import (
	"wbs-cli/internal/model"
	"wbs-cli/internal/store"
)

// Row is one visible line of the outline.
type Row struct {
	ID       string      `json:"id"`
	ParentID string      `json:"parentId,omitempty"`
	Depth    int         `json:"depth"`
	Index    int         `json:"index"`
	Code     string      `json:"wbs"`
	Task     model.Task  `json:"task"`
	Node     *model.Node `json:"-"`

	HasChildren bool `json:"hasChildren"`
	Collapsed   bool `json:"collapsed"`
	// Hidden counts the descendants suppressed because this row is collapsed.
	Hidden int `json:"hidden,omitempty"`

	// Direct-children progress cookie.
	DoneChildren  int `json:"doneChildren,omitempty"`
	TotalChildren int `json:"totalChildren,omitempty"`
}

// Project flattens t into the rows currently visible under c: a pre-order walk that
// emits a collapsed node but none of its descendants. codes may be nil, in which case
// they are computed.
func Project(t *store.Tree, c *Collapse, codes map[string]string) []Row {
	if codes == nil {
		codes = Number(t.Roots())
	}
	out := make([]Row, 0, t.Len())
	var walk func(nodes []*model.Node, parentID string, depth int)
	walk = func(nodes []*model.Node, parentID string, depth int) {
		for i, n := range nodes {
			collapsed := c.IsCollapsed(n.ID) && !n.IsLeaf()
			done, total := childProgress(n)
			row := Row{
				ID:            n.ID,
				ParentID:      parentID,
				Depth:         depth,
				Index:         i,
				Code:          codes[n.ID],
				Task:          n.Task,
				Node:          n,
				HasChildren:   !n.IsLeaf(),
				Collapsed:     collapsed,
				DoneChildren:  done,
				TotalChildren: total,
			}
			if collapsed {
				row.Hidden = t.SubtreeSize(n.ID) - 1
			}
			out = append(out, row)
			if collapsed {
				continue
			}
			walk(n.Children, n.ID, depth+1)
		}
	}
	walk(t.Roots(), "", 0)
	return out
}

// All returns every node as a row, ignoring collapse state.
func All(t *store.Tree, codes map[string]string) []Row {
	return Project(t, NewCollapse(), codes)
}

// childProgress counts completed direct children. Deeper descendants do not inflate
// the denominator.
func childProgress(n *model.Node) (done, total int) {
	for _, ch := range n.Children {
		total++
		if ch.Status == model.StatusCompleted || ch.Progress >= 100 {
			done++
		}
	}
	return done, total
}

// Rollup returns, for every internal node, the mean progress of its direct children.
func Rollup(roots []*model.Node) map[string]int {
	out := map[string]int{}
	var walk func(nodes []*model.Node)
	walk = func(nodes []*model.Node) {
		for _, n := range nodes {
			if len(n.Children) > 0 {
				sum := 0
				for _, ch := range n.Children {
					sum += ch.Progress
				}
				out[n.ID] = sum / len(n.Children)
			}
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

// IndexOfRow returns the position of id in rows, or -1.
func IndexOfRow(rows []Row, id string) int {
	for i := range rows {
		if rows[i].ID == id {
			return i
		}
	}
	return -1
}
