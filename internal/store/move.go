package store

import (
	"wbs-cli/internal/model"
)

// MoveNode detaches the subtree rooted at sourceID and inserts it at index among the
// children of newParentID ("" for the root list).
//
// index is interpreted in the destination list *after removing* the source and is
// clamped to [0, len]. The receiver is never modified: the result is a new Tree that
// shares every subtree not on the path to the old or new parent. A move that leaves the
// source where it was returns the receiver itself.
func (t *Tree) MoveNode(sourceID, newParentID string, index int) (*Tree, error) {
	src, ok := t.byID[sourceID]
	if !ok {
		return nil, notFound(sourceID)
	}
	if newParentID != "" && !t.Has(newParentID) {
		return nil, notFound(newParentID)
	}
	if sourceID == newParentID {
		return nil, reject(ReasonSelfMove, sourceID, newParentID, "")
	}
	if newParentID != "" && t.IsAncestor(sourceID, newParentID, false) {
		return nil, reject(ReasonCyclicMove, sourceID, newParentID, newParentID+" is a descendant of "+sourceID)
	}

	oldParentID := t.parent[sourceID]
	oldIndex := t.index[sourceID]

	destLen := t.childCount(newParentID)
	if oldParentID == newParentID {
		destLen--
	}
	if index < 0 {
		index = 0
	}
	if index > destLen {
		index = destLen
	}
	if oldParentID == newParentID && index == oldIndex {
		return t, nil
	}

	roots := t.rewriteChildren(t.roots, t.PathTo(oldParentID), func(ch []*model.Node) []*model.Node {
		return removeNode(ch, sourceID)
	})
	// Ancestors of the destination are unaffected by the detach: the destination is not
	// inside the moved subtree.
	roots = t.rewriteChildren(roots, t.PathTo(newParentID), func(ch []*model.Node) []*model.Node {
		return insertNode(ch, index, src)
	})

	next, err := newTree(roots)
	if err != nil {
		panic(InvariantError{Op: "move", Detail: err.Error()})
	}
	next.check("move", t)
	return next, nil
}

func (t *Tree) childCount(parentID string) int {
	if parentID == "" {
		return len(t.roots)
	}
	return len(t.byID[parentID].Children)
}

// rewriteChildren copies the spine along path (root..parent ids) and replaces the
// children of the last node with fn's result. An empty path addresses the root list.
func (t *Tree) rewriteChildren(nodes []*model.Node, path []string, fn func([]*model.Node) []*model.Node) []*model.Node {
	if len(path) == 0 {
		return fn(nodes)
	}
	out := append([]*model.Node(nil), nodes...)
	for i, n := range out {
		if n.ID != path[0] {
			continue
		}
		cp := *n
		cp.Children = t.rewriteChildren(n.Children, path[1:], fn)
		out[i] = &cp
		return out
	}
	panic(InvariantError{Op: "move", Detail: "path node " + path[0] + " missing"})
}

func removeNode(nodes []*model.Node, id string) []*model.Node {
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == id {
			continue
		}
		out = append(out, n)
	}
	return out
}

func insertNode(nodes []*model.Node, idx int, n *model.Node) []*model.Node {
	if idx < 0 {
		idx = 0
	}
	if idx > len(nodes) {
		idx = len(nodes)
	}
	out := make([]*model.Node, 0, len(nodes)+1)
	out = append(out, nodes[:idx]...)
	out = append(out, n)
	out = append(out, nodes[idx:]...)
	return out
}
