package outline

import (
	"testing"

	"wbs-cli/internal/model"
)

func TestCollapse_LeavesAreIgnored(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D"), n("E")), n("C")))
	c := NewCollapse()
	if c.Toggle(tr, "C") || c.Set(tr, "D", true) || c.Toggle(tr, "nope") {
		t.Fatalf("leaf or unknown id changed collapse state")
	}
	c.SetAll(tr, true)
	ids := c.IDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Fatalf("ids=%v", ids)
	}
	if c.AllExpanded(tr) {
		t.Fatalf("expected collapsed state")
	}
	c.SetAll(tr, false)
	if !c.AllExpanded(tr) || len(c.IDs()) != 0 {
		t.Fatalf("expected fully expanded")
	}
}

func TestCollapse_SetReportsChange(t *testing.T) {
	tr := mustTree(t, n("A", n("B")))
	c := NewCollapse()
	if !c.Set(tr, "A", true) {
		t.Fatalf("first set should change")
	}
	if c.Set(tr, "A", true) {
		t.Fatalf("repeat set should not change")
	}
	if !c.Toggle(tr, "A") || c.IsCollapsed("A") {
		t.Fatalf("toggle should expand A")
	}
}

func TestCollapse_SeedStampAndClone(t *testing.T) {
	b := n("B", n("D"))
	b.Collapsed = true
	leaf := n("C")
	leaf.Collapsed = true
	roots := []*model.Node{n("A", b, leaf)}

	c := Seed(roots)
	if !c.IsCollapsed("B") || c.IsCollapsed("C") || c.IsCollapsed("A") {
		t.Fatalf("seed=%v", c.IDs())
	}

	clone := c.Clone()
	tr := mustTree(t, roots...)
	clone.Toggle(tr, "B")
	if !c.IsCollapsed("B") {
		t.Fatalf("clone shares state with original")
	}

	stamped := c.Stamp(roots)
	if !stamped[0].Children[0].Collapsed || stamped[0].Children[1].Collapsed {
		t.Fatalf("stamp wrong: %+v", stamped[0].Children)
	}
	if stamped[0].Children[0] == roots[0].Children[0] {
		t.Fatalf("stamp must copy")
	}

	var nilState *Collapse
	if nilState.IsCollapsed("B") {
		t.Fatalf("nil state collapses nothing")
	}
}

func TestCollapse_SurvivesMove(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D"), n("E")), n("C", n("F"))))
	c := NewCollapse()
	c.Set(tr, "C", true)
	next, err := tr.MoveNode("C", "B", 0)
	if err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	rows := Project(next, c, nil)
	if got := rowIDs(rows); got != "A,B,C,D,E" {
		t.Fatalf("rows=%s", got)
	}
}

func TestCollapse_PruneDropsFlagsOfEmptiedNodes(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D")), n("C", n("F"))))
	c := NewCollapse()
	c.Set(tr, "B", true)
	c.Set(tr, "C", true)

	next, err := tr.MoveNode("D", "A", 0)
	if err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	if got := c.Prune(next); got != 1 {
		t.Fatalf("dropped=%d", got)
	}
	if c.IsCollapsed("B") || !c.IsCollapsed("C") {
		t.Fatalf("ids=%v", c.IDs())
	}

	back, err := next.MoveNode("D", "B", 0)
	if err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	if got := rowIDs(Project(back, c, nil)); got != "A,B,D,C" {
		t.Fatalf("rows=%s", got)
	}
}
