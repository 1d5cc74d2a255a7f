package outline

import (
	"testing"

	"wbs-cli/internal/model"
)

func TestProject_ExpandedIsPreOrder(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D"), n("E")), n("C")))
	rows := Project(tr, NewCollapse(), nil)
	if got := rowIDs(rows); got != "A,B,D,E,C" {
		t.Fatalf("rows=%s", got)
	}
	d := rows[2]
	if d.Depth != 2 || d.ParentID != "B" || d.Code != "1.1.1" || d.Index != 0 {
		t.Fatalf("row D=%+v", d)
	}
	if !rows[1].HasChildren || rows[4].HasChildren {
		t.Fatalf("HasChildren wrong: %+v %+v", rows[1], rows[4])
	}
}

func TestProject_CollapsedHidesDescendants(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D"), n("E")), n("C")))
	c := NewCollapse()
	if !c.Toggle(tr, "B") {
		t.Fatalf("toggle B reported no change")
	}
	rows := Project(tr, c, nil)
	if got := rowIDs(rows); got != "A,B,C" {
		t.Fatalf("rows=%s", got)
	}
	if !rows[1].Collapsed || rows[1].Hidden != 2 {
		t.Fatalf("row B=%+v", rows[1])
	}

	hidden := 0
	for _, r := range rows {
		hidden += r.Hidden
	}
	if len(rows) != tr.Len()-hidden {
		t.Fatalf("visible=%d total=%d hidden=%d", len(rows), tr.Len(), hidden)
	}
}

func TestProject_NestedCollapseCountsOnce(t *testing.T) {
	tr := mustTree(t, n("A", n("B", n("D", n("F")), n("E")), n("C")))
	c := NewCollapse()
	c.Set(tr, "D", true)
	c.Set(tr, "A", true)
	rows := Project(tr, c, nil)
	if got := rowIDs(rows); got != "A" {
		t.Fatalf("rows=%s", got)
	}
	if rows[0].Hidden != 5 {
		t.Fatalf("hidden=%d", rows[0].Hidden)
	}
	c.Set(tr, "A", false)
	rows = Project(tr, c, nil)
	if got := rowIDs(rows); got != "A,B,D,E,C" {
		t.Fatalf("rows=%s", got)
	}
}

func TestProject_ChildProgressCountsDirectChildrenOnly(t *testing.T) {
	a := n("A", n("B", n("D"), n("E")), n("C"))
	a.Children[1].Status = model.StatusCompleted
	a.Children[0].Children[0].Status = model.StatusCompleted
	tr := mustTree(t, a)
	rows := All(tr, nil)
	if rows[0].DoneChildren != 1 || rows[0].TotalChildren != 2 {
		t.Fatalf("A progress=%d/%d", rows[0].DoneChildren, rows[0].TotalChildren)
	}
	if rows[1].DoneChildren != 1 || rows[1].TotalChildren != 2 {
		t.Fatalf("B progress=%d/%d", rows[1].DoneChildren, rows[1].TotalChildren)
	}
}

func TestRollup(t *testing.T) {
	a := n("A", n("B"), n("C"))
	a.Children[0].Progress = 100
	a.Children[1].Progress = 50
	got := Rollup([]*model.Node{a})
	if got["A"] != 75 {
		t.Fatalf("rollup=%v", got)
	}
	if _, ok := got["B"]; ok {
		t.Fatalf("leaves have no rollup")
	}
}

func TestIndexOfRow(t *testing.T) {
	tr := mustTree(t, n("A", n("B")))
	rows := All(tr, nil)
	if IndexOfRow(rows, "B") != 1 || IndexOfRow(rows, "Z") != -1 {
		t.Fatalf("IndexOfRow wrong")
	}
}
