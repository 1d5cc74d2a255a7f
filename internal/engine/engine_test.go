package engine

import (
	"context"
	"testing"

	"wbs-cli/internal/model"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/store"
)

func n(id string, children ...*model.Node) *model.Node {
	return &model.Node{ID: id, Task: model.Task{Name: id}, Children: children}
}

func newABDEC(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(&model.Snapshot{Nodes: []*model.Node{n("A", n("B", n("D"), n("E")), n("C"))}}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

type memRecorder struct{ entries []store.JournalEntry }

func (m *memRecorder) Append(_ context.Context, e store.JournalEntry) (store.JournalEntry, error) {
	m.entries = append(m.entries, e)
	return e, nil
}

func TestEngine_DropCommitsAndRenumbers(t *testing.T) {
	e := newABDEC(t)
	out := e.Drop(mutate.Drop{SourceID: "D", OverID: "C", OffsetX: 24, Half: mutate.HalfLower})
	if out.Status != StatusApplied || !out.Changed {
		t.Fatalf("outcome=%+v", out)
	}
	if e.Tree().Shape() != "A[B[E],C[D]]" || out.Tree != e.Tree() {
		t.Fatalf("shape=%q", e.Tree().Shape())
	}
	codes := e.Codes()
	if codes["D"] != "1.2.1" || codes["E"] != "1.1.1" {
		t.Fatalf("codes=%v", codes)
	}
	rows := e.Rows()
	if len(rows) != 5 || rows[4].ID != "D" || rows[4].Code != "1.2.1" {
		t.Fatalf("rows=%+v", rows)
	}
	if e.Gesture() != mutate.GestureIdle {
		t.Fatalf("gesture=%s", e.Gesture())
	}
}

func TestEngine_RejectionLeavesStateUntouched(t *testing.T) {
	e := newABDEC(t, WithPolicy(mutate.SiblingOnly{}))
	before := e.Tree()
	out := e.Drop(mutate.Drop{SourceID: "D", OverID: "C"})
	if out.Status != StatusRejected || out.Reason != store.ReasonDifferentLevel {
		t.Fatalf("outcome=%+v", out)
	}
	if e.Tree() != before {
		t.Fatalf("tree replaced on rejection")
	}
	out = e.Drop(mutate.Drop{SourceID: "A", OverID: "B"})
	if out.Reason != store.ReasonCyclicMove {
		t.Fatalf("outcome=%+v", out)
	}
}

func TestEngine_DragEndWithoutStartIsIgnored(t *testing.T) {
	e := newABDEC(t)
	before := e.Tree()
	out := e.DragEnd()
	if out.Status != StatusIgnored || out.Changed {
		t.Fatalf("outcome=%+v", out)
	}
	if e.Tree() != before {
		t.Fatalf("tree replaced")
	}
}

func TestEngine_CancelAppliesNothing(t *testing.T) {
	e := newABDEC(t)
	before := e.Tree()
	if !e.DragStart("D") {
		t.Fatalf("DragStart refused")
	}
	e.DragOver("C", 24, mutate.HalfLower)
	if d, ok := e.Pending(); !ok || d.OverID != "C" {
		t.Fatalf("pending=%+v ok=%v", d, ok)
	}
	if !e.DragCancel() {
		t.Fatalf("DragCancel reported nothing to cancel")
	}
	if out := e.DragEnd(); out.Status != StatusIgnored {
		t.Fatalf("outcome after cancel=%+v", out)
	}
	if e.Tree() != before {
		t.Fatalf("tree replaced")
	}
}

func TestEngine_PreviewDoesNotApply(t *testing.T) {
	e := newABDEC(t)
	if _, err := e.Preview(); err == nil {
		t.Fatalf("preview without a drag succeeded")
	}
	before := e.Tree()
	e.DragStart("D")
	e.DragOver("C", 24, mutate.HalfLower)
	in, err := e.Preview()
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if in.ParentID != "C" || in.Index != 0 || in.Level != mutate.LevelChild {
		t.Fatalf("intent=%+v", in)
	}
	if e.Tree() != before || e.Gesture() != mutate.GestureDragging {
		t.Fatalf("preview changed state")
	}
}

func TestEngine_ReleaseOutsideIsIgnored(t *testing.T) {
	e := newABDEC(t)
	e.DragStart("D")
	out := e.DragEnd()
	if out.Status != StatusIgnored {
		t.Fatalf("outcome=%+v", out)
	}
	if e.Gesture() != mutate.GestureCancelled {
		t.Fatalf("gesture=%s", e.Gesture())
	}
}

func TestEngine_DragStartNeedsVisibleRow(t *testing.T) {
	e := newABDEC(t)
	e.ToggleCollapse("B")
	if e.DragStart("D") {
		t.Fatalf("started dragging a hidden row")
	}
	if e.DragStart("Z") {
		t.Fatalf("started dragging an unknown row")
	}
}

func TestEngine_CollapseCommands(t *testing.T) {
	e := newABDEC(t)
	if e.ToggleCollapse("C") {
		t.Fatalf("leaf toggled")
	}
	if !e.ToggleCollapse("B") || len(e.Rows()) != 3 {
		t.Fatalf("rows=%d", len(e.Rows()))
	}
	// Not everything is expanded, so flipping expands all.
	if e.FlipCollapseAll() {
		t.Fatalf("expected expand-all")
	}
	if len(e.Rows()) != 5 {
		t.Fatalf("rows=%d", len(e.Rows()))
	}
	if !e.FlipCollapseAll() || len(e.Rows()) != 1 {
		t.Fatalf("expected collapse-all, rows=%d", len(e.Rows()))
	}
	e.ToggleCollapseAll(false)
	if len(e.Collapsed()) != 0 {
		t.Fatalf("collapsed=%v", e.Collapsed())
	}
}

func TestEngine_ResetIsIdempotent(t *testing.T) {
	b := n("B", n("D"), n("E"))
	b.Collapsed = true
	e, err := New(&model.Snapshot{Nodes: []*model.Node{n("A", b, n("C"))}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	initialRows := len(e.Rows())
	if initialRows != 3 {
		t.Fatalf("seeded collapse not applied: %d rows", initialRows)
	}

	e.ToggleCollapseAll(false)
	e.Drop(mutate.Drop{SourceID: "D", OverID: "C", OffsetX: 24, Half: mutate.HalfLower})
	e.DragStart("E")

	e.Reset()
	first := e.Tree().Shape()
	firstRows := len(e.Rows())
	e.Reset()
	if e.Tree().Shape() != first || len(e.Rows()) != firstRows {
		t.Fatalf("reset not idempotent: %q/%d vs %q/%d", first, firstRows, e.Tree().Shape(), len(e.Rows()))
	}
	if first != "A[B[D,E],C]" || firstRows != initialRows {
		t.Fatalf("reset did not restore snapshot: %q rows=%d", first, firstRows)
	}
	if e.Gesture() != mutate.GestureIdle {
		t.Fatalf("gesture=%s", e.Gesture())
	}
}

func TestEngine_MoveDirect(t *testing.T) {
	e := newABDEC(t)
	out := e.Move("E", "", 0)
	if out.Status != StatusApplied || e.Tree().Shape() != "E,A[B[D],C]" {
		t.Fatalf("outcome=%+v shape=%q", out, e.Tree().Shape())
	}
	out = e.Move("E", "", 0)
	if out.Status != StatusApplied || out.Changed {
		t.Fatalf("no-op outcome=%+v", out)
	}
	out = e.Move("A", "D", 0)
	if out.Status != StatusRejected || out.Reason != store.ReasonCyclicMove {
		t.Fatalf("outcome=%+v", out)
	}
}

func TestEngine_MoveRespectsSiblingPolicy(t *testing.T) {
	e := newABDEC(t, WithPolicy(mutate.SiblingOnly{}))
	before := e.Tree()

	out := e.Move("D", "C", 0)
	if out.Status != StatusRejected || out.Reason != store.ReasonDifferentLevel {
		t.Fatalf("outcome=%+v", out)
	}
	if e.Tree() != before {
		t.Fatalf("tree replaced on rejection")
	}
	if out = e.Move("B", "", 0); out.Reason != store.ReasonDifferentLevel {
		t.Fatalf("outdent outcome=%+v", out)
	}

	out = e.Move("D", "B", 1)
	if out.Status != StatusApplied || e.Tree().Shape() != "A[B[E,D],C]" {
		t.Fatalf("reorder outcome=%+v shape=%q", out, e.Tree().Shape())
	}
	if out = e.Move("Z", "B", 0); out.Reason != store.ReasonNotFound {
		t.Fatalf("unknown source outcome=%+v", out)
	}
}

func TestEngine_EmptiedNodeForgetsCollapse(t *testing.T) {
	e := newABDEC(t)
	e.ToggleCollapse("B")
	e.Move("D", "C", 0)
	e.Move("E", "C", 1)
	if got := e.Collapsed(); len(got) != 0 {
		t.Fatalf("collapsed=%v", got)
	}

	out := e.Move("D", "B", 0)
	if out.Status != StatusApplied || len(e.Rows()) != 5 {
		t.Fatalf("outcome=%+v rows=%d", out, len(e.Rows()))
	}
}

func TestEngine_ExportStampsCollapse(t *testing.T) {
	e := newABDEC(t)
	e.ToggleCollapse("B")
	nodes := e.Export()
	if !nodes[0].Children[0].Collapsed {
		t.Fatalf("export lost collapse flag")
	}
	nodes[0].Children = nil
	if e.Tree().Shape() != "A[B[D,E],C]" {
		t.Fatalf("export aliases live tree")
	}
}

func TestEngine_ExportDoesNotLeakIntoReset(t *testing.T) {
	a := n("A", n("B"))
	a.Extra = map[string]any{"tags": []any{"x"}, "meta": map[string]any{"k": "v"}}
	snap := &model.Snapshot{Nodes: []*model.Node{a}}
	e, err := New(snap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := e.Export()
	out[0].Extra["tags"].([]any)[0] = "changed"
	out[0].Extra["meta"].(map[string]any)["k"] = "changed"
	e.Reset()

	got := e.Export()[0].Extra
	if got["tags"].([]any)[0] != "x" || got["meta"].(map[string]any)["k"] != "v" {
		t.Fatalf("after reset extra=%v", got)
	}
	live, _ := e.Tree().FindNode("A")
	if live.Extra["tags"].([]any)[0] != "x" {
		t.Fatalf("live extra=%v", live.Extra)
	}
	if a.Extra["tags"].([]any)[0] != "x" || a.Extra["meta"].(map[string]any)["k"] != "v" {
		t.Fatalf("input snapshot changed: %v", a.Extra)
	}
}

func TestEngine_RecordsJournalAndMetrics(t *testing.T) {
	rec := &memRecorder{}
	m := NewMetrics()
	e := newABDEC(t, WithRecorder(rec), WithMetrics(m))

	e.Drop(mutate.Drop{SourceID: "D", OverID: "C", OffsetX: 24, Half: mutate.HalfLower})
	e.Drop(mutate.Drop{SourceID: "A", OverID: "B"})
	e.ToggleCollapse("A")

	if len(rec.entries) != 3 {
		t.Fatalf("entries=%+v", rec.entries)
	}
	if rec.entries[0].Status != "applied" || rec.entries[1].Reason != string(store.ReasonCyclicMove) || rec.entries[2].Type != "toggle" {
		t.Fatalf("entries=%+v", rec.entries)
	}

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap["wbs_drops_total{reason=none,status=applied}"] != 1 {
		t.Fatalf("metrics=%v", snap)
	}
	if snap["wbs_drops_total{reason=cyclic_move,status=rejected}"] != 1 {
		t.Fatalf("metrics=%v", snap)
	}
	if snap["wbs_visible_rows"] != 1 || snap["wbs_nodes"] != 5 {
		t.Fatalf("metrics=%v", snap)
	}
}

func TestNew_RejectsInvalidSnapshot(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil snapshot")
	}
	if _, err := New(&model.Snapshot{Nodes: []*model.Node{n("A", n("A"))}}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
