package mutate

import "testing"

func TestGesture_EndWithoutStartIsNoop(t *testing.T) {
	var g Gesture
	if _, ok := g.End(); ok {
		t.Fatalf("End without Start produced a drop")
	}
	if g.Cancel() {
		t.Fatalf("Cancel without Start reported a change")
	}
	if g.Over("A", 0, HalfAuto) {
		t.Fatalf("Over without Start accepted")
	}
	if g.State() != GestureIdle {
		t.Fatalf("state=%s", g.State())
	}
}

func TestGesture_FullCycle(t *testing.T) {
	var g Gesture
	if !g.Start("D") || g.State() != GestureDragging {
		t.Fatalf("Start failed, state=%s", g.State())
	}
	g.Over("E", 10, HalfUpper)
	g.Over("C", 24, HalfLower)
	cur, ok := g.Current()
	if !ok || cur.OverID != "C" || cur.OffsetX != 24 {
		t.Fatalf("current=%+v ok=%v", cur, ok)
	}
	d, ok := g.End()
	if !ok || d.SourceID != "D" || d.OverID != "C" || d.Half != HalfLower {
		t.Fatalf("drop=%+v ok=%v", d, ok)
	}
	if g.State() != GestureApplying {
		t.Fatalf("state=%s", g.State())
	}
	if g.Start("E") {
		t.Fatalf("Start accepted while applying")
	}
	g.Finish()
	if g.State() != GestureIdle {
		t.Fatalf("state=%s", g.State())
	}
}

func TestGesture_ReleaseOutsideCancels(t *testing.T) {
	var g Gesture
	g.Start("D")
	g.Over("C", 0, HalfAuto)
	g.Over("", 0, HalfAuto)
	if _, ok := g.End(); ok {
		t.Fatalf("release outside produced a drop")
	}
	if g.State() != GestureCancelled {
		t.Fatalf("state=%s", g.State())
	}
	if !g.Start("E") {
		t.Fatalf("could not start after cancel")
	}
	if !g.Cancel() || g.State() != GestureCancelled {
		t.Fatalf("cancel failed, state=%s", g.State())
	}
	if _, ok := g.Current(); ok {
		t.Fatalf("cancelled gesture still has a drop")
	}
}
