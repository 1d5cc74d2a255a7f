package mutate

import "strings"

type GestureState int

const (
	GestureIdle GestureState = iota
	GestureDragging
	GestureApplying
	GestureCancelled
)

func (s GestureState) String() string {
	switch s {
	case GestureIdle:
		return "idle"
	case GestureDragging:
		return "dragging"
	case GestureApplying:
		return "applying"
	case GestureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Gesture is the drag session state machine:
//
//	Idle --Start--> Dragging --End(with target)--> Applying --Finish--> Idle
//	                Dragging --Cancel / End(no target)--> Cancelled --Start--> Dragging
//
// Only discrete calls move it; there are no timers. End and Cancel outside a drag are
// no-ops.
type Gesture struct {
	state GestureState
	drop  Drop
}

func (g *Gesture) State() GestureState { return g.state }

// Current returns the in-flight drop (source, over, offset) while dragging.
func (g *Gesture) Current() (Drop, bool) {
	if g.state != GestureDragging {
		return Drop{}, false
	}
	return g.drop, true
}

// Start begins dragging sourceID. Starting while already dragging restarts the session.
// It is refused only while a previous drop is being applied.
func (g *Gesture) Start(sourceID string) bool {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" || g.state == GestureApplying {
		return false
	}
	g.state = GestureDragging
	g.drop = Drop{SourceID: sourceID}
	return true
}

// Over records the current drop target. An empty overID means the pointer left every
// droppable region.
func (g *Gesture) Over(overID string, offsetX float64, half Half) bool {
	if g.state != GestureDragging {
		return false
	}
	g.drop.OverID = strings.TrimSpace(overID)
	g.drop.OffsetX = offsetX
	g.drop.Half = half
	return true
}

// End releases the drag. It yields a drop only when a target is set; otherwise the
// session ends cancelled.
func (g *Gesture) End() (Drop, bool) {
	if g.state != GestureDragging {
		return Drop{}, false
	}
	if g.drop.OverID == "" {
		g.state = GestureCancelled
		g.drop = Drop{}
		return Drop{}, false
	}
	g.state = GestureApplying
	return g.drop, true
}

// Finish returns an applying session to idle once its drop has been committed or
// rejected.
func (g *Gesture) Finish() {
	if g.state == GestureApplying {
		g.state = GestureIdle
		g.drop = Drop{}
	}
}

func (g *Gesture) Cancel() bool {
	if g.state != GestureDragging {
		return false
	}
	g.state = GestureCancelled
	g.drop = Drop{}
	return true
}
