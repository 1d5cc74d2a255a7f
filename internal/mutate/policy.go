package mutate

import (
	"math"

	"wbs-cli/internal/store"
)

// SiblingOnly reorders within the source's current parent and rejects anything else.
type SiblingOnly struct{}

func (SiblingOnly) Name() string { return "sibling" }

func (SiblingOnly) Resolve(r Resolution) (Intent, error) {
	t := r.Tree
	src, over := r.Drop.SourceID, r.Drop.OverID
	if src == over {
		return Intent{}, store.Reject(store.ReasonSelfMove, src, over, "")
	}
	srcParent, _ := t.ParentOf(src)
	overParent, _ := t.ParentOf(over)
	if srcParent != overParent {
		return Intent{}, store.Reject(store.ReasonDifferentLevel, src, over, "")
	}
	from, _ := t.IndexOf(src)
	to, _ := t.IndexOf(over)
	depth, _ := t.Depth(src)

	// Removing the source and inserting at the target's old index lands after the
	// target when moving down and before it when moving up.
	kind := MoveBefore
	if to > from {
		kind = MoveAfter
	}
	return Intent{
		Kind:     kind,
		Level:    LevelSibling,
		SourceID: src,
		OverID:   over,
		ParentID: srcParent,
		Index:    to,
		Depth:    depth,
	}, nil
}

// MoveGuard is implemented by policies that also restrict direct moves, which skip the
// drag interpreter.
type MoveGuard interface {
	CheckMove(t *store.Tree, sourceID, parentID string) error
}

// CheckMove refuses any direct move that would change the source's parent. Unknown ids
// are left for the move itself to report.
func (SiblingOnly) CheckMove(t *store.Tree, sourceID, parentID string) error {
	cur, ok := t.ParentOf(sourceID)
	if !ok {
		return nil
	}
	if cur != parentID {
		return store.Reject(store.ReasonDifferentLevel, sourceID, parentID, "sibling policy keeps the parent")
	}
	return nil
}

// FreeReparent lets a drop change both position and depth. Vertical placement comes
// from the target row; the horizontal offset, in units of the indent width, shifts the
// depth within the range the neighbouring rows allow.
type FreeReparent struct{}

func (FreeReparent) Name() string { return "free" }

type flatRow struct {
	id       string
	parentID string
	depth    int
}

func (FreeReparent) Resolve(r Resolution) (Intent, error) {
	t := r.Tree
	src, over := r.Drop.SourceID, r.Drop.OverID

	// Visible rows without the dragged subtree's descendants; the source itself stays.
	flat := make([]flatRow, 0, len(r.Rows))
	active := -1
	overAt := -1
	for _, row := range r.Rows {
		if row.ID != src && t.IsAncestor(src, row.ID, false) {
			continue
		}
		if row.ID == src {
			active = len(flat)
		}
		if row.ID == over {
			overAt = len(flat)
		}
		flat = append(flat, flatRow{id: row.ID, parentID: row.ParentID, depth: row.Depth})
	}
	if active < 0 || overAt < 0 {
		return Intent{}, store.Reject(store.ReasonAmbiguousDrop, src, over, "")
	}
	moved := flat[active]

	rest := make([]flatRow, 0, len(flat)-1)
	rest = append(rest, flat[:active]...)
	rest = append(rest, flat[active+1:]...)

	overRest := overAt
	if overAt > active {
		overRest--
	}
	var insertAt int
	switch {
	case over == src:
		insertAt = active
	case r.Drop.Half == HalfUpper:
		insertAt = overRest
	case r.Drop.Half == HalfLower:
		insertAt = overRest + 1
	case active < overAt:
		insertAt = overRest + 1
	default:
		insertAt = overRest
	}

	var prev, next *flatRow
	if insertAt > 0 {
		prev = &rest[insertAt-1]
	}
	if insertAt < len(rest) {
		next = &rest[insertAt]
	}

	width := r.IndentWidth
	if width <= 0 {
		width = store.DefaultIndentWidth
	}
	depth := moved.depth + int(math.Round(r.Drop.OffsetX/width))
	maxDepth, minDepth := 0, 0
	if prev != nil {
		maxDepth = prev.depth + 1
	}
	if next != nil {
		minDepth = next.depth
	}
	if depth >= maxDepth {
		depth = maxDepth
	} else if depth < minDepth {
		depth = minDepth
	}

	parentID := ""
	switch {
	case depth == 0 || prev == nil:
		parentID = ""
	case depth == prev.depth:
		parentID = prev.parentID
	case depth > prev.depth:
		parentID = prev.id
	default:
		for i := insertAt - 1; i >= 0; i-- {
			if rest[i].depth == depth {
				parentID = rest[i].parentID
				break
			}
		}
	}

	index := 0
	for i := 0; i < insertAt; i++ {
		if rest[i].parentID == parentID {
			index++
		}
	}

	overDepth := moved.depth
	if over != src {
		overDepth = flat[overAt].depth
	}
	level := LevelSibling
	switch {
	case depth > overDepth:
		level = LevelChild
	case depth < overDepth:
		level = LevelOutdent
	}
	kind := MoveAfter
	switch {
	case level == LevelChild:
		kind = MoveInside
	case over != src && insertAt <= overRest:
		kind = MoveBefore
	}

	return Intent{
		Kind:     kind,
		Level:    level,
		SourceID: src,
		OverID:   over,
		ParentID: parentID,
		Index:    index,
		Depth:    depth,
	}, nil
}
