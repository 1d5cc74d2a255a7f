package mutate

import (
	"fmt"
	"strings"

	"wbs-cli/internal/outline"
	"wbs-cli/internal/store"
)

// Half says which half of the target row the pointer was released over.
type Half int

const (
	// HalfAuto places the source after the target when dragging down and before it
	// when dragging up.
	HalfAuto Half = iota
	HalfUpper
	HalfLower
)

// HalfFromRatio maps a pointer position within the target row (0 = top edge, 1 = bottom
// edge) to the half whose center is nearest. The midpoint itself counts as lower.
func HalfFromRatio(r float64) Half {
	if r < 0.5 {
		return HalfUpper
	}
	return HalfLower
}

func ParseHalf(s string) (Half, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HalfAuto, nil
	case "upper", "before", "top":
		return HalfUpper, nil
	case "lower", "after", "bottom":
		return HalfLower, nil
	default:
		return HalfAuto, fmt.Errorf("invalid half %q (expected auto|upper|lower)", s)
	}
}

func (h Half) String() string {
	switch h {
	case HalfUpper:
		return "upper"
	case HalfLower:
		return "lower"
	default:
		return "auto"
	}
}

// Drop is a finished drag gesture.
type Drop struct {
	SourceID string  `json:"sourceId"`
	OverID   string  `json:"overId"`
	OffsetX  float64 `json:"offsetX,omitempty"`
	Half     Half    `json:"-"`
}

type IntentKind string

const (
	MoveBefore IntentKind = "move_before"
	MoveAfter  IntentKind = "move_after"
	MoveInside IntentKind = "move_inside"
)

// Level relates the resolved depth to the target row's depth.
type Level string

const (
	LevelSibling Level = "sibling"
	LevelChild   Level = "child"
	LevelOutdent Level = "outdent"
)

// Intent is a resolved drop. ParentID ("" for the root list) and Index (position after
// detaching the source) are authoritative; Kind and Level describe the placement
// relative to the target row.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Level    Level      `json:"level"`
	Policy   string     `json:"policy"`
	SourceID string     `json:"sourceId"`
	OverID   string     `json:"overId"`
	ParentID string     `json:"parentId,omitempty"`
	Index    int        `json:"index"`
	Depth    int        `json:"depth"`
}

// Resolution is everything a policy may consult. Policies only read it.
type Resolution struct {
	Tree        *store.Tree
	Rows        []outline.Row
	Drop        Drop
	IndentWidth float64
}

// Policy decides where a drop lands, or why it cannot.
type Policy interface {
	Name() string
	Resolve(r Resolution) (Intent, error)
}

// Interpreter is the shared drag-resolution core. It performs the checks common to every
// policy, delegates placement to the policy and re-checks the result for cycles.
type Interpreter struct {
	Policy      Policy
	IndentWidth float64
}

func NewInterpreter(p Policy, indentWidth float64) Interpreter {
	if p == nil {
		p = FreeReparent{}
	}
	if indentWidth <= 0 {
		indentWidth = store.DefaultIndentWidth
	}
	return Interpreter{Policy: p, IndentWidth: indentWidth}
}

// Interpret resolves d against t and its visible rows. It never modifies t.
func (in Interpreter) Interpret(t *store.Tree, rows []outline.Row, d Drop) (Intent, error) {
	d.SourceID = strings.TrimSpace(d.SourceID)
	d.OverID = strings.TrimSpace(d.OverID)
	if d.SourceID == "" || !t.Has(d.SourceID) {
		return Intent{}, store.Reject(store.ReasonNotFound, d.SourceID, d.OverID, "source "+d.SourceID)
	}
	if d.OverID == "" {
		return Intent{}, store.Reject(store.ReasonAmbiguousDrop, d.SourceID, "", "no target")
	}
	if !t.Has(d.OverID) {
		return Intent{}, store.Reject(store.ReasonNotFound, d.SourceID, d.OverID, "target "+d.OverID)
	}
	if d.OverID != d.SourceID && t.IsAncestor(d.SourceID, d.OverID, false) {
		return Intent{}, store.Reject(store.ReasonCyclicMove, d.SourceID, d.OverID, d.OverID+" is inside "+d.SourceID)
	}
	if outline.IndexOfRow(rows, d.SourceID) < 0 {
		return Intent{}, store.Reject(store.ReasonAmbiguousDrop, d.SourceID, d.OverID, "source is not visible")
	}
	if outline.IndexOfRow(rows, d.OverID) < 0 {
		return Intent{}, store.Reject(store.ReasonAmbiguousDrop, d.SourceID, d.OverID, "target is not visible")
	}

	p := in.Policy
	if p == nil {
		p = FreeReparent{}
	}
	width := in.IndentWidth
	if width <= 0 {
		width = store.DefaultIndentWidth
	}
	intent, err := p.Resolve(Resolution{
		Tree:        t,
		Rows:        rows,
		Drop:        d,
		IndentWidth: width,
	})
	if err != nil {
		return Intent{}, err
	}
	intent.Policy = p.Name()
	if intent.ParentID != "" && t.IsAncestor(d.SourceID, intent.ParentID, true) {
		return Intent{}, store.Reject(store.ReasonCyclicMove, d.SourceID, intent.ParentID, "resolved parent is inside the source")
	}
	return intent, nil
}

// Apply commits intent to t and returns the resulting tree.
func Apply(t *store.Tree, intent Intent) (*store.Tree, error) {
	return t.MoveNode(intent.SourceID, intent.ParentID, intent.Index)
}

// ParsePolicy maps a policy name to its implementation.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "free", "free-reparent", "reparent":
		return FreeReparent{}, nil
	case "sibling", "sibling-only", "siblings":
		return SiblingOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (expected free|sibling)", name)
	}
}
