package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wbs-cli/internal/model"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/outline"
	"wbs-cli/internal/store"

	"go.uber.org/zap"
)

type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
	StatusIgnored  Status = "ignored"
)

// Outcome reports what a structural event did. Tree is the tree after the event, which
// is the unchanged tree for anything but an applied move.
type Outcome struct {
	Status  Status         `json:"status"`
	Reason  store.Reason   `json:"reason,omitempty"`
	Message string         `json:"message,omitempty"`
	Intent  *mutate.Intent `json:"intent,omitempty"`
	Changed bool           `json:"changed"`
	Tree    *store.Tree    `json:"-"`
}

// Recorder receives one entry per event. *store.Journal satisfies it.
type Recorder interface {
	Append(ctx context.Context, e store.JournalEntry) (store.JournalEntry, error)
}

type Option func(*Engine)

func WithPolicy(p mutate.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.interp.Policy = p
		}
	}
}

func WithIndentWidth(w float64) Option {
	return func(e *Engine) {
		if w > 0 {
			e.interp.IndentWidth = w
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.journal = r }
}

// Engine owns the live tree, the collapse state and the views derived from them. It is
// not safe for concurrent use; adapters serialize events.
type Engine struct {
	title    string
	original []*model.Node
	seed     *outline.Collapse

	tree     *store.Tree
	collapse *outline.Collapse
	codes    map[string]string
	rows     []outline.Row

	gesture mutate.Gesture
	interp  mutate.Interpreter

	log     *zap.Logger
	metrics *Metrics
	journal Recorder
}

// New builds an engine over a validated copy of snap.
func New(snap *model.Snapshot, opts ...Option) (*Engine, error) {
	if snap == nil {
		return nil, errors.New("engine: missing snapshot")
	}
	if err := store.ValidateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		title:    snap.Title,
		original: model.CloneForest(snap.Nodes),
		seed:     outline.Seed(snap.Nodes),
		interp:   mutate.NewInterpreter(mutate.FreeReparent{}, store.DefaultIndentWidth),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	t, err := store.NewTree(e.original)
	if err != nil {
		return err
	}
	e.tree = t
	e.collapse = e.seed.Clone()
	e.gesture = mutate.Gesture{}
	e.refresh()
	return nil
}

func (e *Engine) refresh() {
	e.collapse.Prune(e.tree)
	e.codes = outline.Number(e.tree.Roots())
	e.rows = outline.Project(e.tree, e.collapse, e.codes)
	e.metrics.shape(e.tree.Len(), len(e.rows))
}

func (e *Engine) Tree() *store.Tree { return e.tree }

func (e *Engine) Rows() []outline.Row { return append([]outline.Row(nil), e.rows...) }

func (e *Engine) Codes() map[string]string {
	out := make(map[string]string, len(e.codes))
	for k, v := range e.codes {
		out[k] = v
	}
	return out
}

func (e *Engine) Collapsed() []string { return e.collapse.IDs() }

func (e *Engine) Policy() mutate.Policy { return e.interp.Policy }

func (e *Engine) IndentWidth() float64 { return e.interp.IndentWidth }

func (e *Engine) Gesture() mutate.GestureState { return e.gesture.State() }

// Pending returns the drop being dragged, if any.
func (e *Engine) Pending() (mutate.Drop, bool) { return e.gesture.Current() }

func (e *Engine) Metrics() *Metrics { return e.metrics }

// Export returns a deep copy of the current forest with collapse flags written back.
func (e *Engine) Export() []*model.Node {
	return e.collapse.Stamp(e.tree.Export())
}

func (e *Engine) Title() string { return e.title }

// Snapshot wraps Export in a versioned document carrying the original title.
func (e *Engine) Snapshot() *model.Snapshot {
	return &model.Snapshot{Version: 1, Title: e.title, Nodes: e.Export()}
}

func (e *Engine) SetPolicy(p mutate.Policy) {
	if p == nil {
		return
	}
	e.event("policy", "", "", nil)
	e.interp.Policy = p
	e.log.Debug("policy changed", zap.String("policy", p.Name()))
}

// DragStart begins a drag of a visible row. It returns false when the row is unknown,
// hidden, or a drop is still being applied.
func (e *Engine) DragStart(sourceID string) bool {
	sourceID = strings.TrimSpace(sourceID)
	if outline.IndexOfRow(e.rows, sourceID) < 0 {
		return false
	}
	if !e.gesture.Start(sourceID) {
		return false
	}
	e.metrics.event("drag_start")
	return true
}

func (e *Engine) DragOver(overID string, offsetX float64, half mutate.Half) bool {
	return e.gesture.Over(overID, offsetX, half)
}

// DragEnd releases the current drag. Without an active drag, or without a target, it
// is ignored and nothing changes.
func (e *Engine) DragEnd() Outcome {
	if e.gesture.State() != mutate.GestureDragging {
		return Outcome{Status: StatusIgnored, Message: "no drag in progress", Tree: e.tree}
	}
	d, ok := e.gesture.End()
	if !ok {
		out := Outcome{Status: StatusIgnored, Message: "released outside any row", Tree: e.tree}
		e.finish("drop", mutate.Drop{}, out)
		return out
	}
	out := e.apply(d)
	e.gesture.Finish()
	return out
}

// DragCancel abandons the current drag. The tree is never touched.
func (e *Engine) DragCancel() bool {
	if !e.gesture.Cancel() {
		return false
	}
	e.metrics.event("drag_cancel")
	return true
}

// Preview resolves the pending drop against the current tree without applying it.
func (e *Engine) Preview() (mutate.Intent, error) {
	d, ok := e.gesture.Current()
	if !ok {
		return mutate.Intent{}, store.Reject(store.ReasonAmbiguousDrop, "", "", "no drag in progress")
	}
	return e.interp.Interpret(e.tree, e.rows, d)
}

// Drop runs a complete gesture in one call.
func (e *Engine) Drop(d mutate.Drop) Outcome {
	if !e.gesture.Start(d.SourceID) {
		out := e.reject(d, store.Reject(store.ReasonNotFound, d.SourceID, d.OverID, "source "+d.SourceID))
		e.finish("drop", d, out)
		return out
	}
	e.gesture.Over(d.OverID, d.OffsetX, d.Half)
	return e.DragEnd()
}

func (e *Engine) apply(d mutate.Drop) Outcome {
	intent, err := e.interp.Interpret(e.tree, e.rows, d)
	if err != nil {
		out := e.reject(d, err)
		e.finish("drop", d, out)
		return out
	}
	out := e.commit(intent)
	e.finish("drop", d, out)
	return out
}

// Move relocates sourceID directly, bypassing the drag interpreter. parentID "" means
// the root list. A policy that implements mutate.MoveGuard can still refuse the move.
func (e *Engine) Move(sourceID, parentID string, index int) Outcome {
	d := mutate.Drop{SourceID: sourceID, OverID: parentID}
	if g, ok := e.interp.Policy.(mutate.MoveGuard); ok {
		if err := g.CheckMove(e.tree, sourceID, parentID); err != nil {
			out := e.reject(d, err)
			e.finish("move", d, out)
			return out
		}
	}
	depth := 0
	if parentID != "" {
		if pd, ok := e.tree.Depth(parentID); ok {
			depth = pd + 1
		}
	}
	intent := mutate.Intent{
		Kind:     mutate.MoveInside,
		Level:    mutate.LevelChild,
		Policy:   "direct",
		SourceID: sourceID,
		OverID:   parentID,
		ParentID: parentID,
		Index:    index,
		Depth:    depth,
	}
	if parentID == "" {
		intent.Level = mutate.LevelSibling
		intent.Kind = mutate.MoveAfter
	}
	out := e.commit(intent)
	e.finish("move", d, out)
	return out
}

func (e *Engine) commit(intent mutate.Intent) Outcome {
	next, err := mutate.Apply(e.tree, intent)
	if err != nil {
		return e.reject(mutate.Drop{SourceID: intent.SourceID, OverID: intent.OverID}, err)
	}
	changed := next != e.tree
	e.tree = next
	if changed {
		e.refresh()
	}
	e.log.Debug("move applied",
		zap.String("source", intent.SourceID),
		zap.String("parent", intent.ParentID),
		zap.Int("index", intent.Index),
		zap.String("kind", string(intent.Kind)),
		zap.String("policy", intent.Policy),
		zap.Bool("changed", changed),
	)
	return Outcome{Status: StatusApplied, Intent: &intent, Changed: changed, Tree: e.tree}
}

func (e *Engine) reject(d mutate.Drop, err error) Outcome {
	reason, ok := store.ReasonOf(err)
	if !ok {
		// Only the tree's own validation errors land here; treat them as unknown ids.
		reason = store.ReasonNotFound
	}
	e.log.Info("move rejected",
		zap.String("source", d.SourceID),
		zap.String("over", d.OverID),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return Outcome{Status: StatusRejected, Reason: reason, Message: err.Error(), Tree: e.tree}
}

// ToggleCollapse flips a row's collapsed flag. Leaves are ignored.
func (e *Engine) ToggleCollapse(id string) bool {
	changed := e.collapse.Toggle(e.tree, id)
	if changed {
		e.refresh()
	}
	e.event("toggle", id, "", map[string]any{"changed": changed})
	return changed
}

func (e *Engine) SetCollapsed(id string, collapsed bool) bool {
	changed := e.collapse.Set(e.tree, id, collapsed)
	if changed {
		e.refresh()
	}
	e.event("toggle", id, "", map[string]any{"changed": changed, "collapsed": collapsed})
	return changed
}

// ToggleCollapseAll collapses or expands every node that has children.
func (e *Engine) ToggleCollapseAll(collapsed bool) {
	e.collapse.SetAll(e.tree, collapsed)
	e.refresh()
	e.event("toggle_all", "", "", map[string]any{"collapsed": collapsed})
}

// FlipCollapseAll collapses everything when the outline is fully expanded and expands
// everything otherwise. It returns the collapsed value it applied.
func (e *Engine) FlipCollapseAll() bool {
	collapsed := e.collapse.AllExpanded(e.tree)
	e.ToggleCollapseAll(collapsed)
	return collapsed
}

// Reset restores the initial snapshot and its collapse flags and abandons any drag.
func (e *Engine) Reset() {
	if err := e.load(); err != nil {
		// The original forest was validated in New and is never mutated.
		panic(store.InvariantError{Op: "reset", Detail: err.Error()})
	}
	e.event("reset", "", "", nil)
	e.log.Debug("reset", zap.Int("nodes", e.tree.Len()))
}

func (e *Engine) event(typ, sourceID, overID string, payload map[string]any) {
	e.metrics.event(typ)
	e.record(store.JournalEntry{Type: typ, SourceID: sourceID, OverID: overID, Payload: payload})
}

func (e *Engine) finish(typ string, d mutate.Drop, out Outcome) {
	e.metrics.event(typ)
	e.metrics.outcome(out)
	entry := store.JournalEntry{
		Type:     typ,
		SourceID: d.SourceID,
		OverID:   d.OverID,
		Status:   string(out.Status),
		Reason:   string(out.Reason),
	}
	if out.Intent != nil {
		entry.Payload = map[string]any{
			"parentId": out.Intent.ParentID,
			"index":    out.Intent.Index,
			"kind":     string(out.Intent.Kind),
			"changed":  out.Changed,
		}
	}
	e.record(entry)
}

func (e *Engine) record(entry store.JournalEntry) {
	if e.journal == nil {
		return
	}
	if _, err := e.journal.Append(context.Background(), entry); err != nil {
		e.log.Warn("journal append failed", zap.String("type", entry.Type), zap.Error(err))
	}
}
