package engine

import (
	"strings"

	"wbs-cli/internal/outline"
)

// Resolve maps a node reference to an id. A reference is an id or, failing that, a WBS
// code in the current numbering.
func (e *Engine) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if e.tree.Has(ref) {
		return ref, true
	}
	if n, ok := outline.Resolve(e.tree.Roots(), ref); ok {
		return n.ID, true
	}
	return "", false
}

// ResolveParent is Resolve for destination parents: "", "none" and "root" address the
// root list.
func (e *Engine) ResolveParent(ref string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(ref)) {
	case "", "none", "root":
		return "", true
	}
	return e.Resolve(ref)
}

// resolveOr returns the resolved id, or ref unchanged so the move reports it as
// not found.
func (e *Engine) resolveOr(ref string) string {
	if id, ok := e.Resolve(ref); ok {
		return id
	}
	return strings.TrimSpace(ref)
}

// Node returns the row for id from the full (uncollapsed) projection.
func (e *Engine) Node(id string) (outline.Row, bool) {
	if !e.tree.Has(id) {
		return outline.Row{}, false
	}
	rows := outline.All(e.tree, e.codes)
	i := outline.IndexOfRow(rows, id)
	if i < 0 {
		return outline.Row{}, false
	}
	return rows[i], true
}

