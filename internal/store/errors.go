package store

import (
	"errors"
	"fmt"
)

// Reason classifies a rejected structural edit.
type Reason string

const (
	ReasonNotFound       Reason = "not_found"
	ReasonSelfMove       Reason = "self_move"
	ReasonCyclicMove     Reason = "cyclic_move"
	ReasonDifferentLevel Reason = "different_level"
	ReasonAmbiguousDrop  Reason = "ambiguous_drop"
)

// RejectError reports an edit that was refused. The tree it was attempted on is unchanged.
type RejectError struct {
	Reason   Reason
	SourceID string
	TargetID string
	Detail   string
}

func (e *RejectError) Error() string {
	msg := string(e.Reason)
	switch e.Reason {
	case ReasonNotFound:
		msg = "node not found"
	case ReasonSelfMove:
		msg = "cannot move a node onto itself"
	case ReasonCyclicMove:
		msg = "cannot move a node into its own subtree"
	case ReasonDifferentLevel:
		msg = "source and target must share a parent"
	case ReasonAmbiguousDrop:
		msg = "drop does not resolve to an insertion point"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *RejectError with the same Reason, so callers can write
// errors.Is(err, store.ErrCyclicMove).
func (e *RejectError) Is(target error) bool {
	t, ok := target.(*RejectError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

var (
	ErrNotFound       = &RejectError{Reason: ReasonNotFound}
	ErrSelfMove       = &RejectError{Reason: ReasonSelfMove}
	ErrCyclicMove     = &RejectError{Reason: ReasonCyclicMove}
	ErrDifferentLevel = &RejectError{Reason: ReasonDifferentLevel}
	ErrAmbiguousDrop  = &RejectError{Reason: ReasonAmbiguousDrop}
)

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

func reject(reason Reason, sourceID, targetID, detail string) *RejectError {
	return &RejectError{Reason: reason, SourceID: sourceID, TargetID: targetID, Detail: detail}
}

// Reject builds a RejectError; exported for the drag interpreter.
func Reject(reason Reason, sourceID, targetID, detail string) error {
	return reject(reason, sourceID, targetID, detail)
}

func notFound(id string) *RejectError {
	return reject(ReasonNotFound, id, "", id)
}

// InvariantError is raised (via panic) when a committed tree violates a structural
// invariant. It always indicates a defect in a mutation primitive.
type InvariantError struct {
	Op     string
	Detail string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("tree invariant violated after %s: %s", e.Op, e.Detail)
}
