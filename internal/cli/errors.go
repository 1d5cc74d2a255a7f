package cli

import "fmt"

type notFoundError struct {
	kind string
	ref  string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s (use an id or a WBS code such as 1.2)", e.kind, e.ref)
}

func errNotFound(kind, ref string) error {
	return notFoundError{kind: kind, ref: ref}
}

// outcomeError makes a rejected edit a command failure while the outcome itself is still
// printed.
type outcomeError struct {
	reason string
	msg    string
}

func (e outcomeError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.reason, e.msg)
}
