// Package permerr collects the error taxonomy of the permission registry.
// Following the teacher's habit of sentinel/typed errors plus fmt.Errorf
// wrapping (see pkg/authentication/types.go in the retrieval pack), each
// kind here is a concrete type carrying the offending input, not a bare
// string.
package permerr

import "fmt"

// InvalidPermission is returned when a permission string fails the grammar
// of permission.Parse, or its argument parsing.
type InvalidPermission struct {
	Input  string
	Reason string
}

func NewInvalidPermission(input, reason string) *InvalidPermission {
	return &InvalidPermission{Input: input, Reason: reason}
}

func (e *InvalidPermission) Error() string {
	return fmt.Sprintf("invalid permission %q: %s", e.Input, e.Reason)
}

// InvalidGroupName is returned when a group name contains characters
// outside letters and digits (and isn't the reserved "*" where legal).
type InvalidGroupName struct {
	Name string
}

func NewInvalidGroupName(name string) *InvalidGroupName {
	return &InvalidGroupName{Name: name}
}

func (e *InvalidGroupName) Error() string {
	return fmt.Sprintf("invalid group name %q", e.Name)
}

// InvalidPriority is returned when a priority string is neither a valid
// signed long nor a valid double.
type InvalidPriority struct {
	Input string
}

func NewInvalidPriority(input string) *InvalidPriority {
	return &InvalidPriority{Input: input}
}

func (e *InvalidPriority) Error() string {
	return fmt.Sprintf("invalid priority %q", e.Input)
}

// CircularGroupHierarchy is returned when assigning a group-to-group
// reference would introduce a cycle in the group DAG.
type CircularGroupHierarchy struct {
	Ancestor   string
	Descendant string
}

func NewCircularGroupHierarchy(ancestor, descendant string) *CircularGroupHierarchy {
	return &CircularGroupHierarchy{Ancestor: ancestor, Descendant: descendant}
}

func (e *CircularGroupHierarchy) Error() string {
	return fmt.Sprintf("circular group hierarchy: %q already reaches %q", e.Descendant, e.Ancestor)
}

// UnsupportedOperation is returned by the sentinel empty default group for
// any mutator.
type UnsupportedOperation struct {
	Op string
}

func NewUnsupportedOperation(op string) *UnsupportedOperation {
	return &UnsupportedOperation{Op: op}
}

func (e *UnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation on sentinel default group: %s", e.Op)
}

// Io wraps an I/O error encountered during save or load.
type Io struct {
	Op  string
	Err error
}

func NewIo(op string, err error) *Io {
	return &Io{Op: op, Err: err}
}

func (e *Io) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *Io) Unwrap() error { return e.Err }
