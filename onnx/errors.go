package onnx

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupportedOperator is returned by Registry.Lookup when there is no propagation rule for an
// operator at the requested version. The Engine treats it as "no information" for the node.
var ErrUnsupportedOperator = errors.New("operator has no data propagation function")

// DuplicateOutputError reports an attempt to set the propagated value of a name that was already
// produced, which breaks the single-producer invariant of the graph.
//
// It indicates a malformed graph or a buggy propagation rule, and aborts Engine.Run.
type DuplicateOutputError struct {
	// Name of the value written twice.
	Name string

	// Node that attempted the second write.
	Node string
}

// Error implements error.
func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("duplicate data propagation output %q (written by node %s), it was already generated", e.Name, e.Node)
}

// IncomparableDimensionsError is returned when comparing dimensions that cannot be reconciled,
// e.g. a known value against a symbolic parameter.
type IncomparableDimensionsError struct {
	Left, Right Dimension
}

// Error implements error.
func (e *IncomparableDimensionsError) Error() string {
	return fmt.Sprintf("cannot compare %s dimension %s to %s dimension %s", e.Left.Kind(), e.Left, e.Right.Kind(), e.Right)
}
