package ir

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Validate checks the structural assumptions the propagation engine relies on, and returns all
// problems found combined in one error (see go.uber.org/multierr), or nil.
//
// It checks that:
//
//   - Every node has an op type.
//   - Every value name is produced at most once (by a graph input, an initializer or a node output).
//   - Nodes are in topological order: every non-empty node input is a graph input, an initializer
//     or the output of an earlier node.
func (g *Graph) Validate() error {
	if g == nil {
		return errors.New("graph is nil")
	}
	var errs error
	defined := sets.Make[string]()
	define := func(name, source string) {
		if name == "" {
			return
		}
		if defined.Has(name) {
			errs = multierr.Append(errs, errors.Errorf("value %q is defined more than once (again by %s)", name, source))
			return
		}
		defined.Insert(name)
	}

	for _, vi := range g.Input {
		define(vi.Name, "graph input")
	}
	for _, t := range g.Initializer {
		if defined.Has(t.Name) {
			// ONNX allows initializers to provide default values for graph inputs.
			continue
		}
		define(t.Name, "initializer")
	}
	for ii, node := range g.Node {
		if node.OpType == "" {
			errs = multierr.Append(errs, errors.Errorf("node #%d (%q) has no op_type", ii, node.Name))
		}
		for _, input := range node.Input {
			if input != "" && !defined.Has(input) {
				errs = multierr.Append(errs, errors.Errorf("node #%d %s reads %q before it is defined", ii, node, input))
			}
		}
		for _, output := range node.Output {
			define(output, "node "+node.String())
		}
	}
	return errs
}
