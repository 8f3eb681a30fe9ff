package onnx

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/gomlx/onnx-dataprop/ir"
)

// Provenance tracks where a generated value comes from.
type Provenance int

const (
	// ProvenanceUnknown - name was not generated.
	ProvenanceUnknown Provenance = iota

	// ProvenanceConstant - value is computed only from constants (initializers and Constant nodes),
	// so it can be folded into a constant.
	ProvenanceConstant

	// ProvenanceInputShape - value depends on the declared shapes of graph inputs or intermediate
	// values, e.g. the output of a Shape op.
	ProvenanceInputShape
)

// String returns a human-readable name for the provenance.
func (p Provenance) String() string {
	switch p {
	case ProvenanceUnknown:
		return "unknown"
	case ProvenanceConstant:
		return "constant"
	case ProvenanceInputShape:
		return "input_shape"
	default:
		return "invalid"
	}
}

// dataDependentOps is the set of ONNX operations whose output shape depends on tensor values.
var dataDependentOps sets.Set[string]

func init() {
	dataDependentOps = sets.Make[string]()
	dataDependentOps.Insert("NonZero")           // Output shape depends on how many non-zero elements
	dataDependentOps.Insert("Where")             // Output shape can depend on condition values
	dataDependentOps.Insert("Compress")          // Output shape depends on condition values
	dataDependentOps.Insert("Unique")            // Output shape depends on number of unique elements
	dataDependentOps.Insert("TopK")              // Selection depends on values
	dataDependentOps.Insert("NonMaxSuppression") // Output depends on scores
}

// IsDataDependentOp returns true if the operation produces data-dependent shapes: their outputs
// can never be determined by data propagation.
func IsDataDependentOp(opType string) bool {
	return dataDependentOps.Has(opType)
}

// nodeProvenance returns the provenance of the values generated by node: the "least constant"
// of the provenances of its inputs.
func (e *Engine) nodeProvenance(node *ir.Node) Provenance {
	result := ProvenanceConstant
	for _, input := range node.Input {
		if input == "" || e.constants.has(input) {
			continue
		}
		p, found := e.provenance[input]
		if !found {
			// Graph input or a value only known by its declared type.
			p = ProvenanceInputShape
		}
		result = max(result, p)
	}
	return result
}

// Provenance returns where the generated value for name comes from, or ProvenanceUnknown if it
// was not generated.
func (e *Engine) Provenance(name string) Provenance {
	return e.provenance[name]
}
