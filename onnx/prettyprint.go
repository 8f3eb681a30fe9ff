package onnx

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/gomlx/gomlx/pkg/support/sets"
)

// String implements fmt.Stringer, and pretty prints model information.
func (m *Model) String() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("ONNX Model:\n")
	if m.Proto.DocString != "" {
		w("%s\n", m.Proto.DocString)
	}
	if m.Proto.ProducerName != "" {
		w("\tProducer:\t%s / %s\n", m.Proto.ProducerName, m.Proto.ProducerVersion)
	}
	w("\tIR Version:\t%d\n", m.Proto.IRVersion)
	w("\tOperator Sets:\t[")
	for ii, opSetId := range m.Proto.OpsetImport {
		if ii > 0 {
			w(", ")
		}
		if opSetId.Domain != "" {
			w("v%d (%s)", opSetId.Version, opSetId.Domain)
		} else {
			w("v%d", opSetId.Version)
		}
	}
	w("]\n")

	graph := m.Proto.Graph
	if graph == nil {
		return buf.String()
	}
	w("\tInputs:\t%q\n", m.InputsNames)
	w("\tOutputs:\t%q\n", m.OutputsNames)
	w("\t# nodes:\t%d\n", len(graph.Node))
	w("\t# initializers:\t%d\n", len(graph.Initializer))
	opTypesSet := sets.Make[string]()
	for _, n := range graph.Node {
		opTypesSet.Insert(n.OpType)
	}
	w("\tOp types:\t%#v\n", slices.Sorted(maps.Keys(opTypesSet)))
	return buf.String()
}
