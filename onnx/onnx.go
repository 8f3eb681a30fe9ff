// Package onnx implements the data propagation of ONNX graphs: it computes, ahead of execution,
// the values of tensors that hold shape-like integer data (e.g. the output of a Shape op feeding
// a Reshape), as known integers, symbolic parameters or unknowns.
//
//   - Parse: converts a YAML description of an ONNX model to a Model.
//   - ReadFile: reads a file and calls Parse. It returns a Model.
//   - Model: object holding the ONNX model. Model.Propagate runs the data propagation over its graph.
//   - Engine: runs the data propagation over an ir.Graph, see also Propagate.
//   - Registry: the versioned propagation rules per operator, see DefaultRegistry.
package onnx

import (
	"os"

	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Model represents a parsed ONNX model.
type Model struct {
	Proto ir.Model

	// InputsNames and OutputsNames of the graph.
	InputsNames, OutputsNames []string
}

// Parse parses the YAML description of an ONNX model.
func Parse(contents []byte) (*Model, error) {
	m := &Model{}
	err := yaml.Unmarshal(contents, &m.Proto)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ONNX model description")
	}
	if m.Proto.Graph == nil {
		return nil, errors.New("ONNX model description has no graph")
	}
	m.InputsNames = valueNames(m.Proto.Graph.Input)
	m.OutputsNames = valueNames(m.Proto.Graph.Output)
	return m, nil
}

func valueNames(infos []*ir.ValueInfo) []string {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// ReadFile parses an ONNX model description file, see Parse.
func ReadFile(filePath string) (*Model, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ONNX model file in %s", filePath)
	}
	m, err := Parse(contents)
	if err != nil {
		return nil, errors.WithMessagef(err, "while parsing %s", filePath)
	}
	return m, nil
}

// Graph of the model.
func (m *Model) Graph() *ir.Graph { return m.Proto.Graph }

// OpsetVersion returns the version of the operator set domain imported by the model, and whether
// it is imported at all.
func (m *Model) OpsetVersion(domain string) (int, bool) {
	domain = normalizeDomain(domain)
	for _, opset := range m.Proto.OpsetImport {
		if normalizeDomain(opset.Domain) == domain {
			return int(opset.Version), true
		}
	}
	return 0, false
}

// Propagate runs the data propagation over the model graph, with the operator set versions the
// model imports. If registry is nil, DefaultRegistry is used. opts can override the model's
// configuration, e.g. WithDefaultOpset for models without imports.
func (m *Model) Propagate(registry *Registry, opts ...Option) (ShapeMap, error) {
	opts = append([]Option{WithOpsetImports(m.Proto.OpsetImport...)}, opts...)
	return NewEngine(registry, opts...).Run(m.Proto.Graph)
}
