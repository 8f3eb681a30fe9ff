// Package ir defines the in-memory computation graph consumed by the data propagation engine.
//
// The types mirror the ONNX protobuf messages (ModelProto, GraphProto, NodeProto, ValueInfoProto,
// TypeProto, TensorShapeProto and TensorProto) with only the fields the engine reads. They can be
// built directly in Go or decoded from a YAML description (see the `yaml` tags and the
// UnmarshalYAML methods).
package ir

import (
	"fmt"
	"strings"
)

// Model is the top-level container: a graph plus the operator sets it was written against.
type Model struct {
	IRVersion       int64      `yaml:"ir_version"`
	ProducerName    string     `yaml:"producer_name"`
	ProducerVersion string     `yaml:"producer_version"`
	DocString       string     `yaml:"doc_string"`
	OpsetImport     []*OpsetID `yaml:"opset_import"`
	Graph           *Graph     `yaml:"graph"`
}

// OpsetID identifies the version of an operator set (domain) used by the model.
//
// The default ONNX domain is the empty string; "ai.onnx" is accepted as an alias.
type OpsetID struct {
	Domain  string `yaml:"domain"`
	Version int64  `yaml:"version"`
}

// Graph is an ordered list of nodes plus the declared values (inputs, outputs, value_info) and
// the initializers (constant tensors) they refer to.
//
// Nodes are expected in topological order, as in the ONNX format.
type Graph struct {
	Name        string       `yaml:"name"`
	Node        []*Node      `yaml:"node"`
	Initializer []*Tensor    `yaml:"initializer"`
	Input       []*ValueInfo `yaml:"input"`
	Output      []*ValueInfo `yaml:"output"`
	ValueInfo   []*ValueInfo `yaml:"value_info"`
}

// Node is one operator application.
//
// An empty input name denotes an omitted optional input.
type Node struct {
	Name      string       `yaml:"name"`
	OpType    string       `yaml:"op_type"`
	Domain    string       `yaml:"domain"`
	Input     []string     `yaml:"input"`
	Output    []string     `yaml:"output"`
	Attribute []*Attribute `yaml:"attribute"`
}

// GetAttribute returns the attribute with the given name, or nil if the node doesn't have it.
func (n *Node) GetAttribute(name string) *Attribute {
	for _, attr := range n.Attribute {
		if attr.Name == name {
			return attr
		}
	}
	return nil
}

// String implements fmt.Stringer, in the form `name: OpType(in0, in1) -> (out0)`.
func (n *Node) String() string {
	var sb strings.Builder
	if n.Name != "" {
		sb.WriteString(n.Name)
		sb.WriteString(": ")
	}
	if n.Domain != "" {
		sb.WriteString(n.Domain)
		sb.WriteString(".")
	}
	fmt.Fprintf(&sb, "%s(%s) -> (%s)", n.OpType, strings.Join(n.Input, ", "), strings.Join(n.Output, ", "))
	return sb.String()
}

// ValueInfo declares the type of a named value.
type ValueInfo struct {
	Name string     `yaml:"name"`
	Type *TypeProto `yaml:"type"`
}

// TypeProto is the declared type of a tensor value: an element type and an optional shape.
//
// A nil Shape means the rank is unknown; an empty Shape is a scalar.
type TypeProto struct {
	ElemType DataType     `yaml:"elem_type"`
	Shape    *TensorShape `yaml:"shape"`
}

// HasShape returns whether the type declares a shape (possibly with unknown dimensions).
func (t *TypeProto) HasShape() bool {
	return t != nil && t.Shape != nil
}

// String implements fmt.Stringer, e.g. `int32[7,N,?]`.
func (t *TypeProto) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Shape == nil {
		return t.ElemType.String() + "[*]"
	}
	return t.ElemType.String() + t.Shape.String()
}

// TensorShape is the list of dimensions of a declared tensor shape.
type TensorShape struct {
	Dim []Dim
}

// Rank of the shape.
func (s *TensorShape) Rank() int {
	return len(s.Dim)
}

// String implements fmt.Stringer.
func (s *TensorShape) String() string {
	parts := make([]string, len(s.Dim))
	for ii, dim := range s.Dim {
		parts[ii] = dim.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Dim is one dimension of a declared shape: a concrete value, a named parameter or neither (unknown).
type Dim struct {
	Value    int64
	Param    string
	HasValue bool
}

// DimValue returns a concrete dimension.
func DimValue(value int64) Dim {
	return Dim{Value: value, HasValue: true}
}

// DimParam returns a symbolic dimension named param.
func DimParam(param string) Dim {
	return Dim{Param: param}
}

// HasParam returns whether the dimension is a named parameter.
func (d Dim) HasParam() bool {
	return !d.HasValue && d.Param != ""
}

// String implements fmt.Stringer.
func (d Dim) String() string {
	switch {
	case d.HasValue:
		return fmt.Sprintf("%d", d.Value)
	case d.Param != "":
		return d.Param
	default:
		return "?"
	}
}

// MakeShape builds a TensorShape from a list of dimensions given as int, int64 (values) or
// string (parameters; "?" or "" for unknown).
//
// It panics for any other type, it's meant for literals in tests and small programs.
func MakeShape(dims ...any) *TensorShape {
	shape := &TensorShape{Dim: make([]Dim, len(dims))}
	for ii, dim := range dims {
		switch v := dim.(type) {
		case int:
			shape.Dim[ii] = DimValue(int64(v))
		case int64:
			shape.Dim[ii] = DimValue(v)
		case string:
			if v != "?" {
				shape.Dim[ii] = DimParam(v)
			}
		default:
			panic(fmt.Sprintf("ir.MakeShape: unsupported dimension %v (%T)", dim, dim))
		}
	}
	return shape
}

// TensorType is a shortcut to build a TypeProto with the given element type and shape.
func TensorType(elemType DataType, dims ...any) *TypeProto {
	return &TypeProto{ElemType: elemType, Shape: MakeShape(dims...)}
}

// AttributeType enumerates the kinds of node attributes.
type AttributeType int32

const (
	AttributeUndefined AttributeType = iota
	AttributeFloat
	AttributeInt
	AttributeString
	AttributeTensor
	AttributeFloats
	AttributeInts
	AttributeStrings
)

// String implements fmt.Stringer.
func (t AttributeType) String() string {
	switch t {
	case AttributeFloat:
		return "FLOAT"
	case AttributeInt:
		return "INT"
	case AttributeString:
		return "STRING"
	case AttributeTensor:
		return "TENSOR"
	case AttributeFloats:
		return "FLOATS"
	case AttributeInts:
		return "INTS"
	case AttributeStrings:
		return "STRINGS"
	default:
		return "UNDEFINED"
	}
}

// Attribute is a named static parameter of a node.
//
// If Type is left undefined, it is inferred from whichever value field is set (see InferredType).
type Attribute struct {
	Name    string        `yaml:"name"`
	Type    AttributeType `yaml:"-"`
	F       float32       `yaml:"f"`
	I       int64         `yaml:"i"`
	S       string        `yaml:"s"`
	T       *Tensor       `yaml:"t"`
	Floats  []float32     `yaml:"floats"`
	Ints    []int64       `yaml:"ints"`
	Strings []string      `yaml:"strings"`
}

// InferredType returns Type if set, otherwise the type implied by the populated field.
// An attribute with only a zero scalar is reported as AttributeInt.
func (a *Attribute) InferredType() AttributeType {
	switch {
	case a.Type != AttributeUndefined:
		return a.Type
	case a.T != nil:
		return AttributeTensor
	case a.Ints != nil:
		return AttributeInts
	case a.Floats != nil:
		return AttributeFloats
	case a.Strings != nil:
		return AttributeStrings
	case a.S != "":
		return AttributeString
	case a.F != 0:
		return AttributeFloat
	default:
		return AttributeInt
	}
}

// IntAttr builds an INT attribute.
func IntAttr(name string, value int64) *Attribute {
	return &Attribute{Name: name, Type: AttributeInt, I: value}
}

// IntsAttr builds an INTS attribute.
func IntsAttr(name string, values ...int64) *Attribute {
	return &Attribute{Name: name, Type: AttributeInts, Ints: values}
}

// TensorAttr builds a TENSOR attribute.
func TensorAttr(name string, t *Tensor) *Attribute {
	return &Attribute{Name: name, Type: AttributeTensor, T: t}
}
