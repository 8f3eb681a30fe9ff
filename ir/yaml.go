package ir

import (
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// This file implements decoding of the IR from its YAML description:
//
//	graph:
//	  input:
//	    - name: x
//	      type: {elem_type: int32, shape: [batch, 4, "?"]}
//	  node:
//	    - {op_type: Shape, input: [x], output: [xs]}

// UnmarshalYAML implements yaml.Unmarshaler: it accepts either the type name (e.g. "int64") or
// the ONNX enum value.
func (dt *DataType) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: data type must be a scalar", value.Line)
	}
	if n, err := strconv.ParseInt(value.Value, 10, 32); err == nil {
		*dt = DataType(n)
		return nil
	}
	parsed, err := ParseDataType(value.Value)
	if err != nil {
		return errors.WithMessagef(err, "line %d", value.Line)
	}
	*dt = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (dt DataType) MarshalYAML() (any, error) {
	return dt.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler: a shape is a sequence of dimensions.
func (s *TensorShape) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return errors.Errorf("line %d: shape must be a sequence of dimensions", value.Line)
	}
	s.Dim = make([]Dim, 0, len(value.Content))
	for _, item := range value.Content {
		var dim Dim
		if err := dim.UnmarshalYAML(item); err != nil {
			return err
		}
		s.Dim = append(s.Dim, dim)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s TensorShape) MarshalYAML() (any, error) {
	dims := make([]any, len(s.Dim))
	for ii, dim := range s.Dim {
		switch {
		case dim.HasValue:
			dims[ii] = dim.Value
		case dim.Param != "":
			dims[ii] = dim.Param
		default:
			dims[ii] = "?"
		}
	}
	return dims, nil
}

// UnmarshalYAML implements yaml.Unmarshaler: an integer is a concrete dimension, "?" (or an empty
// string) is unknown and any other string, including a quoted number, is a named parameter.
func (d *Dim) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: dimension must be a scalar", value.Line)
	}
	switch value.ShortTag() {
	case "!!int":
		var n int64
		if err := value.Decode(&n); err != nil {
			return errors.Wrapf(err, "line %d: invalid dimension %q", value.Line, value.Value)
		}
		*d = DimValue(n)
		return nil
	case "!!null":
		*d = Dim{}
		return nil
	}
	switch value.Value {
	case "", "?":
		*d = Dim{}
	default:
		*d = DimParam(value.Value)
	}
	return nil
}
