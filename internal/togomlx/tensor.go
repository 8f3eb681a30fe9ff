package togomlx

import (
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
)

// Shape converts an IR tensor's data type and dimensions to GoMLX shapes.Shape (it includes the dtype).
func Shape(t *ir.Tensor) (shape shapes.Shape, err error) {
	if t == nil {
		err = errors.New("tensor is nil")
		return
	}
	dtype, err := DType(t.DataType)
	if err != nil {
		return
	}
	dims := make([]int, len(t.Dims))
	for axis, dim := range t.Dims {
		if dim < 0 {
			err = errors.Errorf("tensor %q has negative dimension %d in axis %d", t.Name, dim, axis)
			return
		}
		dims[axis] = int(dim)
	}
	shape = shapes.Make(dtype, dims...)
	return
}

// IntValues returns the values of an integer tensor as int64, after checking that the number of
// values matches its shape.
func IntValues(t *ir.Tensor) ([]int64, shapes.Shape, error) {
	shape, err := Shape(t)
	if err != nil {
		return nil, shape, err
	}
	values, err := t.IntValues()
	if err != nil {
		return nil, shape, err
	}
	if len(values) != shape.Size() {
		return nil, shape, errors.Errorf("tensor %q shaped %s has size %d, but %d values were given!?",
			t.Name, shape, shape.Size(), len(values))
	}
	return values, shape, nil
}
