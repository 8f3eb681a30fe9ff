package onnx

import (
	"github.com/gomlx/onnx-dataprop/internal/togomlx"
	"github.com/gomlx/onnx-dataprop/ir"
	"k8s.io/klog/v2"
)

// constantData is the view of the constant tensors (initializers and Constant nodes payloads)
// used by Context.GetInputData.
//
// Tensors are converted to ShapeValue lazily, and the conversion is memoised here: it never goes
// into the generated ShapeMap, which only holds values produced by nodes.
type constantData struct {
	tensors   map[string]*ir.Tensor
	converted map[string]constantEntry
}

type constantEntry struct {
	value ShapeValue
	ok    bool
}

func newConstantData(tensors map[string]*ir.Tensor) *constantData {
	if tensors == nil {
		tensors = make(map[string]*ir.Tensor)
	}
	return &constantData{
		tensors:   tensors,
		converted: make(map[string]constantEntry),
	}
}

func (cd *constantData) has(name string) bool {
	_, found := cd.tensors[name]
	return found
}

// shapeValue returns the constant as a fully known ShapeValue, if it is an integer tensor of
// rank 0 or 1.
func (cd *constantData) shapeValue(name string) (ShapeValue, bool) {
	if entry, found := cd.converted[name]; found {
		return entry.value, entry.ok
	}
	entry := constantEntry{}
	entry.value, entry.ok = tensorToShapeValue(cd.tensors[name])
	cd.converted[name] = entry
	return entry.value, entry.ok
}

// tensorToShapeValue converts integer tensors of rank 0 or 1 to a ShapeValue.
func tensorToShapeValue(t *ir.Tensor) (ShapeValue, bool) {
	if t == nil || !t.DataType.IsInteger() || t.Rank() > 1 {
		return ShapeValue{}, false
	}
	values, _, err := togomlx.IntValues(t)
	if err != nil {
		klog.Warningf("onnx: ignoring constant data of %q: %+v", t.Name, err)
		return ShapeValue{}, false
	}
	return ShapeValueFromInts(values...), true
}
