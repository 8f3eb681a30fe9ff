package onnx

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newNode(opType string, inputs, outputs []string, attrs ...*ir.Attribute) *ir.Node {
	return &ir.Node{Name: opType + "_node", OpType: opType, Input: inputs, Output: outputs, Attribute: attrs}
}

func TestContextInputs(t *testing.T) {
	n := newNode("Foo", []string{"c", "g", "", "f", "both", "x"}, []string{"y"})
	types := map[string]*ir.TypeProto{
		"x": ir.TensorType(ir.DataTypeFloat, "N", 3),
	}
	constants := map[string]*ir.Tensor{
		"c":    ir.Int64Tensor("c", []int64{2, 5}),
		"f":    {Name: "f", DataType: ir.DataTypeFloat, Dims: []int64{1}, FloatData: []float32{1}},
		"both": ir.Int64Scalar("both", 3),
	}
	generated := ShapeMap{
		"g":    NewShapeValue(SymbolicDim("N"), KnownDim(4)),
		"both": ShapeValueFromInts(100),
	}
	ctx := NewContext(n, types, constants, generated)
	require.Equal(t, n, ctx.Node())
	require.Equal(t, 6, ctx.NumInputs())
	require.Equal(t, 1, ctx.NumOutputs())
	require.Equal(t, "g", ctx.InputName(1))
	require.Equal(t, "", ctx.InputName(2))
	require.Equal(t, "", ctx.InputName(10))
	require.Equal(t, "y", ctx.OutputName(0))
	require.Equal(t, "", ctx.OutputName(1))

	sv, ok := ctx.GetInputData(0)
	require.True(t, ok)
	require.Equal(t, "{2, 5}", sv.String())

	sv, ok = ctx.GetInputData(1)
	require.True(t, ok)
	require.Equal(t, "{N, 4}", sv.String())

	_, ok = ctx.GetInputData(2) // Omitted.
	require.False(t, ok)

	_, ok = ctx.GetInputData(3) // Not an integer tensor.
	require.False(t, ok)

	// Constant data has priority over generated values.
	sv, ok = ctx.GetInputData(4)
	require.True(t, ok)
	require.Equal(t, "{3}", sv.String())

	_, ok = ctx.GetInputData(5) // Only a declared type.
	require.False(t, ok)
	require.Equal(t, "float[N,3]", ctx.GetInputType(5).String())
	require.Nil(t, ctx.GetInputType(0))
	require.Nil(t, ctx.GetInputType(2))
}

func TestContextSetOutputData(t *testing.T) {
	n := newNode("Foo", []string{"x"}, []string{"y", "", "z"})

	t.Run("Accumulates", func(t *testing.T) {
		generated := ShapeMap{"x": ShapeValueFromInts(1)}
		ctx := NewContext(n, nil, nil, generated)
		ctx.SetOutputData(0, ShapeValueFromInts(3))
		ctx.SetOutputData(2, ShapeValueFromInts(4))
		require.Len(t, ctx.Outputs(), 2)
		require.Equal(t, "{3}", ctx.Outputs()["y"].String())
		// The generated map is only updated by the Engine.
		require.Len(t, generated, 1)
	})

	t.Run("OmittedOutput", func(t *testing.T) {
		ctx := NewContext(n, nil, nil, nil)
		err := exceptions.TryCatch[error](func() { ctx.SetOutputData(1, ShapeValueFromInts(3)) })
		require.Error(t, err)
		err = exceptions.TryCatch[error](func() { ctx.SetOutputData(3, ShapeValueFromInts(3)) })
		require.Error(t, err)
	})

	t.Run("AlreadyGenerated", func(t *testing.T) {
		ctx := NewContext(n, nil, nil, ShapeMap{"y": ShapeValueFromInts(1)})
		err := exceptions.TryCatch[error](func() { ctx.SetOutputData(0, ShapeValueFromInts(3)) })
		var duplicate *DuplicateOutputError
		require.True(t, errors.As(err, &duplicate), "expected DuplicateOutputError, got %v", err)
		require.Equal(t, "y", duplicate.Name)
		require.Equal(t, n.String(), duplicate.Node)
	})

	t.Run("SetTwice", func(t *testing.T) {
		ctx := NewContext(n, nil, nil, nil)
		ctx.SetOutputData(2, ShapeValueFromInts(3))
		err := exceptions.TryCatch[error](func() { ctx.SetOutputData(2, ShapeValueFromInts(3)) })
		var duplicate *DuplicateOutputError
		require.True(t, errors.As(err, &duplicate))
		require.Equal(t, "z", duplicate.Name)
	})
}

func TestContextAttributes(t *testing.T) {
	n := newNode("Foo", nil, nil,
		ir.IntAttr("axis", -1),
		ir.IntsAttr("axes", 0, 2),
		&ir.Attribute{Name: "mode", S: "constant"},
		ir.TensorAttr("value", ir.Int64Scalar("", 7)))
	ctx := NewContext(n, nil, nil, nil)

	require.True(t, ctx.HasAttribute("axis"))
	require.False(t, ctx.HasAttribute("start"))
	require.Equal(t, "constant", ctx.Attribute("mode").S)
	require.Nil(t, ctx.Attribute("start"))

	require.Equal(t, int64(-1), ctx.IntAttr("axis", 0))
	require.Equal(t, int64(3), ctx.IntAttr("start", 3))
	require.Equal(t, []int64{0, 2}, ctx.IntsAttr("axes"))
	require.Equal(t, []int64{-1}, ctx.IntsAttr("axis"))
	require.Nil(t, ctx.IntsAttr("missing"))
	require.Equal(t, []int64{7}, ctx.TensorAttr("value").Int64Data)
	require.Nil(t, ctx.TensorAttr("missing"))

	// Wrong attribute types are contract violations.
	require.Error(t, exceptions.TryCatch[error](func() { ctx.IntAttr("mode", 0) }))
	require.Error(t, exceptions.TryCatch[error](func() { ctx.IntAttr("axes", 0) }))
	require.Error(t, exceptions.TryCatch[error](func() { ctx.TensorAttr("axis") }))
}

func TestConstantDataMemoised(t *testing.T) {
	tensor := ir.Int64Tensor("c", []int64{2, 5})
	cd := newConstantData(map[string]*ir.Tensor{"c": tensor})
	sv, ok := cd.shapeValue("c")
	require.True(t, ok)
	require.Equal(t, "{2, 5}", sv.String())

	// Conversion happens once per name.
	tensor.Int64Data[0] = 3
	sv, ok = cd.shapeValue("c")
	require.True(t, ok)
	require.Equal(t, "{2, 5}", sv.String())

	// Rank > 1 constants are not shape-like data.
	cd = newConstantData(map[string]*ir.Tensor{"m": ir.Int64Tensor("m", []int64{1, 2, 3, 4}, 2, 2)})
	_, ok = cd.shapeValue("m")
	require.False(t, ok)

	// Inconsistent tensors are ignored.
	cd = newConstantData(map[string]*ir.Tensor{"bad": ir.Int64Tensor("bad", []int64{1, 2, 3}, 2)})
	_, ok = cd.shapeValue("bad")
	require.False(t, ok)
}
