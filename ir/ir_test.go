package ir

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const testModelYAML = `
ir_version: 8
opset_import:
  - {domain: "", version: 15}
graph:
  name: shape_test
  input:
    - name: x
      type: {elem_type: int32, shape: [7, batch, "?"]}
    - name: s
      type: {elem_type: float, shape: []}
    - name: r
      type: {elem_type: 1}
  initializer:
    - {name: axes, data_type: int64, dims: [1], int64_data: [0]}
  node:
    - {name: n0, op_type: Shape, input: [x], output: [xs]}
    - op_type: Unsqueeze
      input: [xs]
      output: [xu]
      attribute:
        - {name: axes, ints: [0]}
  output:
    - name: xu
      type: {elem_type: int64, shape: [1, 3]}
`

func TestYAML(t *testing.T) {
	var model Model
	require.NoError(t, yaml.Unmarshal([]byte(testModelYAML), &model))
	require.Equal(t, int64(8), model.IRVersion)
	require.Len(t, model.OpsetImport, 1)
	require.Equal(t, int64(15), model.OpsetImport[0].Version)

	g := model.Graph
	require.Equal(t, "shape_test", g.Name)
	require.Len(t, g.Input, 3)

	x := g.Input[0].Type
	require.Equal(t, DataTypeInt32, x.ElemType)
	require.True(t, x.HasShape())
	require.Equal(t, []Dim{DimValue(7), DimParam("batch"), {}}, x.Shape.Dim)
	require.Equal(t, "int32[7,batch,?]", x.String())

	s := g.Input[1].Type
	require.True(t, s.HasShape())
	require.Equal(t, 0, s.Shape.Rank())

	r := g.Input[2].Type
	require.Equal(t, DataTypeFloat, r.ElemType)
	require.False(t, r.HasShape())
	require.Equal(t, "float[*]", r.String())

	require.Len(t, g.Initializer, 1)
	require.Equal(t, DataTypeInt64, g.Initializer[0].DataType)
	require.Equal(t, []int64{0}, g.Initializer[0].Int64Data)

	require.Len(t, g.Node, 2)
	require.Equal(t, "n0: Shape(x) -> (xs)", g.Node[0].String())
	axes := g.Node[1].GetAttribute("axes")
	require.NotNil(t, axes)
	require.Equal(t, AttributeInts, axes.InferredType())
	require.Equal(t, []int64{0}, axes.Ints)
	require.Nil(t, g.Node[1].GetAttribute("missing"))

	t.Run("RoundTrip", func(t *testing.T) {
		encoded, err := yaml.Marshal(&model)
		require.NoError(t, err)
		var decoded Model
		require.NoError(t, yaml.Unmarshal(encoded, &decoded))
		require.Equal(t, model.Graph.Input[0].Type.String(), decoded.Graph.Input[0].Type.String())
		require.Equal(t, model.Graph.Output[0].Type.String(), decoded.Graph.Output[0].Type.String())
	})

	t.Run("BadDataType", func(t *testing.T) {
		var vi ValueInfo
		err := yaml.Unmarshal([]byte("{name: x, type: {elem_type: quaternion}}"), &vi)
		require.Error(t, err)
		require.Contains(t, err.Error(), "quaternion")
	})

	t.Run("QuotedNumber", func(t *testing.T) {
		var vi ValueInfo
		require.NoError(t, yaml.Unmarshal([]byte(`{name: x, type: {elem_type: int64, shape: [2, "7", 0x10]}}`), &vi))
		require.Equal(t, []Dim{DimValue(2), DimParam("7"), DimValue(16)}, vi.Type.Shape.Dim)
	})

	t.Run("BadShape", func(t *testing.T) {
		var vi ValueInfo
		err := yaml.Unmarshal([]byte("{name: x, type: {elem_type: int64, shape: 3}}"), &vi)
		require.Error(t, err)
	})
}

func TestDataType(t *testing.T) {
	for _, name := range []string{"int64", "INT64", " int64 "} {
		dt, err := ParseDataType(name)
		require.NoError(t, err)
		require.Equal(t, DataTypeInt64, dt)
	}
	dt, err := ParseDataType("float32")
	require.NoError(t, err)
	require.Equal(t, DataTypeFloat, dt)
	_, err = ParseDataType("int128")
	require.Error(t, err)

	require.True(t, DataTypeUint8.IsInteger())
	require.False(t, DataTypeBool.IsInteger())
	require.False(t, DataTypeFloat.IsInteger())
	require.Equal(t, "DataType(99)", DataType(99).String())
}

func TestMakeShape(t *testing.T) {
	shape := MakeShape(2, int64(3), "N", "?")
	require.Equal(t, "[2,3,N,?]", shape.String())
	require.True(t, shape.Dim[2].HasParam())
	require.False(t, shape.Dim[3].HasParam())
	require.Panics(t, func() { MakeShape(1.5) })
}

func TestTensorIntValues(t *testing.T) {
	t.Run("Int64Data", func(t *testing.T) {
		values, err := Int64Tensor("t", []int64{1, -2, 3}).IntValues()
		require.NoError(t, err)
		require.Equal(t, []int64{1, -2, 3}, values)
	})

	t.Run("Int32Data", func(t *testing.T) {
		tensor := &Tensor{Name: "t", DataType: DataTypeInt32, Dims: []int64{2}, Int32Data: []int32{-1, 5}}
		values, err := tensor.IntValues()
		require.NoError(t, err)
		require.Equal(t, []int64{-1, 5}, values)
	})

	t.Run("RawInt64", func(t *testing.T) {
		raw := make([]byte, 16)
		binary.LittleEndian.PutUint64(raw, 7)
		binary.LittleEndian.PutUint64(raw[8:], uint64(0xFFFFFFFFFFFFFFFF)) // -1
		tensor := &Tensor{Name: "t", DataType: DataTypeInt64, Dims: []int64{2}, RawData: raw}
		values, err := tensor.IntValues()
		require.NoError(t, err)
		require.Equal(t, []int64{7, -1}, values)
	})

	t.Run("RawInt32", func(t *testing.T) {
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint32(raw, 3)
		binary.LittleEndian.PutUint32(raw[4:], 0xFFFFFFFE) // -2
		tensor := &Tensor{Name: "t", DataType: DataTypeInt32, Dims: []int64{2}, RawData: raw}
		values, err := tensor.IntValues()
		require.NoError(t, err)
		require.Equal(t, []int64{3, -2}, values)
	})

	t.Run("RawBadLength", func(t *testing.T) {
		tensor := &Tensor{Name: "t", DataType: DataTypeInt64, Dims: []int64{1}, RawData: make([]byte, 5)}
		_, err := tensor.IntValues()
		require.Error(t, err)
	})

	t.Run("NotInteger", func(t *testing.T) {
		tensor := &Tensor{Name: "t", DataType: DataTypeFloat, FloatData: []float32{1}}
		_, err := tensor.IntValues()
		require.Error(t, err)
	})

	t.Run("NoData", func(t *testing.T) {
		tensor := &Tensor{Name: "t", DataType: DataTypeInt64, Dims: []int64{1}}
		_, err := tensor.IntValues()
		require.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		values, err := Int64Tensor("t", nil).IntValues()
		require.NoError(t, err)
		require.Empty(t, values)
	})

	t.Run("Scalar", func(t *testing.T) {
		tensor := Int64Scalar("t", 11)
		require.Equal(t, 0, tensor.Rank())
		require.Equal(t, int64(1), tensor.Size())
		values, err := tensor.IntValues()
		require.NoError(t, err)
		require.Equal(t, []int64{11}, values)
	})
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var model Model
		require.NoError(t, yaml.Unmarshal([]byte(testModelYAML), &model))
		require.NoError(t, model.Graph.Validate())
	})

	t.Run("Nil", func(t *testing.T) {
		var g *Graph
		require.Error(t, g.Validate())
	})

	t.Run("InitializerShadowsInput", func(t *testing.T) {
		g := &Graph{
			Input:       []*ValueInfo{{Name: "x"}},
			Initializer: []*Tensor{Int64Tensor("x", []int64{1})},
			Node:        []*Node{{OpType: "Identity", Input: []string{"x"}, Output: []string{"y"}}},
		}
		require.NoError(t, g.Validate())
	})

	t.Run("AllProblems", func(t *testing.T) {
		g := &Graph{
			Input: []*ValueInfo{{Name: "x"}},
			Node: []*Node{
				{Name: "a", OpType: "Identity", Input: []string{"x"}, Output: []string{"y"}},
				{Name: "b", OpType: "", Input: []string{"x"}, Output: []string{"z"}},
				{Name: "c", OpType: "Identity", Input: []string{"late"}, Output: []string{"y"}},
				{Name: "d", OpType: "Identity", Input: []string{"z", ""}, Output: []string{"late"}},
			},
		}
		err := g.Validate()
		require.Error(t, err)
		errs := multierr.Errors(err)
		require.Len(t, errs, 3)
		require.Contains(t, errs[0].Error(), "has no op_type")
		require.Contains(t, errs[1].Error(), `reads "late" before it is defined`)
		require.Contains(t, errs[2].Error(), `value "y" is defined more than once`)
	})
}
