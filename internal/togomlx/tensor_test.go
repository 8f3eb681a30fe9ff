package togomlx

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/stretchr/testify/require"
)

// TestShape tests the Shape() function that converts IR tensors to GoMLX shapes.Shape
func TestShape(t *testing.T) {
	t.Run("NilTensor", func(t *testing.T) {
		_, err := Shape(nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "nil")
	})

	t.Run("Float32Scalar", func(t *testing.T) {
		shape, err := Shape(&ir.Tensor{Dims: []int64{}, DataType: ir.DataTypeFloat})
		require.NoError(t, err)
		require.Equal(t, dtypes.Float32, shape.DType)
		require.Equal(t, 0, shape.Rank())
	})

	t.Run("Int32_2D", func(t *testing.T) {
		shape, err := Shape(&ir.Tensor{Dims: []int64{3, 4}, DataType: ir.DataTypeInt32})
		require.NoError(t, err)
		require.Equal(t, dtypes.Int32, shape.DType)
		require.Equal(t, []int{3, 4}, shape.Dimensions)
	})

	t.Run("NegativeDimension", func(t *testing.T) {
		_, err := Shape(&ir.Tensor{Name: "t", Dims: []int64{3, -1}, DataType: ir.DataTypeInt64})
		require.Error(t, err)
		require.Contains(t, err.Error(), "negative dimension")
	})

	t.Run("UnsupportedDType", func(t *testing.T) {
		_, err := Shape(&ir.Tensor{Dims: []int64{1}, DataType: ir.DataTypeString})
		require.Error(t, err)
	})
}

func TestDType(t *testing.T) {
	for irType, want := range map[ir.DataType]dtypes.DType{
		ir.DataTypeFloat:  dtypes.Float32,
		ir.DataTypeDouble: dtypes.Float64,
		ir.DataTypeInt64:  dtypes.Int64,
		ir.DataTypeUint8:  dtypes.Uint8,
		ir.DataTypeBool:   dtypes.Bool,
	} {
		got, err := DType(irType)
		require.NoError(t, err)
		require.Equal(t, want, got, "converting %s", irType)
	}
	_, err := DType(ir.DataTypeUndefined)
	require.Error(t, err)
}

func TestIntValues(t *testing.T) {
	t.Run("Vector", func(t *testing.T) {
		values, shape, err := IntValues(ir.Int64Tensor("v", []int64{2, 3, 5}))
		require.NoError(t, err)
		require.Equal(t, []int64{2, 3, 5}, values)
		require.Equal(t, []int{3}, shape.Dimensions)
	})

	t.Run("Scalar", func(t *testing.T) {
		values, shape, err := IntValues(ir.Int64Scalar("s", -4))
		require.NoError(t, err)
		require.Equal(t, []int64{-4}, values)
		require.Equal(t, 0, shape.Rank())
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		_, _, err := IntValues(ir.Int64Tensor("v", []int64{2, 3, 5}, 2))
		require.Error(t, err)
		require.Contains(t, err.Error(), "3 values were given")
	})
}
