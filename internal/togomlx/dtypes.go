// Package togomlx contains conversion utilities from the IR to GoMLX types.
package togomlx

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
)

// DType converts an IR (ONNX) data type to a GoMLX data type.
func DType(dt ir.DataType) (dtypes.DType, error) {
	switch dt {
	case ir.DataTypeFloat:
		return dtypes.Float32, nil
	case ir.DataTypeFloat16:
		return dtypes.Float16, nil
	case ir.DataTypeBFloat16:
		return dtypes.BFloat16, nil
	case ir.DataTypeDouble:
		return dtypes.Float64, nil
	case ir.DataTypeInt32:
		return dtypes.Int32, nil
	case ir.DataTypeInt64:
		return dtypes.Int64, nil
	case ir.DataTypeUint8:
		return dtypes.Uint8, nil
	case ir.DataTypeInt8:
		return dtypes.Int8, nil
	case ir.DataTypeInt16:
		return dtypes.Int16, nil
	case ir.DataTypeUint16:
		return dtypes.Uint16, nil
	case ir.DataTypeUint32:
		return dtypes.Uint32, nil
	case ir.DataTypeUint64:
		return dtypes.Uint64, nil
	case ir.DataTypeBool:
		return dtypes.Bool, nil
	case ir.DataTypeComplex64:
		return dtypes.Complex64, nil
	case ir.DataTypeComplex128:
		return dtypes.Complex128, nil
	default:
		return dtypes.InvalidDType, errors.Errorf("unsupported/unknown ONNX data type %v", dt)
	}
}
