package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DataType is the element type of a tensor, using the ONNX TensorProto.DataType numbering.
type DataType int32

const (
	DataTypeUndefined  DataType = 0
	DataTypeFloat      DataType = 1
	DataTypeUint8      DataType = 2
	DataTypeInt8       DataType = 3
	DataTypeUint16     DataType = 4
	DataTypeInt16      DataType = 5
	DataTypeInt32      DataType = 6
	DataTypeInt64      DataType = 7
	DataTypeString     DataType = 8
	DataTypeBool       DataType = 9
	DataTypeFloat16    DataType = 10
	DataTypeDouble     DataType = 11
	DataTypeUint32     DataType = 12
	DataTypeUint64     DataType = 13
	DataTypeComplex64  DataType = 14
	DataTypeComplex128 DataType = 15
	DataTypeBFloat16   DataType = 16
)

var dataTypeNames = map[DataType]string{
	DataTypeUndefined:  "undefined",
	DataTypeFloat:      "float",
	DataTypeUint8:      "uint8",
	DataTypeInt8:       "int8",
	DataTypeUint16:     "uint16",
	DataTypeInt16:      "int16",
	DataTypeInt32:      "int32",
	DataTypeInt64:      "int64",
	DataTypeString:     "string",
	DataTypeBool:       "bool",
	DataTypeFloat16:    "float16",
	DataTypeDouble:     "double",
	DataTypeUint32:     "uint32",
	DataTypeUint64:     "uint64",
	DataTypeComplex64:  "complex64",
	DataTypeComplex128: "complex128",
	DataTypeBFloat16:   "bfloat16",
}

// String implements fmt.Stringer, using the names of the ONNX textual format.
func (dt DataType) String() string {
	if name, found := dataTypeNames[dt]; found {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int32(dt))
}

// ParseDataType converts a name as printed by DataType.String (case-insensitive) to a DataType.
// "float32" and "float64" are accepted as aliases of "float" and "double".
func ParseDataType(name string) (DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "float32":
		return DataTypeFloat, nil
	case "float64":
		return DataTypeDouble, nil
	}
	for dt, dtName := range dataTypeNames {
		if dtName == name {
			return dt, nil
		}
	}
	return DataTypeUndefined, errors.Errorf("unknown data type %q", name)
}

// IsInteger returns whether the data type holds integer values (signed or unsigned).
func (dt DataType) IsInteger() bool {
	switch dt {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeUint8, DataTypeUint16, DataTypeUint32, DataTypeUint64:
		return true
	default:
		return false
	}
}
