package ir

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Tensor is a constant tensor: an initializer or the payload of a Constant node.
//
// As in ONNX, the values are stored either in one of the typed fields or as little-endian RawData.
// Int32Data also holds int8, int16, uint8, uint16 and bool values; Uint64Data holds uint32 and uint64.
type Tensor struct {
	Name       string    `yaml:"name"`
	DataType   DataType  `yaml:"data_type"`
	Dims       []int64   `yaml:"dims"`
	Int32Data  []int32   `yaml:"int32_data"`
	Int64Data  []int64   `yaml:"int64_data"`
	Uint64Data []uint64  `yaml:"uint64_data"`
	FloatData  []float32 `yaml:"float_data"`
	DoubleData []float64 `yaml:"double_data"`
	RawData    []byte    `yaml:"raw_data"`
}

// Int64Tensor returns an int64 tensor with the given values. If dims is empty the tensor is 1-D
// holding all values.
func Int64Tensor(name string, values []int64, dims ...int64) *Tensor {
	if len(dims) == 0 {
		dims = []int64{int64(len(values))}
	}
	return &Tensor{Name: name, DataType: DataTypeInt64, Dims: dims, Int64Data: values}
}

// Int64Scalar returns a scalar (rank 0) int64 tensor.
func Int64Scalar(name string, value int64) *Tensor {
	return &Tensor{Name: name, DataType: DataTypeInt64, Dims: []int64{}, Int64Data: []int64{value}}
}

// Rank of the tensor.
func (t *Tensor) Rank() int {
	return len(t.Dims)
}

// Size is the number of elements of the tensor, the product of its dimensions.
func (t *Tensor) Size() int64 {
	size := int64(1)
	for _, dim := range t.Dims {
		size *= dim
	}
	return size
}

// rawDataWidth returns the number of bytes per element of the integer types in RawData.
func rawDataWidth(dt DataType) int {
	switch dt {
	case DataTypeInt8, DataTypeUint8:
		return 1
	case DataTypeInt16, DataTypeUint16:
		return 2
	case DataTypeInt32, DataTypeUint32:
		return 4
	case DataTypeInt64, DataTypeUint64:
		return 8
	default:
		return 0
	}
}

// IntValues returns the flat values of an integer tensor converted to int64.
//
// It returns an error if the tensor is not of an integer type, or if it holds no data in a field
// compatible with its type.
func (t *Tensor) IntValues() ([]int64, error) {
	if t == nil {
		return nil, errors.New("tensor is nil")
	}
	if !t.DataType.IsInteger() {
		return nil, errors.Errorf("tensor %q has non-integer data type %s", t.Name, t.DataType)
	}
	if t.Size() == 0 {
		return []int64{}, nil
	}

	switch t.DataType {
	case DataTypeInt64:
		if t.Int64Data != nil {
			return append([]int64(nil), t.Int64Data...), nil
		}
	case DataTypeUint32, DataTypeUint64:
		if t.Uint64Data != nil {
			result := make([]int64, len(t.Uint64Data))
			for ii, v := range t.Uint64Data {
				result[ii] = int64(v)
			}
			return result, nil
		}
	default:
		if t.Int32Data != nil {
			result := make([]int64, len(t.Int32Data))
			for ii, v := range t.Int32Data {
				result[ii] = int64(v)
			}
			return result, nil
		}
	}

	// Fall back to raw data.
	if t.RawData != nil {
		width := rawDataWidth(t.DataType)
		if len(t.RawData)%width != 0 {
			return nil, errors.Errorf("tensor %q of type %s has %d bytes of raw-data, not a multiple of %d!?",
				t.Name, t.DataType, len(t.RawData), width)
		}
		numElems := len(t.RawData) / width
		result := make([]int64, numElems)
		for ii := range numElems {
			chunk := t.RawData[ii*width : (ii+1)*width]
			switch t.DataType {
			case DataTypeInt8:
				result[ii] = int64(int8(chunk[0]))
			case DataTypeUint8:
				result[ii] = int64(chunk[0])
			case DataTypeInt16:
				result[ii] = int64(int16(binary.LittleEndian.Uint16(chunk)))
			case DataTypeUint16:
				result[ii] = int64(binary.LittleEndian.Uint16(chunk))
			case DataTypeInt32:
				result[ii] = int64(int32(binary.LittleEndian.Uint32(chunk)))
			case DataTypeUint32:
				result[ii] = int64(binary.LittleEndian.Uint32(chunk))
			default:
				result[ii] = int64(binary.LittleEndian.Uint64(chunk))
			}
		}
		return result, nil
	}
	return nil, errors.Errorf("tensor %q of type %s has no data in a supported field", t.Name, t.DataType)
}
