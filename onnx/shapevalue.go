package onnx

import (
	"fmt"
	"strings"

	"github.com/gomlx/onnx-dataprop/ir"
)

// DimensionKind tells which of the three forms a Dimension takes.
type DimensionKind int

const (
	// DimUnknown is a dimension about which nothing is known.
	DimUnknown DimensionKind = iota

	// DimKnown is a concrete integer value.
	DimKnown

	// DimSymbolic is a named parameter (e.g. "batch_size"). Names are opaque labels.
	DimSymbolic
)

// String returns a human-readable name for the kind.
func (k DimensionKind) String() string {
	switch k {
	case DimUnknown:
		return "unknown"
	case DimKnown:
		return "known"
	case DimSymbolic:
		return "symbolic"
	default:
		return "invalid"
	}
}

// Dimension is one element of a ShapeValue: a known integer, a symbolic parameter or unknown.
// The zero value is an unknown dimension.
type Dimension struct {
	kind  DimensionKind
	value int64
	name  string
}

// KnownDim returns a concrete dimension.
func KnownDim(value int64) Dimension {
	return Dimension{kind: DimKnown, value: value}
}

// SymbolicDim returns a dimension named by the given parameter.
func SymbolicDim(name string) Dimension {
	return Dimension{kind: DimSymbolic, name: name}
}

// UnknownDim returns an unknown dimension.
func UnknownDim() Dimension {
	return Dimension{}
}

// DimensionFromIR converts a declared dimension.
func DimensionFromIR(dim ir.Dim) Dimension {
	switch {
	case dim.HasValue:
		return KnownDim(dim.Value)
	case dim.Param != "":
		return SymbolicDim(dim.Param)
	default:
		return UnknownDim()
	}
}

// Kind of the dimension.
func (d Dimension) Kind() DimensionKind { return d.kind }

// IsKnown returns whether the dimension is a concrete value.
func (d Dimension) IsKnown() bool { return d.kind == DimKnown }

// IsSymbolic returns whether the dimension is a named parameter.
func (d Dimension) IsSymbolic() bool { return d.kind == DimSymbolic }

// Value returns the concrete value, and whether it is known.
func (d Dimension) Value() (int64, bool) {
	return d.value, d.kind == DimKnown
}

// Name returns the parameter name of a symbolic dimension, or "" otherwise.
func (d Dimension) Name() string { return d.name }

// String implements fmt.Stringer: the value, the parameter name or "?".
func (d Dimension) String() string {
	switch d.kind {
	case DimKnown:
		return fmt.Sprintf("%d", d.value)
	case DimSymbolic:
		return d.name
	default:
		return "?"
	}
}

// Equal compares two dimensions.
//
// Known dimensions are compared by value. Symbolic dimensions are comparable with each other,
// but are only reported as equal if they share the same name: different names are "not provably
// equal", which is not an error. Any other combination (known vs symbolic, or anything involving
// an unknown dimension) returns an *IncomparableDimensionsError.
func (d Dimension) Equal(other Dimension) (bool, error) {
	switch {
	case d.kind == DimKnown && other.kind == DimKnown:
		return d.value == other.value, nil
	case d.kind == DimSymbolic && other.kind == DimSymbolic:
		return d.name == other.name, nil
	default:
		return false, &IncomparableDimensionsError{Left: d, Right: other}
	}
}

// ShapeValue is the propagated fact about a value: an ordered sequence of dimensions.
//
// It is read in two ways: as the shape of a tensor (rank and per-axis extents) and as the
// contents of a 1-D integer tensor holding shape-like data (e.g. the output of a Shape op).
// The propagation engine treats both readings as the same thing, so a rule producing a shape
// can feed a rule that consumes data, see Context.GetInputData.
//
// A ShapeValue is immutable: constructors and accessors copy the dimensions.
type ShapeValue struct {
	dims []Dimension
}

// NewShapeValue creates a ShapeValue from the given dimensions.
func NewShapeValue(dims ...Dimension) ShapeValue {
	return ShapeValue{dims: append([]Dimension{}, dims...)}
}

// ShapeValueFromInts creates a fully known ShapeValue from a literal list of integers.
func ShapeValueFromInts(values ...int64) ShapeValue {
	dims := make([]Dimension, len(values))
	for ii, v := range values {
		dims[ii] = KnownDim(v)
	}
	return ShapeValue{dims: dims}
}

// ShapeValueFromType creates a ShapeValue from a declared type's shape.
// It returns false if the type is nil or has no shape (unknown rank).
func ShapeValueFromType(t *ir.TypeProto) (ShapeValue, bool) {
	if !t.HasShape() {
		return ShapeValue{}, false
	}
	dims := make([]Dimension, len(t.Shape.Dim))
	for ii, dim := range t.Shape.Dim {
		dims[ii] = DimensionFromIR(dim)
	}
	return ShapeValue{dims: dims}, true
}

// Rank is the number of dimensions (when read as data: the number of elements).
func (sv ShapeValue) Rank() int { return len(sv.dims) }

// Dim returns the i-th dimension. Negative indices count from the end.
// An out-of-range index returns an unknown dimension.
func (sv ShapeValue) Dim(i int) Dimension {
	if i < 0 {
		i += len(sv.dims)
	}
	if i < 0 || i >= len(sv.dims) {
		return UnknownDim()
	}
	return sv.dims[i]
}

// Dims returns a copy of the dimensions.
func (sv ShapeValue) Dims() []Dimension {
	return append([]Dimension{}, sv.dims...)
}

// IsKnownAt returns whether the i-th dimension is a concrete value.
func (sv ShapeValue) IsKnownAt(i int) bool {
	return sv.Dim(i).IsKnown()
}

// IsFullyKnown returns whether every dimension is a concrete value.
func (sv ShapeValue) IsFullyKnown() bool {
	for _, d := range sv.dims {
		if !d.IsKnown() {
			return false
		}
	}
	return true
}

// Ints returns the dimensions as integers (the "1-D integer data" reading), and whether they are
// all known.
func (sv ShapeValue) Ints() ([]int64, bool) {
	values := make([]int64, len(sv.dims))
	for ii, d := range sv.dims {
		v, ok := d.Value()
		if !ok {
			return nil, false
		}
		values[ii] = v
	}
	return values, true
}

// EqualsDim compares sv's i-th dimension with other's j-th dimension, see Dimension.Equal.
func (sv ShapeValue) EqualsDim(i int, other ShapeValue, j int) (bool, error) {
	return sv.Dim(i).Equal(other.Dim(j))
}

// Equal compares two ShapeValues dimension by dimension, see Dimension.Equal.
//
// Values of different rank are not equal, and neither are values with a pair of different known
// dimensions, regardless of the other pairs. Otherwise, the first incomparable pair of dimensions
// is returned as an error.
func (sv ShapeValue) Equal(other ShapeValue) (bool, error) {
	if sv.Rank() != other.Rank() {
		return false, nil
	}
	equal := true
	var firstErr error
	for ii := range sv.dims {
		eq, err := sv.EqualsDim(ii, other, ii)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !eq && sv.dims[ii].IsKnown() {
			return false, nil
		}
		equal = equal && eq
	}
	if firstErr != nil {
		return false, firstErr
	}
	return equal, nil
}

// String implements fmt.Stringer, e.g. `{7, N, ?}`.
func (sv ShapeValue) String() string {
	parts := make([]string, len(sv.dims))
	for ii, d := range sv.dims {
		parts[ii] = d.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
