package onnx

// This file implements the built-in data propagation rules.
//
// The data being propagated is shape-like: 1-D (or scalar) integer tensors whose elements are
// dimensions. So the rules below implement the ONNX operators restricted to that case, e.g.
// Concat and Gather only along axis 0, and they leave the output unset whenever the result would
// not be 1-D or an operand that must be known at compile time is not.

// maxPropagatedElements bounds the length of the values that Expand and ConstantOfShape
// materialize from constant data. Longer outputs are left unset.
const maxPropagatedElements = 1 << 16

// registerBuiltinPropagators registers the versions of the operators supported by the engine.
func registerBuiltinPropagators(r *Registry) {
	for _, version := range []int{1, 9, 11, 12, 13, 19, 21} {
		// Constant nodes are seeded as constant data by the Engine, and never propagated.
		r.RegisterSchema("Constant", DefaultDomain, version)
	}
	r.Register("Shape", DefaultDomain, 1, shapePropagator)
	r.Register("Shape", DefaultDomain, 15, shapePropagator)
	for _, version := range []int{1, 13} {
		r.Register("Size", DefaultDomain, version, sizePropagator)
	}
	for _, version := range []int{1, 6, 13, 19} {
		r.Register("Cast", DefaultDomain, version, passThroughPropagator)
	}
	for _, version := range []int{1, 13, 14, 16} {
		r.Register("Identity", DefaultDomain, version, passThroughPropagator)
	}
	r.Register("Squeeze", DefaultDomain, 1, squeezePropagator(false))
	r.Register("Squeeze", DefaultDomain, 11, squeezePropagator(false))
	r.Register("Squeeze", DefaultDomain, 13, squeezePropagator(true))
	r.Register("Unsqueeze", DefaultDomain, 1, unsqueezePropagator(false))
	r.Register("Unsqueeze", DefaultDomain, 11, unsqueezePropagator(false))
	r.Register("Unsqueeze", DefaultDomain, 13, unsqueezePropagator(true))
	for _, version := range []int{4, 11, 13} {
		r.Register("Concat", DefaultDomain, version, concatPropagator)
	}
	for _, version := range []int{1, 11, 13} {
		r.Register("Gather", DefaultDomain, version, gatherPropagator)
	}
	r.Register("Slice", DefaultDomain, 1, slicePropagator(false))
	for _, version := range []int{10, 11, 13} {
		r.Register("Slice", DefaultDomain, version, slicePropagator(true))
	}
	for _, version := range []int{5, 13, 14, 19} {
		r.Register("Reshape", DefaultDomain, version, reshapePropagator)
	}
	for _, version := range []int{8, 13} {
		r.Register("Expand", DefaultDomain, version, expandPropagator)
	}
	for _, opType := range []string{"Add", "Sub", "Mul"} {
		for _, version := range []int{7, 13, 14} {
			r.Register(opType, DefaultDomain, version, mathPropagator(opType))
		}
	}
	r.Register("ConstantOfShape", DefaultDomain, 9, constantOfShapePropagator)
}

// inputInts returns the data of the i-th input as integers, if it is known and fully concrete.
func inputInts(ctx *Context, i int) ([]int64, bool) {
	data, ok := ctx.GetInputData(i)
	if !ok {
		return nil, false
	}
	return data.Ints()
}

// optionalInputInts is like inputInts for an optional input: present is false if the input is
// omitted, in which case ok is true.
func optionalInputInts(ctx *Context, i int) (values []int64, present, ok bool) {
	if ctx.InputName(i) == "" {
		return nil, false, true
	}
	values, ok = inputInts(ctx, i)
	return values, true, ok
}

// normalizeAxis adjusts a negative axis to rank, and reports whether it is in [-rank, rank-1].
func normalizeAxis(axis int64, rank int) (int64, bool) {
	if axis < -int64(rank) || axis >= int64(rank) {
		return 0, false
	}
	if axis < 0 {
		axis += int64(rank)
	}
	return axis, true
}

// axisIsZero reports whether the "axis" attribute refers to the only axis of 1-D data.
// If the attribute is missing, defaultZero is returned.
func axisIsZero(ctx *Context, defaultZero bool) bool {
	if !ctx.HasAttribute("axis") {
		return defaultZero
	}
	axis, ok := normalizeAxis(ctx.IntAttr("axis", 0), 1)
	return ok && axis == 0
}

// passThroughPropagator copies the data of input 0 to output 0. Used by Cast and Identity:
// the dimension values don't depend on the element type.
func passThroughPropagator(ctx *Context) {
	data, ok := ctx.GetInputData(0)
	if !ok {
		return
	}
	ctx.SetOutputData(0, data)
}

// shapePropagator outputs the declared shape of input 0 (not its data), honoring the optional
// "start" and "end" attributes (opset 15).
func shapePropagator(ctx *Context) {
	shape, ok := ShapeValueFromType(ctx.GetInputType(0))
	if !ok {
		return
	}
	rank := int64(shape.Rank())
	clampAxis := func(axis int64) int64 {
		if axis < 0 {
			axis += rank
		}
		return min(max(axis, 0), rank)
	}
	start := clampAxis(ctx.IntAttr("start", 0))
	end := rank
	if ctx.HasAttribute("end") {
		end = clampAxis(ctx.IntAttr("end", rank))
	}
	if start >= end {
		ctx.SetOutputData(0, NewShapeValue())
		return
	}
	ctx.SetOutputData(0, NewShapeValue(shape.Dims()[start:end]...))
}

// sizePropagator outputs the number of elements of input 0: the length of its data if known,
// otherwise the product of its declared dimensions, if they are all known.
func sizePropagator(ctx *Context) {
	if data, ok := ctx.GetInputData(0); ok {
		ctx.SetOutputData(0, ShapeValueFromInts(int64(data.Rank())))
		return
	}
	shape, ok := ShapeValueFromType(ctx.GetInputType(0))
	if !ok {
		return
	}
	dims, ok := shape.Ints()
	if !ok {
		return
	}
	size := int64(1)
	for _, dim := range dims {
		size *= dim
	}
	ctx.SetOutputData(0, ShapeValueFromInts(size))
}

// squeezePropagator returns the Squeeze rule, with the axes given as attribute (opset < 13)
// or as the optional second input (opset >= 13).
//
// Squeeze doesn't change the elements of the data, only the rank of the tensor holding them. So the
// data is passed through, once the axes are known to be valid for 1-D data: only axis 0 can be
// squeezed, and only if it has length 1.
func squeezePropagator(axesFromInput bool) Propagator {
	return func(ctx *Context) {
		data, ok := ctx.GetInputData(0)
		if !ok {
			return
		}
		var axes []int64
		if axesFromInput {
			var present bool
			axes, present, ok = optionalInputInts(ctx, 1)
			if present && !ok {
				return
			}
		} else {
			axes = ctx.IntsAttr("axes")
		}
		for _, axis := range axes {
			if _, ok := normalizeAxis(axis, 1); !ok || data.Rank() != 1 {
				return
			}
		}
		ctx.SetOutputData(0, data)
	}
}

// unsqueezePropagator returns the Unsqueeze rule, with the axes given as attribute (opset < 13)
// or as the required second input (opset >= 13).
//
// As with Squeeze the elements are unchanged. The axes must be known, and valid and unique for
// the output rank.
func unsqueezePropagator(axesFromInput bool) Propagator {
	return func(ctx *Context) {
		data, ok := ctx.GetInputData(0)
		if !ok {
			return
		}
		var axes []int64
		if axesFromInput {
			if axes, ok = inputInts(ctx, 1); !ok {
				return
			}
		} else {
			axes = ctx.IntsAttr("axes")
		}
		if len(axes) == 0 {
			return
		}
		outputRank := 1 + len(axes)
		seen := make(map[int64]bool, len(axes))
		for _, axis := range axes {
			normalized, ok := normalizeAxis(axis, outputRank)
			if !ok || seen[normalized] {
				return
			}
			seen[normalized] = true
		}
		ctx.SetOutputData(0, data)
	}
}

// concatPropagator concatenates the data of all inputs, if "axis" refers to axis 0.
func concatPropagator(ctx *Context) {
	if ctx.NumInputs() == 0 || !axisIsZero(ctx, false) {
		return
	}
	var dims []Dimension
	for i := range ctx.NumInputs() {
		data, ok := ctx.GetInputData(i)
		if !ok {
			return
		}
		dims = append(dims, data.Dims()...)
	}
	ctx.SetOutputData(0, NewShapeValue(dims...))
}

// gatherPropagator picks the elements of the data (input 0) at the indices (input 1).
// Indices must all be known; negative indices count from the end, and any index out of bounds
// leaves the output unset.
func gatherPropagator(ctx *Context) {
	if !axisIsZero(ctx, true) {
		return
	}
	data, ok := ctx.GetInputData(0)
	if !ok {
		return
	}
	indices, ok := inputInts(ctx, 1)
	if !ok {
		return
	}
	dims := make([]Dimension, 0, len(indices))
	for _, index := range indices {
		index, ok := normalizeAxis(index, data.Rank())
		if !ok {
			return
		}
		dims = append(dims, data.Dim(int(index)))
	}
	ctx.SetOutputData(0, NewShapeValue(dims...))
}

// sliceIndices returns the indices selected by an ONNX Slice over an axis of length dim,
// clamping start and end as the runtime operator does. step must not be 0.
//
// The loop stops before i+step would pass end, so steps close to the int64 limits don't overflow.
func sliceIndices(start, end, step, dim int64) []int64 {
	if start < 0 {
		start += dim
	}
	if end < 0 {
		end += dim
	}
	var indices []int64
	if step > 0 {
		start = min(max(start, 0), dim)
		end = min(max(end, 0), dim)
		for i := start; i < end; i += step {
			indices = append(indices, i)
			if step >= end-i {
				break
			}
		}
	} else {
		start = min(max(start, 0), dim-1)
		end = min(max(end, -1), dim-1)
		for i := start; i > end; i += step {
			indices = append(indices, i)
			if step <= end-i {
				break
			}
		}
	}
	return indices
}

// slicePropagator returns the Slice rule, with starts/ends/axes given as attributes (opset 1)
// or as inputs, plus the optional steps (opset >= 10).
//
// Only a single slice along axis 0 is supported, which is the only axis of 1-D data.
func slicePropagator(fromInputs bool) Propagator {
	return func(ctx *Context) {
		data, ok := ctx.GetInputData(0)
		if !ok {
			return
		}
		var starts, ends, axes, steps []int64
		if fromInputs {
			if starts, ok = inputInts(ctx, 1); !ok {
				return
			}
			if ends, ok = inputInts(ctx, 2); !ok {
				return
			}
			var present bool
			if axes, present, ok = optionalInputInts(ctx, 3); present && !ok {
				return
			}
			if steps, present, ok = optionalInputInts(ctx, 4); present && !ok {
				return
			}
		} else {
			starts = ctx.IntsAttr("starts")
			ends = ctx.IntsAttr("ends")
			axes = ctx.IntsAttr("axes")
		}
		if len(starts) != 1 || len(ends) != 1 {
			return
		}
		if axes != nil {
			if len(axes) != 1 {
				return
			}
			if axis, ok := normalizeAxis(axes[0], 1); !ok || axis != 0 {
				return
			}
		}
		step := int64(1)
		if steps != nil {
			if len(steps) != 1 || steps[0] == 0 {
				return
			}
			step = steps[0]
		}
		indices := sliceIndices(starts[0], ends[0], step, int64(data.Rank()))
		dims := make([]Dimension, len(indices))
		for ii, index := range indices {
			dims[ii] = data.Dim(int(index))
		}
		ctx.SetOutputData(0, NewShapeValue(dims...))
	}
}

// reshapePropagator passes the data through when the target shape (input 1) is known and keeps it
// 1-D (or scalar, for a single element) with the same number of elements.
func reshapePropagator(ctx *Context) {
	data, ok := ctx.GetInputData(0)
	if !ok {
		return
	}
	target, ok := inputInts(ctx, 1)
	if !ok {
		return
	}
	n := int64(data.Rank())
	switch len(target) {
	case 0:
		if n != 1 {
			return
		}
	case 1:
		dim := target[0]
		if dim == 0 && ctx.IntAttr("allowzero", 0) == 0 {
			// Zero copies the input dimension.
			dim = n
		}
		if dim != -1 && dim != n {
			return
		}
	default:
		return
	}
	ctx.SetOutputData(0, data)
}

// expandPropagator broadcasts the data to the target shape (input 1), when the result is 1-D.
func expandPropagator(ctx *Context) {
	data, ok := ctx.GetInputData(0)
	if !ok {
		return
	}
	target, ok := inputInts(ctx, 1)
	if !ok {
		return
	}
	n := int64(data.Rank())
	switch len(target) {
	case 0:
		ctx.SetOutputData(0, data)
	case 1:
		m := target[0]
		switch {
		case m == n || m == 1:
			ctx.SetOutputData(0, data)
		case n == 1 && m >= 0 && m <= maxPropagatedElements:
			dims := make([]Dimension, m)
			for ii := range dims {
				dims[ii] = data.Dim(0)
			}
			ctx.SetOutputData(0, NewShapeValue(dims...))
		}
	}
}

// mathPropagator returns the rule for the element-wise integer operator opType (Add, Sub or Mul).
// All elements must be known; a single element is broadcast against the other operand.
func mathPropagator(opType string) Propagator {
	var op func(a, b int64) int64
	switch opType {
	case "Add":
		op = func(a, b int64) int64 { return a + b }
	case "Sub":
		op = func(a, b int64) int64 { return a - b }
	case "Mul":
		op = func(a, b int64) int64 { return a * b }
	default:
		panic("mathPropagator: unsupported op type " + opType)
	}
	return func(ctx *Context) {
		lhs, ok := inputInts(ctx, 0)
		if !ok {
			return
		}
		rhs, ok := inputInts(ctx, 1)
		if !ok {
			return
		}
		var results []int64
		switch {
		case len(lhs) == len(rhs):
			results = make([]int64, len(lhs))
			for ii := range lhs {
				results[ii] = op(lhs[ii], rhs[ii])
			}
		case len(lhs) == 1:
			results = make([]int64, len(rhs))
			for ii := range rhs {
				results[ii] = op(lhs[0], rhs[ii])
			}
		case len(rhs) == 1:
			results = make([]int64, len(lhs))
			for ii := range lhs {
				results[ii] = op(lhs[ii], rhs[0])
			}
		default:
			return
		}
		ctx.SetOutputData(0, ShapeValueFromInts(results...))
	}
}

// constantOfShapePropagator fills the 1-D (or scalar) shape given by input 0 with the integer
// "value" attribute. Without the attribute the fill value is a float 0, which is not propagated.
func constantOfShapePropagator(ctx *Context) {
	shape, ok := inputInts(ctx, 0)
	if !ok || len(shape) > 1 {
		return
	}
	valueTensor := ctx.TensorAttr("value")
	if valueTensor == nil || !valueTensor.DataType.IsInteger() {
		return
	}
	values, ok := tensorToShapeValue(valueTensor)
	if !ok || values.Rank() != 1 {
		return
	}
	count := int64(1)
	if len(shape) == 1 {
		count = shape[0]
	}
	if count < 0 || count > maxPropagatedElements {
		return
	}
	dims := make([]Dimension, count)
	for ii := range dims {
		dims[ii] = values.Dim(0)
	}
	ctx.SetOutputData(0, NewShapeValue(dims...))
}
