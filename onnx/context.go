package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
)

// Context is the view a propagation rule has of one node: the declared types and the known data
// of the node's inputs, and a place to record the values of its outputs.
//
// A rule may only read the node's inputs and write the node's outputs. Writes are accumulated in
// the Context and merged into the generated map by the Engine once the rule returns.
type Context struct {
	node      *ir.Node
	types     map[string]*ir.TypeProto
	constants *constantData
	generated ShapeMap

	// pending holds the outputs set by the rule, not yet merged into generated.
	pending ShapeMap
}

// NewContext creates the Context for node.
//
// types are the declared types by name, constants the constant tensors by name (initializers and
// Constant node payloads) and generated the values produced by previously processed nodes. None of
// them is modified by the Context.
func NewContext(node *ir.Node, types map[string]*ir.TypeProto, constants map[string]*ir.Tensor, generated ShapeMap) *Context {
	return newContext(node, types, newConstantData(constants), generated)
}

func newContext(node *ir.Node, types map[string]*ir.TypeProto, constants *constantData, generated ShapeMap) *Context {
	if generated == nil {
		generated = make(ShapeMap)
	}
	return &Context{
		node:      node,
		types:     types,
		constants: constants,
		generated: generated,
		pending:   make(ShapeMap),
	}
}

// Node being propagated.
func (ctx *Context) Node() *ir.Node { return ctx.node }

// NumInputs returns the number of inputs of the node, including omitted optional ones.
func (ctx *Context) NumInputs() int { return len(ctx.node.Input) }

// NumOutputs returns the number of outputs of the node.
func (ctx *Context) NumOutputs() int { return len(ctx.node.Output) }

// InputName returns the name of the i-th input, or "" if it is omitted or out of range.
func (ctx *Context) InputName(i int) string {
	if i < 0 || i >= len(ctx.node.Input) {
		return ""
	}
	return ctx.node.Input[i]
}

// OutputName returns the name of the i-th output, or "" if it is omitted or out of range.
func (ctx *Context) OutputName(i int) string {
	if i < 0 || i >= len(ctx.node.Output) {
		return ""
	}
	return ctx.node.Output[i]
}

// GetInputType returns the declared type of the i-th input, or nil if there is none.
func (ctx *Context) GetInputType(i int) *ir.TypeProto {
	name := ctx.InputName(i)
	if name == "" {
		return nil
	}
	return ctx.types[name]
}

// GetInputData returns what is known about the contents of the i-th input, in priority order:
//
//  1. Constant data (initializer or Constant node) of an integer tensor of rank 0 or 1, as a
//     fully known ShapeValue.
//  2. The ShapeValue generated by an earlier node for that name. Notice this may be a shape
//     computed by a rule (e.g. Shape) that is now reinterpreted as literal 1-D integer data.
//
// It returns false if nothing is known.
func (ctx *Context) GetInputData(i int) (ShapeValue, bool) {
	name := ctx.InputName(i)
	if name == "" {
		return ShapeValue{}, false
	}
	if ctx.constants.has(name) {
		return ctx.constants.shapeValue(name)
	}
	return ctx.generated.Get(name)
}

// SetOutputData records sv as the value of the node's i-th output.
//
// Setting an output that was already generated (by this or another node) is a contract violation:
// it panics with a *DuplicateOutputError (an exception, see github.com/gomlx/exceptions), which
// Engine.Run converts to an error. An out-of-range index or an omitted output also panics.
func (ctx *Context) SetOutputData(i int, sv ShapeValue) {
	name := ctx.OutputName(i)
	if name == "" {
		exceptions.Panicf("%s: cannot set data of output #%d, node has %d outputs (or it is omitted)",
			ctx.node, i, ctx.NumOutputs())
	}
	_, inGenerated := ctx.generated[name]
	_, inPending := ctx.pending[name]
	if inGenerated || inPending {
		panic(errors.WithStack(&DuplicateOutputError{Name: name, Node: ctx.node.String()}))
	}
	ctx.pending[name] = sv
}

// Outputs returns the outputs set so far by the rule.
func (ctx *Context) Outputs() ShapeMap {
	return ctx.pending.Clone()
}

// HasAttribute returns whether the node has the named attribute.
func (ctx *Context) HasAttribute(name string) bool {
	return ctx.node.GetAttribute(name) != nil
}

// Attribute returns the named attribute, or nil.
func (ctx *Context) Attribute(name string) *ir.Attribute {
	return ctx.node.GetAttribute(name)
}

func (ctx *Context) assertAttrType(attr *ir.Attribute, attrTypes ...ir.AttributeType) {
	got := attr.InferredType()
	for _, t := range attrTypes {
		if got == t {
			return
		}
	}
	exceptions.Panicf("unsupported attribute %q of type %s in %s", attr.Name, got, ctx.node)
}

// IntAttr returns the named integer attribute, or defaultValue if it is not set.
// It panics if the attribute is present but is of the wrong type.
func (ctx *Context) IntAttr(name string, defaultValue int64) int64 {
	attr := ctx.node.GetAttribute(name)
	if attr == nil {
		return defaultValue
	}
	ctx.assertAttrType(attr, ir.AttributeInt)
	return attr.I
}

// IntsAttr returns the named list of integers attribute, or nil if it is not set.
// A single integer attribute is returned as a list of one element.
// It panics if the attribute is present but is of the wrong type.
func (ctx *Context) IntsAttr(name string) []int64 {
	attr := ctx.node.GetAttribute(name)
	if attr == nil {
		return nil
	}
	ctx.assertAttrType(attr, ir.AttributeInt, ir.AttributeInts)
	if attr.InferredType() == ir.AttributeInt {
		return []int64{attr.I}
	}
	return append([]int64{}, attr.Ints...)
}

// TensorAttr returns the named tensor attribute, or nil if it is not set.
// It panics if the attribute is present but is of the wrong type.
func (ctx *Context) TensorAttr(name string) *ir.Tensor {
	attr := ctx.node.GetAttribute(name)
	if attr == nil {
		return nil
	}
	ctx.assertAttrType(attr, ir.AttributeTensor)
	return attr.T
}
