package onnx

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/onnx-dataprop/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultOpsetVersion is the version of the default domain used when the graph comes without
// operator set imports and none is configured with WithDefaultOpset.
const DefaultOpsetVersion = 15

// EngineState is the phase of an Engine.
type EngineState int

const (
	// NotStarted is the state of a new Engine.
	NotStarted EngineState = iota

	// Seeding collects the declared types and the constant data of the graph.
	Seeding

	// Iterating visits the nodes in order, running their propagation rules.
	Iterating

	// Done is the final state, after Run returned (successfully or not).
	Done
)

// String returns the name of the state.
func (s EngineState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Seeding:
		return "Seeding"
	case Iterating:
		return "Iterating"
	case Done:
		return "Done"
	default:
		return "Invalid"
	}
}

// NodeCallback is called by the Engine after each node is processed, with the node index in the
// graph and the values generated so far. generated must not be modified.
type NodeCallback func(index int, node *ir.Node, generated ShapeMap)

// Engine runs the data propagation over a graph: it seeds the declared types and constants, and
// then runs each node's propagation rule in order, accumulating the generated values.
//
// An Engine is single-use: create one per graph with NewEngine.
type Engine struct {
	registry       *Registry
	opsetImports   map[string]int
	defaultVersion int
	callback       NodeCallback

	state       EngineState
	types       map[string]*ir.TypeProto
	constants   *constantData
	generated   ShapeMap
	provenance  map[string]Provenance
	unsupported []*ir.Node
}

// Option configures an Engine, see NewEngine.
type Option func(e *Engine)

// WithOpsetImports sets the version of each operator set domain, usually taken from
// ir.Model.OpsetImport. Nodes of domains not listed are skipped, except for the default domain
// that falls back to the default opset version (see WithDefaultOpset).
func WithOpsetImports(imports ...*ir.OpsetID) Option {
	return func(e *Engine) {
		for _, opset := range imports {
			if opset == nil {
				continue
			}
			e.opsetImports[normalizeDomain(opset.Domain)] = int(opset.Version)
		}
	}
}

// WithDefaultOpset sets the version of the default domain used when it is not imported explicitly.
// The default is DefaultOpsetVersion.
func WithDefaultOpset(version int) Option {
	return func(e *Engine) {
		e.defaultVersion = version
	}
}

// WithNodeCallback sets a function called after each node is processed.
func WithNodeCallback(fn NodeCallback) Option {
	return func(e *Engine) {
		e.callback = fn
	}
}

// NewEngine creates an Engine that uses the rules in registry. If registry is nil, DefaultRegistry
// is used.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	e := &Engine{
		registry:       registry,
		opsetImports:   make(map[string]int),
		defaultVersion: DefaultOpsetVersion,
		state:          NotStarted,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current phase of the Engine.
func (e *Engine) State() EngineState { return e.state }

// Unsupported returns the nodes skipped because no propagation rule was found for them, in the last Run.
func (e *Engine) Unsupported() []*ir.Node { return e.unsupported }

// Propagate runs the data propagation over graph with the default registry, using opsetVersion
// for the default domain.
func Propagate(graph *ir.Graph, opsetVersion int) (ShapeMap, error) {
	return NewEngine(nil, WithDefaultOpset(opsetVersion)).Run(graph)
}

// Run the data propagation over graph and return the generated values, keyed by output name.
//
// Only values produced by nodes are returned: graph inputs and constants are not. Nodes whose
// operator has no rule are skipped (logged with klog at verbosity 1). A rule violating its contract
// (e.g. writing an output twice, see DuplicateOutputError) aborts the run with an error.
//
// The graph is not modified.
func (e *Engine) Run(graph *ir.Graph) (generated ShapeMap, err error) {
	if e.state != NotStarted {
		return nil, errors.Errorf("onnx.Engine.Run: engine is in state %s, a new Engine must be created for each run", e.state)
	}
	defer func() { e.state = Done }()
	if graph == nil {
		return nil, errors.New("onnx.Engine.Run: nil graph")
	}

	e.state = Seeding
	e.seed(graph)

	e.state = Iterating
	e.generated = make(ShapeMap)
	e.provenance = make(map[string]Provenance)
	for ii, node := range graph.Node {
		err = exceptions.TryCatch[error](func() { e.propagateNode(node) })
		if err != nil {
			return nil, errors.WithMessagef(err, "while propagating node %d (%s) out of %d", ii, node, len(graph.Node))
		}
		if e.callback != nil {
			e.callback(ii, node, e.generated)
		}
	}
	klog.V(1).Infof("onnx: data propagation of graph %q generated %d values, %d nodes unsupported",
		graph.Name, len(e.generated), len(e.unsupported))
	return e.generated, nil
}

// seed collects the declared types (value_info, then inputs, then outputs: the last declaration
// of a name wins) and the constant tensors (initializers, then Constant nodes). Constants without
// a declared type get one from the tensor.
func (e *Engine) seed(graph *ir.Graph) {
	e.types = make(map[string]*ir.TypeProto)
	for _, infos := range [][]*ir.ValueInfo{graph.ValueInfo, graph.Input, graph.Output} {
		for _, info := range infos {
			if info == nil || info.Type == nil {
				continue
			}
			e.types[info.Name] = info.Type
		}
	}

	tensors := make(map[string]*ir.Tensor)
	for _, t := range graph.Initializer {
		tensors[t.Name] = t
	}
	for _, node := range graph.Node {
		if !isConstantNode(node) {
			continue
		}
		if t := constantNodeTensor(node); t != nil {
			tensors[node.Output[0]] = t
		}
	}
	for name, t := range tensors {
		// Constants have an implicit type when it is not declared.
		if _, found := e.types[name]; !found {
			dims := make([]any, len(t.Dims))
			for ii, dim := range t.Dims {
				dims[ii] = dim
			}
			e.types[name] = ir.TensorType(t.DataType, dims...)
		}
	}
	e.constants = newConstantData(tensors)
	klog.V(2).Infof("onnx: seeded %d declared types and %d constants", len(e.types), len(tensors))
}

func isConstantNode(node *ir.Node) bool {
	return node.OpType == "Constant" && normalizeDomain(node.Domain) == DefaultDomain
}

// constantNodeTensor returns the value of a Constant node with one output, if given by one of the
// integer-compatible attributes "value", "value_int" or "value_ints". Otherwise, it returns nil.
func constantNodeTensor(node *ir.Node) *ir.Tensor {
	if len(node.Output) != 1 || node.Output[0] == "" {
		return nil
	}
	name := node.Output[0]
	if attr := node.GetAttribute("value"); attr != nil && attr.T != nil {
		t := *attr.T
		t.Name = name
		return &t
	}
	if attr := node.GetAttribute("value_int"); attr != nil {
		return ir.Int64Scalar(name, attr.I)
	}
	if attr := node.GetAttribute("value_ints"); attr != nil {
		return ir.Int64Tensor(name, attr.Ints)
	}
	return nil
}

// opsetVersion returns the version of domain to use for a node.
func (e *Engine) opsetVersion(domain string) (int, bool) {
	domain = normalizeDomain(domain)
	if version, found := e.opsetImports[domain]; found {
		return version, true
	}
	if domain == DefaultDomain {
		return e.defaultVersion, true
	}
	return 0, false
}

// propagateNode runs the rule of node, and merges its outputs into the generated values.
// Contract violations are thrown as exceptions.
func (e *Engine) propagateNode(node *ir.Node) {
	if isConstantNode(node) {
		return
	}
	version, found := e.opsetVersion(node.Domain)
	if !found {
		klog.V(1).Infof("onnx: skipping %s: operator set domain %q not imported", node, node.Domain)
		e.unsupported = append(e.unsupported, node)
		return
	}
	fn, err := e.registry.Lookup(node.OpType, node.Domain, version)
	if err != nil {
		if IsDataDependentOp(node.OpType) {
			klog.V(1).Infof("onnx: skipping %s: output depends on tensor values", node)
		} else {
			klog.V(1).Infof("onnx: skipping %s: %v", node, err)
		}
		e.unsupported = append(e.unsupported, node)
		return
	}
	ctx := newContext(node, e.types, e.constants, e.generated)
	fn(ctx)
	if len(ctx.pending) == 0 {
		return
	}
	provenance := e.nodeProvenance(node)
	for name, value := range ctx.pending {
		e.generated[name] = value
		e.provenance[name] = provenance
		klog.V(2).Infof("onnx: %s: %s=%s", node.OpType, name, value)
	}
}
