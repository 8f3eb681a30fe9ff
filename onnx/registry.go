package onnx

import (
	"maps"
	"slices"
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
)

// Propagator is the data propagation rule of an operator.
//
// It reads the node's inputs through ctx and calls ctx.SetOutputData for each output it can
// determine. Leaving outputs unset is the normal outcome when the inputs are not known well
// enough: propagation is best-effort.
type Propagator func(ctx *Context)

// DefaultDomain is the name of the standard ONNX operator set domain. "ai.onnx" is an alias.
const DefaultDomain = ""

// normalizeDomain maps the aliases of the default domain to DefaultDomain.
func normalizeDomain(domain string) string {
	if domain == "ai.onnx" {
		return DefaultDomain
	}
	return domain
}

// Schema describes one version of an operator, as far as data propagation is concerned.
// A schema applies from SinceVersion until the next registered version of the same operator.
type Schema struct {
	OpType       string
	Domain       string
	SinceVersion int

	propagator Propagator
}

// HasPropagationFunction returns whether this version of the operator has a data propagation rule.
func (s *Schema) HasPropagationFunction() bool {
	return s != nil && s.propagator != nil
}

// PropagationFunction returns the data propagation rule, or nil.
func (s *Schema) PropagationFunction() Propagator {
	if s == nil {
		return nil
	}
	return s.propagator
}

type schemaKey struct {
	domain, opType string
}

// Registry maps (operator, domain, version) to the operator's Schema.
//
// Registration is not safe for concurrent use; lookups are, once registration is finished.
type Registry struct {
	// schemas per operator, sorted by SinceVersion.
	schemas map[schemaKey][]*Schema
}

// NewRegistry returns an empty Registry. See DefaultRegistry for one with the built-in rules.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[schemaKey][]*Schema)}
}

// DefaultRegistry returns a new Registry with all the built-in propagation rules registered.
// The returned registry can be extended by the caller.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltinPropagators(r)
	return r
}

// Register the propagation rule fn for opType in domain, effective from sinceVersion.
// A nil fn registers a schema without data propagation.
//
// It panics if the same version of the operator is registered twice.
func (r *Registry) Register(opType, domain string, sinceVersion int, fn Propagator) {
	key := schemaKey{domain: normalizeDomain(domain), opType: opType}
	list := r.schemas[key]
	for _, s := range list {
		if s.SinceVersion == sinceVersion {
			exceptions.Panicf("operator %q (domain %q) version %d registered twice", opType, domain, sinceVersion)
		}
	}
	list = append(list, &Schema{OpType: opType, Domain: key.domain, SinceVersion: sinceVersion, propagator: fn})
	sort.Slice(list, func(i, j int) bool { return list[i].SinceVersion < list[j].SinceVersion })
	r.schemas[key] = list
}

// RegisterSchema registers a version of opType that has no data propagation rule.
func (r *Registry) RegisterSchema(opType, domain string, sinceVersion int) {
	r.Register(opType, domain, sinceVersion, nil)
}

// GetSchema returns the schema of opType in effect at the given version of domain: the one with
// the highest SinceVersion not greater than version. It returns nil if there is none.
func (r *Registry) GetSchema(opType string, version int, domain string) *Schema {
	list := r.schemas[schemaKey{domain: normalizeDomain(domain), opType: opType}]
	var found *Schema
	for _, s := range list {
		if s.SinceVersion > version {
			break
		}
		found = s
	}
	return found
}

// Lookup returns the propagation rule of opType in effect at the given version of domain.
//
// If the schema in effect has no propagation function the operator is unsupported at that
// version: older rules are not used as a fallback, since the operator semantics may have changed.
// In that case, or if there is no schema at all, the error wraps ErrUnsupportedOperator.
func (r *Registry) Lookup(opType, domain string, version int) (Propagator, error) {
	schema := r.GetSchema(opType, version, domain)
	if schema == nil {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "no schema for %q (domain %q) at version %d", opType, domain, version)
	}
	if !schema.HasPropagationFunction() {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "%q (domain %q) version %d (since %d)", opType, domain, version, schema.SinceVersion)
	}
	return schema.PropagationFunction(), nil
}

// OpTypes returns the sorted list of operators registered in domain.
func (r *Registry) OpTypes(domain string) []string {
	domain = normalizeDomain(domain)
	opTypes := sets.Make[string]()
	for key := range r.schemas {
		if key.domain == domain {
			opTypes.Insert(key.opType)
		}
	}
	return slices.Sorted(maps.Keys(opTypes))
}
