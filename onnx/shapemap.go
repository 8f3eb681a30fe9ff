package onnx

import (
	"maps"
	"slices"
	"strings"
)

// ShapeMap maps value names to their propagated ShapeValue. It is the result of Engine.Run.
type ShapeMap map[string]ShapeValue

// Get returns the propagated value for name, and whether it was generated.
func (sm ShapeMap) Get(name string) (ShapeValue, bool) {
	sv, found := sm[name]
	return sv, found
}

// Names returns the generated names in sorted order.
func (sm ShapeMap) Names() []string {
	return slices.Sorted(maps.Keys(sm))
}

// Clone returns a shallow copy of the map (ShapeValues are immutable).
func (sm ShapeMap) Clone() ShapeMap {
	return maps.Clone(sm)
}

// String implements fmt.Stringer, one "name: {dims}" line per entry, sorted by name.
func (sm ShapeMap) String() string {
	var sb strings.Builder
	for _, name := range sm.Names() {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(sm[name].String())
		sb.WriteString("\n")
	}
	return sb.String()
}
