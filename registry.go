package nodegraph

import (
	"fmt"
	"slices"
	"sync"
)

// PortSpec describes one port of a registered node type.
type PortSpec struct {
	DataType       DataType
	Policy         ConnectionPolicy
	Caption        string
	CaptionVisible bool
}

// NodeSpec describes how nodes of one type are initialized.
type NodeSpec struct {
	Caption        string
	CaptionVisible bool
	In             []PortSpec
	Out            []PortSpec
	Flags          NodeFlags
}

// Registry maps node type names to their specs. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]NodeSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]NodeSpec)}
}

// Register adds a node type. Registering the same name twice fails.
func (r *Registry) Register(name string, spec NodeSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.specs[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNodeType, name)
	}
	if len(spec.In) > MaxPorts || len(spec.Out) > MaxPorts {
		return fmt.Errorf("nodegraph: node type %q: more than %d ports on one side", name, MaxPorts)
	}
	r.specs[name] = spec
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (NodeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	return spec, ok
}

// Types returns the registered names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
