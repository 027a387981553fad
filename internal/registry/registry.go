package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all algorithm modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// ArgumentDef declares one argument an algorithm accepts.
type ArgumentDef struct {
	Type        cty.Type
	Default     *cty.Value
	Optional    bool
	Description string
}

// Algorithm is a node kind that definition files can instantiate.
type Algorithm struct {
	Kind        string
	Description string
	Arguments   map[string]ArgumentDef
	// New builds the node spec from validated arguments. The same arguments
	// are also stored as the node's parameters; handlers should read them
	// from there so a changed argument does not require a new spec.
	New func(args map[string]cty.Value) (pipeline.Spec, error)
}

// Registry holds the algorithms of one application instance.
type Registry struct {
	algorithms map[string]*Algorithm
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{algorithms: make(map[string]*Algorithm)}
}

// Register adds an algorithm. Registering a kind twice is a programming
// error and panics.
func (r *Registry) Register(a *Algorithm) {
	if a == nil || a.Kind == "" {
		panic("algorithm must have a kind")
	}
	if a.New == nil {
		panic(fmt.Sprintf("algorithm '%s' has no constructor", a.Kind))
	}
	if _, exists := r.algorithms[a.Kind]; exists {
		panic(fmt.Sprintf("algorithm '%s' already registered", a.Kind))
	}
	slog.Debug("Registering algorithm.", "kind", a.Kind)
	r.algorithms[a.Kind] = a
}

// RegisterModules calls Register on each module.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Lookup returns the algorithm registered for kind.
func (r *Registry) Lookup(kind string) (*Algorithm, bool) {
	a, ok := r.algorithms[kind]
	return a, ok
}

// Kinds lists the registered kinds in order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.algorithms))
	for k := range r.algorithms {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
