package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a pipeline
// definition.
type Model struct {
	Variables map[string]*Variable
	Nodes     []*Node
	Updates   []*Update
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Variables: make(map[string]*Variable)}
}

// Variable is a named, typed value arguments can refer to.
type Variable struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	// Value is the resolved value: an override, else the default.
	Value cty.Value
}

// Node is one algorithm instance.
type Node struct {
	Kind string
	Name string
	// Inputs are port addresses such as `src.output[0]`, one per input
	// port in order. An empty entry leaves that input unconnected.
	Inputs    []string
	Arguments map[string]cty.Value
	// Source is where the node was declared, for error messages.
	Source string
}

// Update asks for one node output to be brought up to date.
type Update struct {
	Node   string
	Port   int
	Extent []int
	Piece  *Piece
	Time   *float64
}

// Piece is a piece request in a definition file.
type Piece struct {
	Index int
	Count int
	Ghost int
}

// Node returns the node with the given name.
func (m *Model) Node(name string) (*Node, bool) {
	for _, n := range m.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Merge appends other's declarations. Duplicates are reported by Validate.
func (m *Model) Merge(other *Model) {
	for name, v := range other.Variables {
		m.Variables[name] = v
	}
	m.Nodes = append(m.Nodes, other.Nodes...)
	m.Updates = append(m.Updates, other.Updates...)
}

// Validate checks references between declarations: node names are unique,
// inputs name existing output ports and updates target existing nodes.
func (m *Model) Validate() error {
	var errs []string
	seen := make(map[string]string)
	for _, n := range m.Nodes {
		if prev, dup := seen[n.Name]; dup {
			errs = append(errs, fmt.Sprintf("node %q declared twice (%s and %s)", n.Name, prev, n.Source))
			continue
		}
		seen[n.Name] = n.Source
	}
	for _, n := range m.Nodes {
		for i, raw := range n.Inputs {
			if raw == "" {
				continue
			}
			port, err := nodeid.ParsePort(raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("node %q input %d: %v", n.Name, i, err))
				continue
			}
			if port.Direction != nodeid.DirOutput {
				errs = append(errs, fmt.Sprintf("node %q input %d: %q is not an output port", n.Name, i, raw))
			}
			if _, ok := seen[port.Node]; !ok {
				errs = append(errs, fmt.Sprintf("node %q input %d: unknown node %q", n.Name, i, port.Node))
			}
		}
	}
	for _, u := range m.Updates {
		if _, ok := seen[u.Node]; !ok {
			errs = append(errs, fmt.Sprintf("update targets unknown node %q", u.Node))
		}
		if u.Extent != nil && u.Piece != nil {
			errs = append(errs, fmt.Sprintf("update of %q sets both extent and piece", u.Node))
		}
		if u.Extent != nil && len(u.Extent) != 6 {
			errs = append(errs, fmt.Sprintf("update of %q: extent needs 6 values, got %d", u.Node, len(u.Extent)))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New("invalid pipeline definition:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
