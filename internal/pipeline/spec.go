package pipeline

import (
	"context"
	"fmt"
)

// PortSpec declares one port of a node.
type PortSpec struct {
	Name string
	// DataType is informational; the executive never inspects payloads.
	DataType string
	// Optional inputs may be left unconnected.
	Optional bool
}

// Capabilities are the optional behaviours a node declares. The executive
// consults them instead of inspecting the node's concrete type.
type Capabilities struct {
	// Unsplittable nodes ask their inputs for the whole dataset and split
	// their own output internally.
	Unsplittable bool
	// HeterogeneousInputs nodes accept differing extents on their inputs.
	HeterogeneousInputs bool
	// StencilWidth is the neighbourhood, in cells or ghost levels, the node
	// reads around every output point.
	StencilWidth int
	// TimeAware nodes choose input times in their NegotiateExtent handler.
	TimeAware bool
	// TolerateUpstreamFailure nodes still execute when an upstream node
	// failed; the affected inputs carry no data.
	TolerateUpstreamFailure bool
}

// Handlers are the request handlers a node implements. Every handler is
// optional; nil handlers fall back to the executive's default policy.
type Handlers struct {
	DescribeOutputs func(ctx context.Context, req *DescribeRequest) error
	NegotiateExtent func(ctx context.Context, req *NegotiateRequest) error
	Execute         func(ctx context.Context, req *ExecuteRequest) error
	// ReleaseData is called with the payload of every output the pipeline
	// drops once no holder references it anymore.
	ReleaseData func(ctx context.Context, port int, data any)
}

// Spec is everything the pipeline needs to host a node.
type Spec struct {
	Kind         string
	Inputs       []PortSpec
	Outputs      []PortSpec
	Capabilities Capabilities
	Handlers     Handlers
}

// Validate checks the spec's structural rules.
func (s Spec) Validate() error {
	if s.Kind == "" {
		return fmt.Errorf("node spec has no kind")
	}
	if len(s.Outputs) == 0 {
		return fmt.Errorf("node kind %q declares no outputs", s.Kind)
	}
	if s.Capabilities.StencilWidth < 0 {
		return fmt.Errorf("node kind %q: negative stencil width %d", s.Kind, s.Capabilities.StencilWidth)
	}
	return nil
}
