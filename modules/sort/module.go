// Package sort provides an unsplittable aggregation: it needs every item
// before it can produce any piece of its output, so it asks its input for
// the whole sequence and slices the sorted result itself.
package sort

import (
	"context"
	"slices"

	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/modules/sequence"
	"github.com/zclconf/go-cty/cty"
)

const Kind = "sort"

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	ascending := cty.False
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Sorts a sequence.",
		Arguments: map[string]registry.ArgumentDef{
			"descending": {Type: cty.Bool, Default: &ascending},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return Spec(), nil
		},
	})
}

// Spec is the node spec of the sort.
func Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:         Kind,
		Inputs:       []pipeline.PortSpec{{Name: "input", DataType: sequence.DataType}},
		Outputs:      []pipeline.PortSpec{{Name: "sorted", DataType: sequence.DataType}},
		Capabilities: pipeline.Capabilities{Unsplittable: true},
		Handlers:     pipeline.Handlers{Execute: execute},
	}
}

func execute(_ context.Context, req *pipeline.ExecuteRequest) error {
	in, err := sequence.FromInput(req, 0)
	if err != nil {
		return err
	}
	out, ok := req.OutputRequest(0)
	if !ok {
		out = pipeline.WholeRequest()
	}

	all := slices.Clone(in.Values)
	slices.Sort(all)
	var descending bool
	if err := req.Params.Decode("descending", &descending); err == nil && descending {
		slices.Reverse(all)
	}
	req.Progress(0.5)

	from, to := extent.SplitRange(len(all), out.Piece)
	return req.SetOutput(0, &sequence.Chunk{Start: from, Total: len(all), Values: all[from:to]})
}
