// Package scale provides a point-wise linear transform of a field. The work
// is split into chunks that run on the worker pool.
package scale

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/workpool"
	"github.com/vk/streamgrid/modules/field"
	"github.com/zclconf/go-cty/cty"
)

const Kind = "scale"

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	two := cty.NumberIntVal(2)
	zero := cty.NumberIntVal(0)
	four := cty.NumberIntVal(4)
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "value*factor + offset for every point.",
		Arguments: map[string]registry.ArgumentDef{
			"factor": {Type: cty.Number, Default: &two},
			"offset": {Type: cty.Number, Default: &zero},
			"chunks": {Type: cty.Number, Default: &four, Description: "blocks the extent is cut into"},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return Spec(), nil
		},
	})
}

// Spec is the node spec of the transform.
func Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:     Kind,
		Inputs:   []pipeline.PortSpec{{Name: "input", DataType: field.DataType}},
		Outputs:  []pipeline.PortSpec{{Name: "output", DataType: field.DataType}},
		Handlers: pipeline.Handlers{Execute: execute},
	}
}

func execute(ctx context.Context, req *pipeline.ExecuteRequest) error {
	out, ok := field.OutputExtent(req, 0)
	if !ok {
		return fmt.Errorf("%s needs a structured request", Kind)
	}
	in, err := field.FromInput(req, 0)
	if err != nil {
		return err
	}
	if !in.Extent.Contains(out.Extent) {
		return fmt.Errorf("input %s does not cover requested %s", in.Extent, out.Extent)
	}
	factor := req.Params.Float("factor", 2)
	offset := req.Params.Float("offset", 0)
	chunks := req.Params.Int("chunks", 4)

	res := field.New(out.Extent)
	res.Time, res.HasTime = in.Time, in.HasTime

	// Chunks write disjoint points of res.
	err = workpool.ForEachChunk(ctx, out.Extent, chunks, req.Workers(), func(_ context.Context, _ int, sub extent.Extent) error {
		if req.Aborted() {
			return pipeline.ErrAborted
		}
		field.Each(sub, func(i, j, k int) {
			res.Set(i, j, k, in.At(i, j, k)*factor+offset)
		})
		return nil
	})
	if err != nil {
		return err
	}
	return field.Publish(req, 0, res)
}
