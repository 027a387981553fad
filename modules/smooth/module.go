// Package smooth provides a box filter. Every output point is the mean of
// the input points within `radius` cells, so the node asks its input for
// the requested extent padded by the radius.
package smooth

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/modules/field"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

const Kind = "smooth"

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	one := cty.NumberIntVal(1)
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Box filter over a field.",
		Arguments: map[string]registry.ArgumentDef{
			"radius": {Type: cty.Number, Default: &one, Description: "half width of the box in cells"},
		},
		New: func(args map[string]cty.Value) (pipeline.Spec, error) {
			var radius int
			if err := gocty.FromCtyValue(args["radius"], &radius); err != nil {
				return pipeline.Spec{}, fmt.Errorf("radius: %w", err)
			}
			return Spec(radius)
		},
	})
}

// Spec is the node spec of a box filter with the given radius.
func Spec(radius int) (pipeline.Spec, error) {
	if radius < 0 {
		return pipeline.Spec{}, fmt.Errorf("radius must not be negative, got %d", radius)
	}
	return pipeline.Spec{
		Kind:         Kind,
		Inputs:       []pipeline.PortSpec{{Name: "input", DataType: field.DataType}},
		Outputs:      []pipeline.PortSpec{{Name: "output", DataType: field.DataType}},
		Capabilities: pipeline.Capabilities{StencilWidth: radius},
		Handlers:     pipeline.Handlers{Execute: execute},
	}, nil
}

func execute(_ context.Context, req *pipeline.ExecuteRequest) error {
	out, ok := field.OutputExtent(req, 0)
	if !ok {
		return fmt.Errorf("%s needs a structured request", Kind)
	}
	in, err := field.FromInput(req, 0)
	if err != nil {
		return err
	}
	radius := req.Params.Int("radius", 1)

	e := out.Extent
	res := field.New(e)
	res.Time, res.HasTime = in.Time, in.HasTime
	planes := e.Dimensions()[2]
	for k := e[4]; k <= e[5]; k++ {
		if req.Aborted() {
			return pipeline.ErrAborted
		}
		for j := e[2]; j <= e[3]; j++ {
			for i := e[0]; i <= e[1]; i++ {
				res.Set(i, j, k, boxMean(in, i, j, k, radius))
			}
		}
		req.Progress(float64(k-e[4]+1) / float64(planes))
	}
	return field.Publish(req, 0, res)
}

// boxMean averages the points of f within radius of (i, j, k). Points
// outside f are ignored.
func boxMean(f *field.Field, i, j, k, radius int) float64 {
	var sum float64
	var n int
	for dk := -radius; dk <= radius; dk++ {
		for dj := -radius; dj <= radius; dj++ {
			for di := -radius; di <= radius; di++ {
				if f.Contains(i+di, j+dj, k+dk) {
					sum += f.At(i+di, j+dj, k+dk)
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
