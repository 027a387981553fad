// Package grid_source provides a structured source producing a synthetic
// field over a declared whole extent, optionally at discrete time steps.
package grid_source

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/modules/field"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the node kind used in definition files.
const Kind = "grid_source"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the algorithm with the registry.
func (m *Module) Register(r *registry.Registry) {
	zero := cty.NumberIntVal(0)
	one := cty.NumberIntVal(1)
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Synthetic field: value = offset + slope*(i+j+k) + time.",
		Arguments: map[string]registry.ArgumentDef{
			"whole_extent": {Type: cty.List(cty.Number), Description: "xmin, xmax, ymin, ymax, zmin, zmax"},
			"time_steps":   {Type: cty.List(cty.Number), Optional: true},
			"slope":        {Type: cty.Number, Default: &one},
			"offset":       {Type: cty.Number, Default: &zero},
		},
		New: func(args map[string]cty.Value) (pipeline.Spec, error) {
			return Spec(), nil
		},
	})
}

// Spec is the node spec of a grid source.
func Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:    Kind,
		Outputs: []pipeline.PortSpec{{Name: "field", DataType: field.DataType}},
		Handlers: pipeline.Handlers{
			DescribeOutputs: describe,
			Execute:         execute,
		},
	}
}

func wholeExtent(p *pipeline.Parameters) (extent.Extent, error) {
	var bounds []int
	if err := p.Decode("whole_extent", &bounds); err != nil {
		return extent.Empty(), err
	}
	return extent.FromSlice(bounds)
}

func describe(_ context.Context, req *pipeline.DescribeRequest) error {
	whole, err := wholeExtent(req.Params)
	if err != nil {
		return err
	}
	if err := req.SetWholeExtent(0, whole); err != nil {
		return err
	}
	if err := req.SetDataType(0, field.DataType); err != nil {
		return err
	}
	var steps []float64
	if _, ok := req.Params.Get("time_steps"); ok {
		if err := req.Params.Decode("time_steps", &steps); err != nil {
			return err
		}
	}
	if len(steps) > 0 {
		return req.SetTimeSteps(0, extent.Discrete(steps...))
	}
	return nil
}

func execute(ctx context.Context, req *pipeline.ExecuteRequest) error {
	out, ok := field.OutputExtent(req, 0)
	if !ok {
		return fmt.Errorf("%s needs a structured request", Kind)
	}
	slope := req.Params.Float("slope", 1)
	offset := req.Params.Float("offset", 0)

	f := field.New(out.Extent)
	if out.HasTime {
		f.Time, f.HasTime = out.Time, true
	}

	e := out.Extent
	planes := e.Dimensions()[2]
	for k := e[4]; k <= e[5]; k++ {
		if req.Aborted() {
			return pipeline.ErrAborted
		}
		for j := e[2]; j <= e[3]; j++ {
			for i := e[0]; i <= e[1]; i++ {
				f.Set(i, j, k, offset+slope*float64(i+j+k)+f.Time)
			}
		}
		req.Progress(float64(k-e[4]+1) / float64(planes))
	}

	ctxlog.FromContext(ctx).Debug("Generated field.", "node", req.Node.Name(), "extent", e.String())
	return field.Publish(req, 0, f)
}
