// Package sequence provides an unstructured source of numbers that honours
// piece requests: piece p of n covers a contiguous run of the items.
package sequence

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const (
	Kind     = "sequence"
	DataType = "sequence"
)

// Chunk is a run of items starting at item Start.
type Chunk struct {
	Start  int
	Total  int
	Values []float64
}

func (c *Chunk) String() string {
	return fmt.Sprintf("sequence items [%d,%d) of %d", c.Start, c.Start+len(c.Values), c.Total)
}

// FromInput returns the chunk carried by an input.
func FromInput(req *pipeline.ExecuteRequest, i int) (*Chunk, error) {
	c, ok := req.Input(i).Data.(*Chunk)
	if !ok {
		return nil, fmt.Errorf("input %d carries %T, want a sequence", i, req.Input(i).Data)
	}
	return c, nil
}

// Module implements the registry.Module interface for this package.
type Module struct{}

func (m *Module) Register(r *registry.Registry) {
	zero := cty.NumberIntVal(0)
	one := cty.NumberIntVal(1)
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Items start + step*((i*stride) mod count) for i in [0, count).",
		Arguments: map[string]registry.ArgumentDef{
			"count":  {Type: cty.Number},
			"start":  {Type: cty.Number, Default: &zero},
			"step":   {Type: cty.Number, Default: &one},
			"stride": {Type: cty.Number, Default: &one, Description: "permutes the items when coprime with count"},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return Spec(), nil
		},
	})
}

// Spec is the node spec of a sequence source.
func Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:    Kind,
		Outputs: []pipeline.PortSpec{{Name: "items", DataType: DataType}},
		Handlers: pipeline.Handlers{
			DescribeOutputs: describe,
			Execute:         execute,
		},
	}
}

func describe(_ context.Context, req *pipeline.DescribeRequest) error {
	count := req.Params.Int("count", 0)
	if count < 0 {
		return fmt.Errorf("count must not be negative, got %d", count)
	}
	if err := req.SetMaxPieces(0, max(count, 1)); err != nil {
		return err
	}
	return req.SetDataType(0, DataType)
}

func execute(_ context.Context, req *pipeline.ExecuteRequest) error {
	out, ok := req.OutputRequest(0)
	if !ok {
		out = pipeline.WholeRequest()
	}
	count := req.Params.Int("count", 0)
	start := req.Params.Float("start", 0)
	step := req.Params.Float("step", 1)
	stride := req.Params.Int("stride", 1)

	from, to := extent.SplitRange(count, out.Piece)
	c := &Chunk{Start: from, Total: count, Values: make([]float64, 0, to-from)}
	for i := from; i < to; i++ {
		c.Values = append(c.Values, start+step*float64((i*stride)%count))
	}
	if len(c.Values) > 0 {
		lo, hi := c.Values[0], c.Values[0]
		for _, v := range c.Values {
			lo, hi = min(lo, v), max(hi, v)
		}
		if err := req.OutputData(0).Set(req.Keys.DataRange, []float64{lo, hi}); err != nil {
			return err
		}
	}
	return req.SetOutput(0, c)
}
