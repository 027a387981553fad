package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type planDoc struct {
	Order   []string              `yaml:"order"`
	Outputs map[string]requestDoc `yaml:"outputs"`
	Inputs  map[string]requestDoc `yaml:"inputs,omitempty"`
}

type requestDoc struct {
	Kind   string    `yaml:"kind"`
	Extent []int     `yaml:"extent,omitempty"`
	Piece  *pieceDoc `yaml:"piece,omitempty"`
	Time   *float64  `yaml:"time,omitempty"`
}

type pieceDoc struct {
	Index int `yaml:"index"`
	Count int `yaml:"count"`
	Ghost int `yaml:"ghost,omitempty"`
}

func newRequestDoc(r pipeline.Request) requestDoc {
	d := requestDoc{Kind: r.Kind.String()}
	if r.Structured {
		d.Extent = r.Extent.Slice()
	}
	if r.Kind == pipeline.KindPiece {
		d.Piece = &pieceDoc{Index: r.Piece.Index, Count: r.Piece.Count, Ghost: r.Piece.Ghost}
	}
	if r.HasTime {
		t := r.Time
		d.Time = &t
	}
	return d
}

func newPlanDoc(plan *pipeline.Plan) planDoc {
	doc := planDoc{
		Order:   plan.Order,
		Outputs: make(map[string]requestDoc, len(plan.Outputs)),
	}
	for addr, r := range plan.Outputs {
		doc.Outputs[addr] = newRequestDoc(r)
	}
	if len(plan.Inputs) > 0 {
		doc.Inputs = make(map[string]requestDoc, len(plan.Inputs))
		for addr, r := range plan.Inputs {
			doc.Inputs[addr] = newRequestDoc(r)
		}
	}
	return doc
}

// Plan negotiates the requests of every target without executing anything
// and writes them to w as YAML.
func (a *App) Plan(ctx context.Context, src Source, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	model, err := a.load(ctx, src)
	if err != nil {
		return err
	}
	p := a.newPipeline(pipelineName(src.Paths))
	defer p.Close(ctx)

	if err := a.registry.Build(ctx, model, p); err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	ts, err := targets(ctx, model, p)
	if err != nil {
		return err
	}
	plan, err := p.Plan(ctx, ts...)
	if err != nil {
		return fmt.Errorf("negotiation failed: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newPlanDoc(plan)); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return enc.Close()
}
