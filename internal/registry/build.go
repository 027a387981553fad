package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/pipeline"
)

// SyncReport lists what Sync changed in the pipeline.
type SyncReport struct {
	Added    []string
	Removed  []string
	Replaced []string
	// Updated nodes kept their identity but received new arguments.
	Updated []string
}

// Changed reports whether the pipeline was touched at all.
func (s SyncReport) Changed() bool {
	return len(s.Added)+len(s.Removed)+len(s.Replaced)+len(s.Updated) > 0
}

// Build instantiates every node of the model in p and connects them.
func (r *Registry) Build(ctx context.Context, model *config.Model, p *pipeline.Pipeline) error {
	_, err := r.Sync(ctx, model, p)
	return err
}

// Sync makes p match the model. Nodes with an unchanged kind and port
// layout are kept, together with their cached outputs; only their
// parameters and capabilities are refreshed, so a node whose arguments did
// not change will not execute again. Nodes missing from the model are
// removed.
//
// Every node spec and every input address is checked before p is touched:
// a model that cannot be applied leaves p as it was.
func (r *Registry) Sync(ctx context.Context, model *config.Model, p *pipeline.Pipeline) (SyncReport, error) {
	var report SyncReport
	logger := ctxlog.FromContext(ctx)

	resolved, err := r.resolve(ctx, model)
	if err != nil {
		return report, err
	}
	specs, err := instantiate(resolved)
	if err != nil {
		return report, err
	}

	for _, n := range p.Nodes() {
		if _, ok := specs[n.Name()]; ok {
			continue
		}
		if err := p.RemoveNode(ctx, n.Name()); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, n.Name())
	}

	for _, rn := range resolved {
		name := rn.node.Name
		spec := specs[name]

		existing, ok := p.Node(name)
		switch {
		case ok && sameLayout(existing, spec):
			existing.SetCapabilities(spec.Capabilities)
			if existing.Params().SetAll(rn.args) {
				report.Updated = append(report.Updated, name)
			}
			continue
		case ok:
			if err := p.RemoveNode(ctx, name); err != nil {
				return report, err
			}
			report.Replaced = append(report.Replaced, name)
		default:
			report.Added = append(report.Added, name)
		}

		n, err := p.AddNode(name, spec)
		if err != nil {
			return report, fmt.Errorf("node '%s' (%s): %w", name, rn.node.Source, err)
		}
		n.Params().SetAll(rn.args)
	}

	for _, rn := range resolved {
		if err := wire(p, rn.node); err != nil {
			return report, err
		}
	}

	logger.Debug("Pipeline synchronised.",
		"added", len(report.Added),
		"removed", len(report.Removed),
		"replaced", len(report.Replaced),
		"updated", len(report.Updated),
	)
	return report, nil
}

// instantiate creates the spec of every resolved node and checks that the
// declared inputs fit those specs, so that Sync cannot fail half way.
func instantiate(resolved []resolvedNode) (map[string]pipeline.Spec, error) {
	specs := make(map[string]pipeline.Spec, len(resolved))
	for _, rn := range resolved {
		name := rn.node.Name
		spec, err := rn.alg.New(rn.args)
		if err != nil {
			return nil, fmt.Errorf("node '%s' (%s): %w", name, rn.node.Source, err)
		}
		if spec.Kind == "" {
			spec.Kind = rn.alg.Kind
		}
		if err := nodeid.ValidateName(name); err != nil {
			return nil, fmt.Errorf("node '%s' (%s): %w", name, rn.node.Source, err)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("node '%s' (%s): %w", name, rn.node.Source, err)
		}
		specs[name] = spec
	}

	var errs []error
	for _, rn := range resolved {
		def := rn.node
		spec := specs[def.Name]
		if len(def.Inputs) > len(spec.Inputs) {
			errs = append(errs, fmt.Errorf("node '%s' (%s): %d inputs given, %s accepts %d",
				def.Name, def.Source, len(def.Inputs), def.Kind, len(spec.Inputs)))
			continue
		}
		for i, raw := range def.Inputs {
			if raw == "" {
				continue
			}
			port, err := nodeid.ParsePort(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("node '%s' input %d: %w", def.Name, i, err))
				continue
			}
			src, ok := specs[port.Node]
			switch {
			case port.Direction != nodeid.DirOutput:
				errs = append(errs, fmt.Errorf("node '%s' input %d: %s is not an output", def.Name, i, port))
			case !ok:
				errs = append(errs, fmt.Errorf("node '%s' input %d: unknown node %q", def.Name, i, port.Node))
			case port.Index >= len(src.Outputs):
				errs = append(errs, fmt.Errorf("node '%s' input %d: node %q has no output %d", def.Name, i, port.Node, port.Index))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return specs, nil
}

func sameLayout(n *pipeline.Node, spec pipeline.Spec) bool {
	if n.Kind() != spec.Kind || n.NumInputs() != len(spec.Inputs) || n.NumOutputs() != len(spec.Outputs) {
		return false
	}
	for i, ps := range spec.Inputs {
		if n.Input(i).Spec() != ps {
			return false
		}
	}
	for i, ps := range spec.Outputs {
		if n.Output(i).Spec() != ps {
			return false
		}
	}
	return true
}

// wire connects or disconnects each input of the node as declared.
func wire(p *pipeline.Pipeline, def *config.Node) error {
	n, ok := p.Node(def.Name)
	if !ok {
		return fmt.Errorf("node '%s' disappeared while wiring", def.Name)
	}
	if len(def.Inputs) > n.NumInputs() {
		return fmt.Errorf("node '%s' (%s): %d inputs given, %s accepts %d",
			def.Name, def.Source, len(def.Inputs), def.Kind, n.NumInputs())
	}
	for i := 0; i < n.NumInputs(); i++ {
		raw := ""
		if i < len(def.Inputs) {
			raw = def.Inputs[i]
		}
		if raw == "" {
			if err := p.Disconnect(def.Name, i); err != nil {
				return err
			}
			continue
		}
		port, err := nodeid.ParsePort(raw)
		if err != nil {
			return fmt.Errorf("node '%s' input %d: %w", def.Name, i, err)
		}
		if err := p.Connect(port.Node, port.Index, def.Name, i); err != nil {
			return fmt.Errorf("node '%s' input %d: %w", def.Name, i, err)
		}
	}
	return nil
}

// Targets converts the model's update blocks into pipeline targets.
func Targets(model *config.Model) ([]pipeline.Target, error) {
	targets := make([]pipeline.Target, 0, len(model.Updates))
	for _, u := range model.Updates {
		req := pipeline.WholeRequest()
		switch {
		case u.Extent != nil:
			e, err := extent.FromSlice(u.Extent)
			if err != nil {
				return nil, fmt.Errorf("update '%s': %w", u.Node, err)
			}
			req = pipeline.ExtentRequest(e)
		case u.Piece != nil:
			req = pipeline.PieceRequest(u.Piece.Index, u.Piece.Count, u.Piece.Ghost)
		}
		if u.Time != nil {
			req = req.AtTime(*u.Time)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("update '%s': %w", u.Node, err)
		}
		targets = append(targets, pipeline.Target{Node: u.Node, Port: u.Port, Request: req})
	}
	return targets, nil
}
