package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/hcl"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
)

// Source names the pipeline definition files and the variable overrides
// applied while loading them. Overrides take precedence over
// STREAMGRID_VAR_<name> environment entries.
type Source struct {
	// Paths are .hcl files or directories searched recursively.
	Paths     []string
	Variables map[string]string
}

// load reads the definition files and checks every node against the
// registry.
func (a *App) load(ctx context.Context, src Source) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline definition...", "paths", src.Paths)

	var loader config.Loader = hcl.NewLoader(
		hcl.WithEnvironment(os.Environ()),
		hcl.WithVariables(src.Variables),
	)
	model, err := loader.Load(ctx, src.Paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline definition: %w", err)
	}
	if err := a.registry.Validate(ctx, model); err != nil {
		return nil, err
	}
	logger.Info("Pipeline definition loaded.", "nodes", len(model.Nodes), "updates", len(model.Updates))
	return model, nil
}

// targets returns the update blocks of the model, or every sink output when
// the model declares none.
func targets(ctx context.Context, model *config.Model, p *pipeline.Pipeline) ([]pipeline.Target, error) {
	ts, err := registry.Targets(model)
	if err != nil {
		return nil, err
	}
	if len(ts) > 0 {
		return ts, nil
	}

	for _, n := range p.Nodes() {
		if n.NumOutputs() == 0 || hasConsumers(n) {
			continue
		}
		for i := 0; i < n.NumOutputs(); i++ {
			ts = append(ts, pipeline.Target{Node: n.Name(), Port: i, Request: pipeline.WholeRequest()})
		}
	}
	ctxlog.FromContext(ctx).Debug("No update blocks declared, updating every sink.", "targets", len(ts))
	return ts, nil
}

func hasConsumers(n *pipeline.Node) bool {
	for i := 0; i < n.NumOutputs(); i++ {
		if len(n.Output(i).Consumers()) > 0 {
			return true
		}
	}
	return false
}
