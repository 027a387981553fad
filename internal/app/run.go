package app

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
)

// Run loads the definition, builds a fresh pipeline and updates every target
// once. Ctx cancellation aborts the update at the next node boundary.
func (a *App) Run(ctx context.Context, src Source) (*pipeline.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if _, err := a.startHealthCheckServer(ctx); err != nil {
		return nil, err
	}

	model, err := a.load(ctx, src)
	if err != nil {
		return nil, err
	}

	p := a.newPipeline(pipelineName(src.Paths))
	defer func() {
		if err := p.Close(ctx); err != nil {
			a.logger.Warn("Failed to release pipeline outputs.", "error", err)
		}
	}()

	if err := a.registry.Build(ctx, model, p); err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	a.logger.Debug("Pipeline built.", "node_count", len(p.Nodes()))

	ts, err := targets(ctx, model, p)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		a.logger.Warn("No targets found, execution not required.")
		return &pipeline.Result{}, nil
	}

	a.logger.Info("🚀 Starting update...", "targets", len(ts))
	res, err := a.update(ctx, p, ts)
	if err != nil {
		return res, fmt.Errorf("update failed: %w", err)
	}
	a.logger.Info("🏁 Update finished.",
		"executed", len(res.Executed), "reused", len(res.Reused), "run_id", res.RunID)
	return res, nil
}

// update runs one Update with the abort flag tied to ctx.
func (a *App) update(ctx context.Context, p *pipeline.Pipeline, ts []pipeline.Target) (*pipeline.Result, error) {
	a.abort.Reset()
	stop := a.abort.AbortOnDone(ctx)
	defer stop()

	res, err := p.Update(ctx, ts...)
	a.recordOutcome(err)
	return res, err
}
