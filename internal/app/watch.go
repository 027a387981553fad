package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/watcher"
)

// WatchOptions configure Watch.
type WatchOptions struct {
	Source
	// Debounce is how long the files must stay unchanged before a reload.
	Debounce time.Duration
	// OnCycle, when set, receives the outcome of every reload.
	OnCycle func(Cycle)
}

// Cycle is the outcome of one reload-and-update round of Watch.
type Cycle struct {
	Report registry.SyncReport
	Result *pipeline.Result
	Err    error
}

// Watch keeps one pipeline alive and, every time the definition files
// change, synchronises it with them and updates the targets again. Nodes
// whose definition did not change keep their cached outputs. A definition
// that fails to load leaves the previous pipeline in place. Watch returns
// when ctx is done.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if _, err := a.startHealthCheckServer(ctx); err != nil {
		return err
	}

	cfg := watcher.DefaultConfig(opts.Paths...)
	if opts.Debounce > 0 {
		cfg.DebounceDur = opts.Debounce
	}
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return fmt.Errorf("failed to watch definitions: %w", err)
	}
	defer w.Stop()

	p := a.newPipeline(pipelineName(opts.Paths))
	defer func() {
		if err := p.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Failed to release pipeline outputs.", "error", err)
		}
	}()

	run := func() {
		c := a.cycle(ctx, opts.Source, p)
		if opts.OnCycle != nil {
			opts.OnCycle(c)
		}
	}

	a.logger.Info("👀 Watching pipeline definitions.", "paths", opts.Paths)
	run()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Watch stopped.")
			return nil
		case <-changes:
			a.logger.Info("Definitions changed, reloading.")
			run()
		case err := <-w.Errors():
			a.logger.Warn("File watch error.", "error", err)
		}
	}
}

func (a *App) cycle(ctx context.Context, src Source, p *pipeline.Pipeline) Cycle {
	model, err := a.load(ctx, src)
	if err != nil {
		a.logger.Error("Reload failed, keeping the previous pipeline.", "error", err)
		a.recordOutcome(err)
		return Cycle{Err: err}
	}

	report, err := a.registry.Sync(ctx, model, p)
	if err != nil {
		a.logger.Error("Definition changes rejected, keeping the previous pipeline.", "error", err)
		a.recordOutcome(err)
		return Cycle{Err: err}
	}
	if report.Changed() {
		a.logger.Info("Pipeline synchronised.",
			"added", report.Added, "removed", report.Removed, "replaced", report.Replaced, "updated", report.Updated)
	}

	ts, err := targets(ctx, model, p)
	if err != nil {
		a.recordOutcome(err)
		return Cycle{Report: report, Err: err}
	}
	if len(ts) == 0 {
		a.logger.Warn("No targets found, execution not required.")
		return Cycle{Report: report, Result: &pipeline.Result{}}
	}

	res, err := a.update(ctx, p, ts)
	if err != nil {
		a.logger.Error("Update failed.", "error", err)
	} else {
		a.logger.Info("🏁 Update finished.",
			"executed", len(res.Executed), "reused", len(res.Reused), "run_id", res.RunID)
	}
	return Cycle{Report: report, Result: res, Err: err}
}
