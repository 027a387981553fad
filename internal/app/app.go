package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/inmemorystore"
	"github.com/vk/streamgrid/internal/journal"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/progress"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/tracing"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   Config
	registry *registry.Registry
	tracing  *tracing.Provider
	journal  *journal.Journal
	socket   *progress.SocketIOObserver
	abort    progress.Flag

	healthMu   sync.Mutex
	httpServer *http.Server
	lastErr    error
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry. When no
// modules are given the core modules are registered.
func NewApp(ctx context.Context, outW io.Writer, cfg Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.Log.Level, cfg.Log.Format, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Kinds())

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A module declaring inconsistent arguments is a programmer error.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
	}

	provider, err := tracing.NewProvider(ctx, cfg.Tracing, outW)
	if err != nil {
		return nil, fmt.Errorf("failed to configure tracing: %w", err)
	}
	a.tracing = provider

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		a.journal = j
		logger.Debug("Journal opened.", "path", cfg.Journal.Path)
	}

	if cfg.Progress.SocketIOURL != "" {
		obs, err := progress.Dial(ctx, progress.SocketIOOptions{
			URL:                cfg.Progress.SocketIOURL,
			Namespace:          cfg.Progress.Namespace,
			InsecureSkipVerify: cfg.Progress.InsecureSkipVerify,
			ConnectTimeout:     cfg.Progress.ConnectTimeout,
		})
		if err != nil {
			// The progress stream is auxiliary; runs go ahead without it.
			logger.Warn("Progress stream unavailable.", "url", cfg.Progress.SocketIOURL, "error", err)
		} else {
			a.socket = obs
		}
	}

	return a, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Journal returns the run journal, or nil when disabled.
func (a *App) Journal() *journal.Journal {
	return a.journal
}

// Abort asks a running update to stop at the next node boundary.
func (a *App) Abort() {
	a.abort.Abort()
}

// Close stops the health check server and releases the journal, the progress
// stream and the tracer provider.
func (a *App) Close(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	var errs []error
	if err := a.closeHealthCheckServer(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.socket != nil {
		a.socket.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing journal: %w", err))
		}
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flushing traces: %w", err))
		}
	}
	return errors.Join(errs...)
}

// newPipeline creates an empty pipeline observed by the logger, the journal
// and the progress stream.
func (a *App) newPipeline(name string) *pipeline.Pipeline {
	observers := []pipeline.Observer{progress.NewLogObserver(a.config.Log.Visits)}
	if a.journal != nil {
		observers = append(observers, journal.NewObserver(a.journal, name))
	}
	if a.socket != nil {
		observers = append(observers, a.socket)
	}

	storeOpts := []inmemorystore.Option{inmemorystore.WithOutputTTL(a.config.Cache.OutputTTL)}
	if a.config.Cache.CleanupInterval > 0 {
		storeOpts = append(storeOpts, inmemorystore.WithCleanupInterval(a.config.Cache.CleanupInterval))
	}

	return pipeline.New(
		pipeline.WithStore(inmemorystore.New(storeOpts...)),
		pipeline.WithTracer(a.tracing.Tracer()),
		pipeline.WithObserver(observers...),
		pipeline.WithAborter(&a.abort),
		pipeline.WithWorkers(a.config.Workers),
	)
}

// pipelineName derives a journal name from the definition paths.
func pipelineName(paths []string) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(filepath.Clean(p))
		names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return strings.Join(names, ",")
}
