package progress

import (
	"context"
	"log/slog"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
)

// LogObserver writes pipeline events to the logger carried in the context.
type LogObserver struct {
	// Visits also logs every node visit of every pass at debug level.
	Visits bool
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(visits bool) *LogObserver {
	return &LogObserver{Visits: visits}
}

// OnEvent implements pipeline.Observer.
func (o *LogObserver) OnEvent(ctx context.Context, ev pipeline.Event) {
	logger := ctxlog.FromContext(ctx)
	switch ev.Kind {
	case pipeline.EventUpdateStarted:
		logger.Debug("Update started.", "targets", ev.Targets)
	case pipeline.EventPassStarted:
		logger.Debug("Pass started.", "pass", string(ev.Pass))
	case pipeline.EventNodeVisited:
		if o.Visits {
			logger.Debug("Visited node.", "pass", string(ev.Pass), "node", ev.Node)
		}
	case pipeline.EventNodeExecuted:
		logger.Info("Node executed.", nodeAttrs(ev)...)
	case pipeline.EventNodeReused:
		logger.Debug("Node reused.", "node", ev.Node)
	case pipeline.EventNodeSkipped:
		logger.Warn("Node skipped after upstream failure.", "node", ev.Node, "kind", ev.NodeKind)
	case pipeline.EventNodeFailed:
		logger.Error("Node failed.", append(nodeAttrs(ev), "error", ev.Err)...)
	case pipeline.EventProgress:
		logger.Debug("Node progress.", "node", ev.Node, "progress", ev.Progress)
	case pipeline.EventUpdateFinished:
		level := slog.LevelInfo
		if ev.Err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Update finished.", "duration", ev.Duration, "error", ev.Err)
	}
}

func nodeAttrs(ev pipeline.Event) []any {
	attrs := []any{"node", ev.Node, "kind", ev.NodeKind, "duration", ev.Duration}
	if ev.Request != nil {
		attrs = append(attrs, "request", ev.Request.String())
	}
	return attrs
}
