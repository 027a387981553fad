package journal

import (
	"context"
	"errors"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
)

// Node actions recorded by the observer.
const (
	ActionExecuted = "executed"
	ActionReused   = "reused"
	ActionSkipped  = "skipped"
	ActionFailed   = "failed"
)

// Observer records pipeline events into a Journal. Write failures are
// logged and never interrupt the update.
type Observer struct {
	j        *Journal
	pipeline string
}

// NewObserver records runs under the given pipeline name.
func NewObserver(j *Journal, pipelineName string) *Observer {
	return &Observer{j: j, pipeline: pipelineName}
}

// OnEvent implements pipeline.Observer.
func (o *Observer) OnEvent(ctx context.Context, ev pipeline.Event) {
	var err error
	switch ev.Kind {
	case pipeline.EventUpdateStarted:
		err = o.j.StartRun(ctx, Run{ID: ev.RunID, Pipeline: o.pipeline, Targets: ev.Targets, StartedAt: ev.Time})
	case pipeline.EventUpdateFinished:
		err = o.j.FinishRun(ctx, finishedRun(ev))
	case pipeline.EventNodeExecuted:
		err = o.record(ctx, ev, ActionExecuted)
	case pipeline.EventNodeReused:
		err = o.record(ctx, ev, ActionReused)
	case pipeline.EventNodeSkipped:
		err = o.record(ctx, ev, ActionSkipped)
	case pipeline.EventNodeFailed:
		err = o.record(ctx, ev, ActionFailed)
	default:
		return
	}
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to write journal entry.", "event", string(ev.Kind), "node", ev.Node, "error", err)
	}
}

func (o *Observer) record(ctx context.Context, ev pipeline.Event, action string) error {
	e := NodeEntry{
		RunID:    ev.RunID,
		Node:     ev.Node,
		Kind:     ev.NodeKind,
		Action:   action,
		Duration: ev.Duration,
		At:       ev.Time,
	}
	if ev.Request != nil {
		e.Request = ev.Request.String()
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	return o.j.RecordNode(ctx, e)
}

func finishedRun(ev pipeline.Event) Run {
	r := Run{ID: ev.RunID, FinishedAt: ev.Time, Outcome: OutcomeSucceeded}
	if res := ev.Result; res != nil {
		r.Executed = len(res.Executed)
		r.Reused = len(res.Reused)
		r.Failed = len(res.Failed)
		r.Skipped = len(res.Skipped)
		if res.ShortCircuited {
			r.Outcome = OutcomeCached
		}
	}
	if ev.Err != nil {
		r.Outcome = OutcomeFailed
		r.Error = ev.Err.Error()
		var cfe *pipeline.ComputeFailureError
		if errors.As(ev.Err, &cfe) && r.Failed == 0 {
			r.Failed = len(cfe.Failures)
		}
	}
	return r
}
