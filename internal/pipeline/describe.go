package pipeline

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/tracing"
)

// passDescribe refreshes output information source to sink for every node
// whose pipeline changed since it was last described.
func (r *run) passDescribe(ctx context.Context) error {
	ctx, span := r.p.tracer.Start(ctx, tracing.SpanPassPrefix+string(PassDescribe))
	defer span.End()
	r.emit(ctx, Event{Kind: EventPassStarted, Pass: PassDescribe})
	logger := ctxlog.FromContext(ctx)

	for _, n := range r.order {
		r.visit(ctx, PassDescribe, n)
		e := n.exec
		if !e.describedAt.IsZero() && !e.pipelineMTime.After(e.describedAt) {
			continue
		}
		if err := r.describe(ctx, n); err != nil {
			span.RecordError(err)
			return fmt.Errorf("describing node %q: %w", n.name, err)
		}
		// Describing rewrites tracked keys, so the node has seen everything
		// stamped up to now, its own inputs' information included.
		e.describedAt = r.p.clock.Current()
		logger.Debug("Described node outputs.", "node", n.name)
	}
	return nil
}

// describe applies the default policy, copying the first connected input's
// information to every output, then runs the node's handler.
func (r *run) describe(ctx context.Context, n *Node) error {
	for _, out := range n.outputs {
		out.Info().Clear()
	}
	for _, in := range n.inputs {
		if in.conn == nil {
			continue
		}
		src := in.conn.Source.Info()
		for _, out := range n.outputs {
			out.Info().CopyFrom(src)
		}
		break
	}
	if h := n.spec.Handlers.DescribeOutputs; h != nil {
		return h(ctx, &DescribeRequest{Node: n, Params: n.params, Keys: r.p.keys})
	}
	return nil
}
