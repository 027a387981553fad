package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/metadata"
	"github.com/vk/streamgrid/internal/nodestore"
	"github.com/vk/streamgrid/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// passExecute runs source to sink, executing only the nodes whose inputs,
// parameters or requests changed. A failed node's downstream is skipped
// unless it tolerates upstream failure.
func (r *run) passExecute(ctx context.Context) error {
	ctx, span := r.p.tracer.Start(ctx, tracing.SpanPassPrefix+string(PassExecute))
	defer span.End()
	r.emit(ctx, Event{Kind: EventPassStarted, Pass: PassExecute})
	logger := ctxlog.FromContext(ctx)

	broken := make(map[*Node]bool)
	var failures []NodeFailure

	for _, n := range r.order {
		r.visit(ctx, PassExecute, n)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("update canceled before node %q: %w", n.name, err)
		}
		if r.p.aborter != nil && r.p.aborter.Aborted() {
			return fmt.Errorf("update stopped before node %q: %w", n.name, ErrAborted)
		}

		upstreamFailed := false
		for _, up := range n.upstream() {
			if broken[up] {
				upstreamFailed = true
				break
			}
		}
		if upstreamFailed && !n.spec.Capabilities.TolerateUpstreamFailure {
			broken[n] = true
			if err := r.skip(ctx, n); err != nil {
				return err
			}
			r.result.Skipped = append(r.result.Skipped, n.name)
			r.emit(ctx, Event{Kind: EventNodeSkipped, Pass: PassExecute, Node: n.name, NodeKind: n.spec.Kind})
			logger.Debug("Skipped node after upstream failure.", "node", n.name)
			continue
		}

		if !r.needsExecute(ctx, n) {
			r.result.Reused = append(r.result.Reused, n.name)
			r.emit(ctx, Event{Kind: EventNodeReused, Pass: PassExecute, Node: n.name, NodeKind: n.spec.Kind, Request: r.primaryRequest(n)})
			continue
		}

		start := time.Now()
		if err := r.execute(ctx, n, broken); err != nil {
			broken[n] = true
			failures = append(failures, NodeFailure{Node: n.name, Err: err})
			r.result.Failed = append(r.result.Failed, n.name)
			r.emit(ctx, Event{Kind: EventNodeFailed, Pass: PassExecute, Node: n.name, NodeKind: n.spec.Kind, Request: r.primaryRequest(n), Duration: time.Since(start), Err: err})
			logger.Warn("Node execution failed.", "node", n.name, "kind", n.spec.Kind, "error", err)
			continue
		}
		r.result.Executed = append(r.result.Executed, n.name)
		r.emit(ctx, Event{Kind: EventNodeExecuted, Pass: PassExecute, Node: n.name, NodeKind: n.spec.Kind, Request: r.primaryRequest(n), Duration: time.Since(start)})
		logger.Debug("Executed node.", "node", n.name, "kind", n.spec.Kind, "duration", time.Since(start))
	}

	if len(failures) > 0 {
		return &ComputeFailureError{Failures: failures}
	}
	return nil
}

// needsExecute is true when the node never ran successfully, its parameters
// or connections changed, the tracked information of an input changed, an
// input was produced anew, its negotiated
// requests differ from the last execution, or a requested output is no
// longer stored.
func (r *run) needsExecute(ctx context.Context, n *Node) bool {
	e := n.exec
	if e.lastExecuted.IsZero() || e.status != nodestore.StatusCompleted {
		return true
	}
	if n.params.MTime().After(e.lastExecuted) || n.structure.MTime().After(e.lastExecuted) {
		return true
	}
	if n.inputInfoMTime().After(e.lastExecuted) {
		return true
	}
	for i, in := range n.inputs {
		seen := e.inputSeen[i]
		if in.conn == nil {
			if !seen.IsZero() {
				return true
			}
			continue
		}
		src := in.conn.Source
		if src.node.exec.outputStamps[src.index] != seen {
			return true
		}
	}
	if e.requestsChanged() {
		return true
	}
	for i, out := range n.outputs {
		if !e.outputRequests[i].set {
			continue
		}
		h, err := r.p.store.GetOutput(ctx, *out.Address())
		if err != nil || h == nil {
			return true
		}
	}
	return false
}

func (r *run) execute(ctx context.Context, n *Node, broken map[*Node]bool) (err error) {
	p := r.p
	e := n.exec
	ctx, span := p.tracer.Start(ctx, tracing.SpanExecute)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrNodeName, n.name), attribute.String(tracing.AttrNodeKind, n.spec.Kind))
	if pr := r.primaryRequest(n); pr != nil {
		span.SetAttributes(attribute.String(tracing.AttrRequest, pr.String()))
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := p.store.SetStatus(ctx, *n.address(), nodestore.StatusRunning); err != nil {
		return fmt.Errorf("recording status: %w", err)
	}

	req := &ExecuteRequest{
		Node:     n,
		Params:   n.params,
		Keys:     p.keys,
		inputs:   make([]Input, len(n.inputs)),
		data:     make([]*metadata.Record, len(n.outputs)),
		produced: make([]any, len(n.outputs)),
		set:      make([]bool, len(n.outputs)),
		workers:  p.workers,
		progress: func(f float64) {
			r.emit(ctx, Event{Kind: EventProgress, Pass: PassExecute, Node: n.name, NodeKind: n.spec.Kind, Progress: f})
		},
		aborted: func() bool {
			return ctx.Err() != nil || (p.aborter != nil && p.aborter.Aborted())
		},
	}
	for i, in := range n.inputs {
		if in.conn == nil {
			continue
		}
		src := in.conn.Source
		input := Input{
			Connected:      true,
			Info:           src.Info(),
			DataRecord:     src.Data(),
			UpstreamFailed: broken[src.node],
		}
		if o := e.inputRequests[i]; o.set {
			input.Request = o.req
		}
		if !input.UpstreamFailed {
			h, gerr := p.store.GetOutput(ctx, *src.Address())
			if gerr != nil {
				return fmt.Errorf("reading input %d: %w", i, gerr)
			}
			if h != nil && h.Retain() {
				defer h.Release()
				input.Handle = h
				input.Data = h.Data()
			}
		}
		req.inputs[i] = input
	}
	for i := range n.outputs {
		req.data[i] = p.newRecord()
	}

	if h := n.spec.Handlers.Execute; h != nil {
		err = h(ctx, req)
	}
	e.executions++
	if err == nil && req.Aborted() {
		err = ErrAborted
	}
	if err != nil {
		return r.fail(ctx, n, req, err)
	}
	return r.commit(ctx, n, req)
}

// fail discards everything the failed execution produced along with the
// node's previous outputs, which no longer match its parameters.
func (r *run) fail(ctx context.Context, n *Node, req *ExecuteRequest, cause error) error {
	p := r.p
	for i, set := range req.set {
		if set {
			p.releasePayload(ctx, n, i, req.produced[i])
		}
	}
	if err := p.releaseLocked(ctx, n); err != nil {
		return err
	}
	n.exec.status = nodestore.StatusFailed
	_ = p.store.SetStatus(ctx, *n.address(), nodestore.StatusFailed)
	_ = p.store.SetError(ctx, *n.address(), cause)
	return cause
}

func (r *run) commit(ctx context.Context, n *Node, req *ExecuteRequest) error {
	p := r.p
	e := n.exec
	keys := p.keys
	s := p.clock.Next()

	for i, out := range n.outputs {
		o := e.outputRequests[i]
		if !req.set[i] && !o.set {
			if err := p.store.DeleteOutput(ctx, *out.Address()); err != nil {
				return err
			}
			e.outputStamps[i] = 0
			continue
		}
		payload := req.produced[i]
		data := req.data[i]
		if o.set && o.req.Structured && !data.Has(keys.DataExtent) {
			_ = data.Set(keys.DataExtent, o.req.Extent)
		}
		if o.set && o.req.HasTime && !data.Has(keys.DataTime) {
			_ = data.Set(keys.DataTime, o.req.Time)
		}
		if payload != nil {
			_ = data.Set(keys.DataObject, payload)
		}
		port := i
		h := nodestore.NewHandle(out.Address().String(), payload, func(d any) {
			r.p.releasePayload(context.WithoutCancel(ctx), n, port, d)
		})
		if err := p.store.SetOutput(ctx, *out.Address(), h); err != nil {
			h.Release()
			return fmt.Errorf("storing %s: %w", out.Address(), err)
		}
		out.data = data
		e.outputStamps[i] = s
	}

	for i, in := range n.inputs {
		if in.conn == nil {
			e.inputSeen[i] = 0
			continue
		}
		src := in.conn.Source
		e.inputSeen[i] = src.node.exec.outputStamps[src.index]
	}
	copy(e.executedInputs, e.inputRequests)
	copy(e.executedOutputs, e.outputRequests)
	e.lastExecuted = s
	e.status = nodestore.StatusCompleted
	if err := p.store.SetStatus(ctx, *n.address(), nodestore.StatusCompleted); err != nil {
		return err
	}
	return p.store.SetError(ctx, *n.address(), nil)
}

// skip drops the outputs of a node that cannot run because an upstream node
// failed; they were computed from inputs that are no longer valid.
func (r *run) skip(ctx context.Context, n *Node) error {
	if err := r.p.releaseLocked(ctx, n); err != nil {
		return err
	}
	n.exec.status = nodestore.StatusSkipped
	return r.p.store.SetStatus(ctx, *n.address(), nodestore.StatusSkipped)
}

func (p *Pipeline) releasePayload(ctx context.Context, n *Node, port int, data any) {
	if data == nil {
		return
	}
	if h := n.spec.Handlers.ReleaseData; h != nil {
		h(ctx, port, data)
	}
}

func (r *run) primaryRequest(n *Node) *Request {
	for i := range n.outputs {
		if req, ok := n.exec.OutputRequest(i); ok {
			return &req
		}
	}
	return nil
}
