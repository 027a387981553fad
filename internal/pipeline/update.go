package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/dag"
	"github.com/vk/streamgrid/internal/nodestore"
	"github.com/vk/streamgrid/internal/stamp"
	"github.com/vk/streamgrid/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// run is the state of one Update, Plan or UpdateInformation call.
type run struct {
	p       *Pipeline
	id      uuid.UUID
	targets []Target
	nodes   map[string]*Node
	order   []*Node
	result  *Result
}

// Update brings the target outputs up to date and returns what ran.
//
// Negotiation errors abort before any node executes. Execute failures skip
// the failed node's downstream and surface as a *ComputeFailureError; the
// returned Result is still valid in that case.
func (p *Pipeline) Update(ctx context.Context, targets ...Target) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.newRun(targets)
	ctx, span := p.tracer.Start(ctx, tracing.SpanUpdate)
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrRunID, r.id.String()),
		attribute.StringSlice(tracing.AttrTargets, r.targetNames()),
	)

	ctx, logger := ctxlog.With(ctx, "run_id", r.id.String())
	start := time.Now()
	r.emit(ctx, Event{Kind: EventUpdateStarted, Targets: r.targetNames()})

	err := r.update(ctx)

	r.emit(ctx, Event{Kind: EventUpdateFinished, Targets: r.targetNames(), Duration: time.Since(start), Err: err, Result: r.result})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var cfe *ComputeFailureError
		if !errors.As(err, &cfe) {
			logger.Warn("Pipeline update failed.", "error", err, "duration", time.Since(start))
			return r.result, err
		}
	}
	logger.Info("Pipeline update finished.",
		"executed", len(r.result.Executed),
		"reused", len(r.result.Reused),
		"failed", len(r.result.Failed),
		"skipped", len(r.result.Skipped),
		"short_circuited", r.result.ShortCircuited,
		"duration", time.Since(start),
	)
	return r.result, err
}

// Plan runs the modified, describe and negotiate passes and reports the
// negotiated requests without executing anything.
func (p *Pipeline) Plan(ctx context.Context, targets ...Target) (*Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.newRun(targets)
	if err := r.prepare(ctx); err != nil {
		return nil, err
	}
	r.passModified(ctx)
	if err := r.passDescribe(ctx); err != nil {
		return nil, err
	}
	if err := r.passNegotiate(ctx); err != nil {
		return nil, err
	}

	plan := &Plan{
		Order:   r.result.Order,
		Outputs: make(map[string]Request),
		Inputs:  make(map[string]Request),
	}
	for _, n := range r.order {
		for i, out := range n.outputs {
			if req, ok := n.exec.OutputRequest(i); ok {
				plan.Outputs[out.Address().String()] = req
			}
		}
		for i, in := range n.inputs {
			if req, ok := n.exec.InputRequest(i); ok {
				plan.Inputs[in.Address().String()] = req
			}
		}
	}
	return plan, nil
}

// UpdateInformation runs the describe pass for everything upstream of node
// so its output information is current.
func (p *Pipeline) UpdateInformation(ctx context.Context, node string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.newRun([]Target{{Node: node}})
	if err := r.prepare(ctx); err != nil {
		return err
	}
	r.passModified(ctx)
	return r.passDescribe(ctx)
}

func (p *Pipeline) newRun(targets []Target) *run {
	ts := make([]Target, len(targets))
	for i, t := range targets {
		t.Request = t.Request.orWhole()
		ts[i] = t
	}
	id := uuid.New()
	return &run{
		p:       p,
		id:      id,
		targets: ts,
		result:  &Result{RunID: id, Outputs: make(map[string]*nodestore.Handle)},
	}
}

func (r *run) update(ctx context.Context) error {
	if err := r.prepare(ctx); err != nil {
		return err
	}
	r.passModified(ctx)
	if r.unchanged(ctx) {
		r.result.ShortCircuited = true
		for _, n := range r.order {
			r.result.Reused = append(r.result.Reused, n.name)
		}
		r.collectOutputs(ctx)
		ctxlog.FromContext(ctx).Debug("Pipeline unchanged, returning cached outputs.")
		return nil
	}
	if err := r.passDescribe(ctx); err != nil {
		return err
	}
	if err := r.passNegotiate(ctx); err != nil {
		return err
	}
	err := r.passExecute(ctx)
	r.collectOutputs(ctx)
	for _, t := range r.targets {
		n := r.nodes[t.Node]
		if n.exec.status == nodestore.StatusCompleted {
			n.exec.targetRequests[t.Port] = t.Request
		} else {
			delete(n.exec.targetRequests, t.Port)
		}
	}
	return err
}

// prepare validates the targets, walks the reachable graph and orders it.
func (r *run) prepare(ctx context.Context) error {
	if len(r.targets) == 0 {
		return invalidRequest("update needs at least one target")
	}
	var queue []*Node
	for _, t := range r.targets {
		n, ok := r.p.nodes[t.Node]
		if !ok {
			return invalidRequest("unknown target node %q", t.Node)
		}
		if n.Output(t.Port) == nil {
			return invalidRequest("target node %q has no output %d", t.Node, t.Port)
		}
		if err := t.Request.Validate(); err != nil {
			return fmt.Errorf("target %s: %w", outputKey(t.Node, t.Port), err)
		}
		queue = append(queue, n)
	}

	// Breadth-first walk over input connections; the seen set keeps the
	// walk finite when the graph has a cycle.
	r.nodes = make(map[string]*Node)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, seen := r.nodes[n.name]; seen {
			continue
		}
		r.nodes[n.name] = n
		queue = append(queue, n.upstream()...)
	}

	g := dag.New()
	for name := range r.nodes {
		g.AddNode(name)
	}
	for _, n := range r.nodes {
		for _, up := range n.upstream() {
			if err := g.AddEdge(up.name, n.name); err != nil {
				return cyclic(err)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return cyclic(err)
	}
	names, err := g.TopologicalOrder()
	if err != nil {
		return cyclic(err)
	}
	r.order = make([]*Node, len(names))
	for i, name := range names {
		r.order[i] = r.nodes[name]
	}
	r.result.Order = names
	ctxlog.FromContext(ctx).Debug("Resolved pipeline graph.", "nodes", len(names), "order", names)
	return nil
}

func cyclic(err error) error {
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		return &CyclicPipelineError{Path: ce.Path, Err: err}
	}
	return fmt.Errorf("building pipeline graph: %w", err)
}

// passModified computes every node's pipeline modification time: the newest
// of its parameters, its connections, the tracked information of its inputs
// and everything upstream.
func (r *run) passModified(ctx context.Context) {
	ctx, span := r.p.tracer.Start(ctx, tracing.SpanPassPrefix+string(PassModified))
	defer span.End()
	r.emit(ctx, Event{Kind: EventPassStarted, Pass: PassModified})

	for _, n := range r.order {
		r.visit(ctx, PassModified, n)
		m := stamp.Max(n.params.MTime(), n.structure.MTime())
		for _, up := range n.upstream() {
			m = stamp.Max(m, up.exec.pipelineMTime)
		}
		n.exec.pipelineMTime = stamp.Max(m, n.inputInfoMTime())
	}
}

// unchanged reports whether every target can be served from cache: nothing
// upstream changed since it executed, it is asked the same as last time and
// its output is still stored.
func (r *run) unchanged(ctx context.Context) bool {
	for _, t := range r.targets {
		n := r.nodes[t.Node]
		e := n.exec
		if e.status != nodestore.StatusCompleted || e.lastExecuted.IsZero() {
			return false
		}
		if e.pipelineMTime.After(e.lastExecuted) {
			return false
		}
		prev, ok := e.targetRequests[t.Port]
		if !ok || prev != t.Request {
			return false
		}
		h, err := r.p.store.GetOutput(ctx, *n.outputs[t.Port].Address())
		if err != nil || h == nil {
			return false
		}
	}
	return true
}

func (r *run) collectOutputs(ctx context.Context) {
	for _, t := range r.targets {
		key := outputKey(t.Node, t.Port)
		h, err := r.p.store.GetOutput(ctx, *r.nodes[t.Node].outputs[t.Port].Address())
		if err == nil && h != nil {
			r.result.Outputs[key] = h
		}
	}
}

func (r *run) targetNames() []string {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = outputKey(t.Node, t.Port) + " " + t.Request.String()
	}
	return names
}

func (r *run) emit(ctx context.Context, ev Event) {
	if len(r.p.observers) == 0 {
		return
	}
	ev.RunID = r.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, o := range r.p.observers {
		o.OnEvent(ctx, ev)
	}
}

func (r *run) visit(ctx context.Context, pass Pass, n *Node) {
	r.emit(ctx, Event{Kind: EventNodeVisited, Pass: pass, Node: n.name, NodeKind: n.spec.Kind})
}
