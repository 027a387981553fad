package pipeline

import (
	"context"
	"fmt"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/tracing"
)

// ask is one request arriving at an output: from a consumer's input or,
// when consumer is empty, from an update target.
type ask struct {
	consumer string
	input    int
	req      Request
}

// passNegotiate walks sink to source. Each node first settles the request
// for each of its outputs from everything its consumers asked, then decides
// what to ask of its inputs.
func (r *run) passNegotiate(ctx context.Context) error {
	ctx, span := r.p.tracer.Start(ctx, tracing.SpanPassPrefix+string(PassNegotiate))
	defer span.End()
	r.emit(ctx, Event{Kind: EventPassStarted, Pass: PassNegotiate})
	logger := ctxlog.FromContext(ctx)

	for _, n := range r.order {
		n.exec.resetNegotiation()
	}
	for i := len(r.order) - 1; i >= 0; i-- {
		n := r.order[i]
		r.visit(ctx, PassNegotiate, n)
		if err := r.negotiate(ctx, n); err != nil {
			span.RecordError(err)
			return err
		}
		logger.Debug("Negotiated node requests.", "node", n.name)
	}
	return nil
}

func (r *run) negotiate(ctx context.Context, n *Node) error {
	e := n.exec
	keys := r.p.keys

	for _, out := range n.outputs {
		asks := r.asksFor(out)
		if len(asks) == 0 {
			continue
		}
		req, err := r.combine(out, asks)
		if err != nil {
			return err
		}
		if req, err = r.normalize(out, req); err != nil {
			return err
		}
		e.outputRequests[out.index] = optRequest{set: true, req: req}
		keys.writeRequest(out.Request(), req)
	}

	primary := WholeRequest()
	for _, o := range e.outputRequests {
		if o.set {
			primary = o.req
			break
		}
	}
	for _, in := range n.inputs {
		if in.conn == nil {
			if !in.spec.Optional {
				return invalidRequest("required input %s of node %q is not connected", in.Address(), n.name)
			}
			continue
		}
		e.inputRequests[in.index] = optRequest{set: true, req: r.defaultInputRequest(n, in, primary)}
	}

	if h := n.spec.Handlers.NegotiateExtent; h != nil {
		if err := h(ctx, &NegotiateRequest{Node: n, Params: n.params, Keys: keys, exec: e}); err != nil {
			return fmt.Errorf("negotiating node %q: %w", n.name, err)
		}
	}

	for _, in := range n.inputs {
		o := e.inputRequests[in.index]
		if !o.set {
			in.Request().Clear()
			continue
		}
		if err := o.req.Validate(); err != nil {
			return fmt.Errorf("node %q input %d: %w", n.name, in.index, err)
		}
		keys.writeRequest(in.Request(), o.req)
	}
	return r.checkInputsMatch(n)
}

func (r *run) asksFor(out *OutputPort) []ask {
	var asks []ask
	for _, t := range r.targets {
		if t.Node == out.node.name && t.Port == out.index {
			asks = append(asks, ask{req: t.Request})
		}
	}
	for _, c := range out.consumers {
		dst := c.Dest.node
		if _, ok := r.nodes[dst.name]; !ok {
			continue
		}
		if req, ok := dst.exec.InputRequest(c.Dest.index); ok {
			asks = append(asks, ask{consumer: dst.name, input: c.Dest.index, req: req})
		}
	}
	return asks
}

// combine merges every request for one output into a single request that
// satisfies all of them: the union of extents, the common piece, and the
// one requested time.
func (r *run) combine(out *OutputPort, asks []ask) (Request, error) {
	if len(asks) == 1 {
		return asks[0].req, nil
	}
	keys := r.p.keys
	info := out.Info()
	whole, structured := keys.Whole(info)
	steps, hasSteps := keys.Steps(info)

	incompatible := func(reason string) error {
		reqs := make([]Request, len(asks))
		for i, a := range asks {
			reqs[i] = a.req
		}
		return &IncompatibleExtentRequestError{
			Node:     out.node.name,
			Port:     out.Address().String(),
			Reason:   reason,
			Requests: reqs,
		}
	}

	// Times from different consumers must agree once snapped to a step.
	var (
		hasTime bool
		t       float64
	)
	for _, a := range asks {
		if !a.req.HasTime {
			continue
		}
		at := a.req.Time
		if hasSteps {
			at = steps.Select(at)
		}
		if hasTime && at != t {
			return Request{}, incompatible("consumers request different times")
		}
		hasTime, t = true, at
	}

	resolved := make([]Request, len(asks))
	for i, a := range asks {
		res := a.req
		if structured && !res.Structured {
			res.Extent = extent.SplitExtent(whole, res.Piece)
			res.Structured = true
		}
		resolved[i] = res
	}

	// Sibling inputs of one consumer asking for disjoint extents cannot be
	// served by a single execution.
	for i := range asks {
		for j := i + 1; j < len(asks); j++ {
			if asks[i].consumer == "" || asks[i].consumer != asks[j].consumer {
				continue
			}
			a, b := resolved[i], resolved[j]
			if a.Structured && b.Structured && !a.Extent.IsEmpty() && !b.Extent.IsEmpty() && !a.Extent.Overlaps(b.Extent) {
				return Request{}, incompatible(fmt.Sprintf("sibling inputs of node %q request disjoint extents", asks[i].consumer))
			}
		}
	}

	allExtent, allPiece, samePiece := true, true, true
	maxGhost := 0
	union := extent.Empty()
	for i, a := range asks {
		if a.req.Kind == KindExtent {
			allPiece = false
		} else {
			allExtent = false
			maxGhost = max(maxGhost, a.req.Piece.Ghost)
			first := asks[0].req.Piece
			if a.req.Piece.Index != first.Index || a.req.Piece.Count != first.Count {
				samePiece = false
			}
		}
		if resolved[i].Structured {
			union = union.Union(resolved[i].Extent)
		}
	}

	var merged Request
	switch {
	case allPiece && samePiece:
		p := asks[0].req.Piece
		merged = PieceRequest(p.Index, p.Count, maxGhost)
	case allExtent || structured:
		merged = ExtentRequest(union)
	default:
		merged = PieceRequest(0, 1, maxGhost)
	}
	if hasTime {
		merged = merged.AtTime(t)
	}
	return merged, nil
}

// normalize restricts a request to what the output can supply: structured
// requests are clamped to the whole extent, pieces on structured outputs
// become blocks of it, and times snap to an available step.
func (r *run) normalize(out *OutputPort, req Request) (Request, error) {
	if err := req.Validate(); err != nil {
		return Request{}, fmt.Errorf("request for %s: %w", out.Address(), err)
	}
	keys := r.p.keys
	info := out.Info()
	if whole, ok := keys.Whole(info); ok {
		if req.Kind == KindPiece {
			req.Extent = extent.SplitExtent(whole, req.Piece)
			req.Structured = true
		} else {
			req.Extent = req.Extent.Clamp(whole)
		}
	}
	if req.HasTime {
		if steps, ok := keys.Steps(info); ok {
			req.Time = steps.Select(req.Time)
		}
	}
	return req, nil
}

// defaultInputRequest passes the primary output request through to an
// input, widened by the node's stencil.
func (r *run) defaultInputRequest(n *Node, in *InputPort, primary Request) Request {
	caps := n.spec.Capabilities
	sw := caps.StencilWidth
	inWhole, inStructured := r.p.keys.Whole(in.conn.Source.Info())

	var req Request
	switch {
	case caps.Unsplittable && inStructured:
		req = ExtentRequest(inWhole)
	case caps.Unsplittable:
		req = WholeRequest()
	case inStructured && primary.Structured:
		req = ExtentRequest(primary.Extent.PadUniform(sw).Clamp(inWhole))
	case inStructured:
		req = ExtentRequest(extent.SplitExtent(inWhole, primary.Piece.WithGhost(primary.Piece.Ghost+sw)))
	case primary.Kind == KindPiece:
		p := primary.Piece
		req = PieceRequest(p.Index, p.Count, p.Ghost+sw)
	default:
		req = ExtentRequest(primary.Extent.PadUniform(sw))
	}
	if primary.HasTime {
		req = req.AtTime(primary.Time)
	}
	return req
}

// checkInputsMatch enforces identical structured extents across the inputs
// of nodes that do not accept heterogeneous inputs.
func (r *run) checkInputsMatch(n *Node) error {
	if n.spec.Capabilities.HeterogeneousInputs {
		return nil
	}
	var (
		first   Request
		found   bool
		reqs    []Request
		differs bool
	)
	for _, o := range n.exec.inputRequests {
		if !o.set || !o.req.Structured {
			continue
		}
		reqs = append(reqs, o.req)
		if !found {
			first, found = o.req, true
			continue
		}
		if o.req.Extent != first.Extent {
			differs = true
		}
	}
	if differs {
		return &IncompatibleExtentRequestError{
			Node:     n.name,
			Port:     n.name,
			Reason:   fmt.Sprintf("node %q requires matching extents on all inputs", n.name),
			Requests: reqs,
		}
	}
	return nil
}
