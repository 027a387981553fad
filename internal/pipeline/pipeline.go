// Package pipeline implements the demand-driven execution engine: nodes
// connected into a directed acyclic graph, a four-pass update protocol that
// describes outputs downstream, negotiates extents, pieces and times
// upstream, and executes only the nodes whose inputs, parameters or
// requests changed.
//
// A Pipeline owns its nodes, its metadata key registry and its logical
// clock. Update calls on one pipeline are serialised.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/streamgrid/internal/inmemorystore"
	"github.com/vk/streamgrid/internal/metadata"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/nodestore"
	"github.com/vk/streamgrid/internal/stamp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Pipeline hosts nodes and runs updates over them.
type Pipeline struct {
	mu        sync.Mutex
	clock     *stamp.Clock
	registry  *metadata.Registry
	keys      *Keys
	store     nodestore.Store
	nodes     map[string]*Node
	tracer    trace.Tracer
	observers []Observer
	aborter   Aborter
	workers   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore sets where outputs, statuses and errors are kept. The default is
// an in-memory store without expiry.
func WithStore(s nodestore.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithTracer sets the tracer used for update, pass and execute spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithObserver adds observers.
func WithObserver(o ...Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o...) }
}

// WithAborter sets the abort flag polled between node executions.
func WithAborter(a Aborter) Option {
	return func(p *Pipeline) { p.aborter = a }
}

// WithWorkers sets the worker budget offered to Execute handlers.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithRegistry shares a key registry between pipelines.
func WithRegistry(r *metadata.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// New creates an empty pipeline and registers the standard keys.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		clock:   stamp.NewClock(),
		nodes:   make(map[string]*Node),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = metadata.NewRegistry()
	}
	if p.store == nil {
		p.store = inmemorystore.New()
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer("streamgrid/pipeline")
	}
	if p.workers < 1 {
		p.workers = 1
	}
	p.keys = registerKeys(p.registry)
	return p
}

// Keys returns the standard metadata keys.
func (p *Pipeline) Keys() *Keys { return p.keys }

// Registry returns the pipeline's key registry.
func (p *Pipeline) Registry() *metadata.Registry { return p.registry }

// Clock returns the pipeline's logical clock.
func (p *Pipeline) Clock() *stamp.Clock { return p.clock }

// Store returns the output store.
func (p *Pipeline) Store() nodestore.Store { return p.store }

// AddObserver registers an observer for subsequent updates.
func (p *Pipeline) AddObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Pipeline) newRecord() *metadata.Record {
	return metadata.NewRecord(p.clock)
}

// AddNode creates a node from spec. Names are unique within a pipeline.
func (p *Pipeline) AddNode(name string, spec Spec) (*Node, error) {
	if err := nodeid.ValidateName(name); err != nil {
		return nil, invalidRequest("node name %q is not a valid identifier", name)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("adding node %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[name]; ok {
		return nil, invalidRequest("node %q already exists", name)
	}

	n := &Node{
		name:      name,
		spec:      spec,
		pipeline:  p,
		params:    newParameters(p.clock),
		structure: stamp.NewTracker(p.clock),
	}
	for i, ps := range spec.Inputs {
		n.inputs = append(n.inputs, &InputPort{node: n, index: i, spec: ps})
	}
	for i, ps := range spec.Outputs {
		n.outputs = append(n.outputs, &OutputPort{node: n, index: i, spec: ps})
	}
	n.exec = newExecutive(n)
	p.nodes[name] = n
	return n, nil
}

// Node looks up a node by name.
func (p *Pipeline) Node(name string) (*Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[name]
	return n, ok
}

// Nodes returns every node ordered by name.
func (p *Pipeline) Nodes() []*Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Connect binds output srcPort of src to input dstPort of dst. A connection
// already bound to that input is replaced. Cycles are accepted here and
// rejected by Update.
func (p *Pipeline) Connect(src string, srcPort int, dst string, dstPort int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	from, ok := p.nodes[src]
	if !ok {
		return invalidRequest("unknown source node %q", src)
	}
	to, ok := p.nodes[dst]
	if !ok {
		return invalidRequest("unknown destination node %q", dst)
	}
	out := from.Output(srcPort)
	if out == nil {
		return invalidRequest("node %q has no output %d", src, srcPort)
	}
	in := to.Input(dstPort)
	if in == nil {
		return invalidRequest("node %q has no input %d", dst, dstPort)
	}
	if in.conn != nil && in.conn.Source == out {
		return nil
	}

	p.disconnectLocked(in)
	c := &Connection{Source: out, Dest: in}
	in.conn = c
	out.consumers = append(out.consumers, c)
	to.structure.Modified()
	return nil
}

// Disconnect removes the connection bound to input dstPort of dst.
func (p *Pipeline) Disconnect(dst string, dstPort int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	to, ok := p.nodes[dst]
	if !ok {
		return invalidRequest("unknown node %q", dst)
	}
	in := to.Input(dstPort)
	if in == nil {
		return invalidRequest("node %q has no input %d", dst, dstPort)
	}
	p.disconnectLocked(in)
	return nil
}

func (p *Pipeline) disconnectLocked(in *InputPort) {
	c := in.conn
	if c == nil {
		return
	}
	consumers := c.Source.consumers[:0]
	for _, other := range c.Source.consumers {
		if other != c {
			consumers = append(consumers, other)
		}
	}
	c.Source.consumers = consumers
	in.conn = nil
	in.node.structure.Modified()
}

// RemoveNode severs every connection of the node, releases its outputs and
// removes it.
func (p *Pipeline) RemoveNode(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[name]
	if !ok {
		return invalidRequest("unknown node %q", name)
	}
	for _, in := range n.inputs {
		p.disconnectLocked(in)
	}
	for _, out := range n.outputs {
		for _, c := range out.Consumers() {
			p.disconnectLocked(c.Dest)
		}
	}
	if err := p.releaseLocked(ctx, n); err != nil {
		return err
	}
	delete(p.nodes, name)
	return nil
}

// ReleaseData drops the cached outputs of a node. The node re-executes on
// the next update that reaches it.
func (p *Pipeline) ReleaseData(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.nodes[name]
	if !ok {
		return invalidRequest("unknown node %q", name)
	}
	return p.releaseLocked(ctx, n)
}

func (p *Pipeline) releaseLocked(ctx context.Context, n *Node) error {
	for _, out := range n.outputs {
		if err := p.store.DeleteOutput(ctx, *out.Address()); err != nil {
			return fmt.Errorf("releasing %s: %w", out.Address(), err)
		}
		n.exec.outputStamps[out.index] = 0
		if out.data != nil {
			out.data.Remove(p.keys.DataObject)
		}
	}
	return nil
}

// Output returns the cached handle of a node output, or nil.
func (p *Pipeline) Output(ctx context.Context, node string, port int) (*nodestore.Handle, error) {
	return p.store.GetOutput(ctx, *nodeid.Output(node, port))
}

// Close releases every cached output.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.nodes {
		for i := range n.exec.outputStamps {
			n.exec.outputStamps[i] = 0
		}
	}
	return p.store.Flush(ctx)
}

func outputKey(node string, port int) string {
	return nodeid.Output(node, port).String()
}
