package pipeline

import (
	"github.com/vk/streamgrid/internal/metadata"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/stamp"
)

// Node is one algorithm instance hosted by a pipeline: its ports, its
// parameters and the executive that drives it.
type Node struct {
	name      string
	spec      Spec
	pipeline  *Pipeline
	inputs    []*InputPort
	outputs   []*OutputPort
	params    *Parameters
	structure *stamp.Tracker
	exec      *Executive
}

func (n *Node) Name() string               { return n.name }
func (n *Node) Kind() string               { return n.spec.Kind }
func (n *Node) Capabilities() Capabilities { return n.spec.Capabilities }
func (n *Node) Params() *Parameters        { return n.params }
func (n *Node) Executive() *Executive      { return n.exec }
func (n *Node) NumInputs() int             { return len(n.inputs) }
func (n *Node) NumOutputs() int            { return len(n.outputs) }

// Input returns input port i, or nil when out of range.
func (n *Node) Input(i int) *InputPort {
	if i < 0 || i >= len(n.inputs) {
		return nil
	}
	return n.inputs[i]
}

// Output returns output port i, or nil when out of range.
func (n *Node) Output(i int) *OutputPort {
	if i < 0 || i >= len(n.outputs) {
		return nil
	}
	return n.outputs[i]
}

// SetCapabilities replaces the node's capabilities. A change counts as a
// structural modification so the node re-negotiates and re-executes.
func (n *Node) SetCapabilities(c Capabilities) {
	n.pipeline.mu.Lock()
	defer n.pipeline.mu.Unlock()
	if n.spec.Capabilities == c {
		return
	}
	n.spec.Capabilities = c
	n.structure.Modified()
}

// SetHandlers replaces the node's handlers and marks it modified.
func (n *Node) SetHandlers(h Handlers) {
	n.pipeline.mu.Lock()
	defer n.pipeline.mu.Unlock()
	n.spec.Handlers = h
	n.structure.Modified()
}

// Modified marks the node modified, forcing re-execution on the next Update.
func (n *Node) Modified() {
	n.params.Modified()
}

func (n *Node) address() *nodeid.Address {
	return &nodeid.Address{Path: []nodeid.PathSegment{nodeid.NewPathSegment(n.name)}}
}

// upstream returns the nodes feeding n's connected inputs.
func (n *Node) upstream() []*Node {
	var out []*Node
	for _, in := range n.inputs {
		if in.conn != nil {
			out = append(out, in.conn.Source.node)
		}
	}
	return out
}

// inputInfoMTime is the newest tracked-key change on the information of
// the outputs feeding n.
func (n *Node) inputInfoMTime() stamp.Stamp {
	var m stamp.Stamp
	for _, in := range n.inputs {
		if in.conn != nil {
			m = stamp.Max(m, in.conn.Source.Info().MTime())
		}
	}
	return m
}

// InputPort is an attachment point receiving data from one upstream output.
type InputPort struct {
	node    *Node
	index   int
	spec    PortSpec
	conn    *Connection
	request *metadata.Record
}

func (p *InputPort) Node() *Node             { return p.node }
func (p *InputPort) Index() int              { return p.index }
func (p *InputPort) Spec() PortSpec          { return p.spec }
func (p *InputPort) Connected() bool         { return p.conn != nil }
func (p *InputPort) Connection() *Connection { return p.conn }

// Address is `<node>.input[<i>]`.
func (p *InputPort) Address() *nodeid.Address { return nodeid.Input(p.node.name, p.index) }

// Request is the record mirroring what this node asks of the input.
func (p *InputPort) Request() *metadata.Record {
	if p.request == nil {
		p.request = p.node.pipeline.newRecord()
	}
	return p.request
}

// OutputPort is an attachment point producing data for any number of
// consumers.
type OutputPort struct {
	node      *Node
	index     int
	spec      PortSpec
	info      *metadata.Record
	request   *metadata.Record
	data      *metadata.Record
	consumers []*Connection
}

func (p *OutputPort) Node() *Node    { return p.node }
func (p *OutputPort) Index() int     { return p.index }
func (p *OutputPort) Spec() PortSpec { return p.spec }

// Address is `<node>.output[<i>]`.
func (p *OutputPort) Address() *nodeid.Address { return nodeid.Output(p.node.name, p.index) }

// Consumers lists the connections fed by this output.
func (p *OutputPort) Consumers() []*Connection {
	return append([]*Connection(nil), p.consumers...)
}

// Info is the informational record filled by DescribeOutputs.
func (p *OutputPort) Info() *metadata.Record {
	if p.info == nil {
		p.info = p.node.pipeline.newRecord()
	}
	return p.info
}

// Request is the record mirroring the negotiated request for this output.
func (p *OutputPort) Request() *metadata.Record {
	if p.request == nil {
		p.request = p.node.pipeline.newRecord()
	}
	return p.request
}

// Data holds the per-execution keys of the last produced output.
func (p *OutputPort) Data() *metadata.Record {
	if p.data == nil {
		p.data = p.node.pipeline.newRecord()
	}
	return p.data
}

// Connection binds an upstream output to a downstream input.
type Connection struct {
	Source *OutputPort
	Dest   *InputPort
}

func (c *Connection) String() string {
	return c.Source.Address().String() + " -> " + c.Dest.Address().String()
}
