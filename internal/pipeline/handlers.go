package pipeline

import (
	"fmt"

	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/metadata"
	"github.com/vk/streamgrid/internal/nodestore"
)

// DescribeRequest is passed to a DescribeOutputs handler. Output records
// already hold a copy of the first connected input's information.
type DescribeRequest struct {
	Node   *Node
	Params *Parameters
	Keys   *Keys
}

// NumInputs is the number of input ports.
func (r *DescribeRequest) NumInputs() int { return r.Node.NumInputs() }

// InputInfo is the informational record of the output feeding input i, or
// nil when the input is unconnected.
func (r *DescribeRequest) InputInfo(i int) *metadata.Record {
	return inputInfo(r.Node, i)
}

// OutputInfo is the informational record of output i.
func (r *DescribeRequest) OutputInfo(i int) *metadata.Record {
	out := r.Node.Output(i)
	if out == nil {
		return nil
	}
	return out.Info()
}

// SetWholeExtent declares output i as structured with the given extent.
func (r *DescribeRequest) SetWholeExtent(i int, e extent.Extent) error {
	rec := r.OutputInfo(i)
	if rec == nil {
		return invalidRequest("node %q has no output %d", r.Node.name, i)
	}
	return rec.Set(r.Keys.WholeExtent, e)
}

// SetTimeSteps declares the times output i can supply.
func (r *DescribeRequest) SetTimeSteps(i int, ts extent.TimeSteps) error {
	rec := r.OutputInfo(i)
	if rec == nil {
		return invalidRequest("node %q has no output %d", r.Node.name, i)
	}
	return r.Keys.SetSteps(rec, ts)
}

// SetMaxPieces declares how many pieces output i can be split into.
func (r *DescribeRequest) SetMaxPieces(i, n int) error {
	rec := r.OutputInfo(i)
	if rec == nil {
		return invalidRequest("node %q has no output %d", r.Node.name, i)
	}
	return rec.Set(r.Keys.MaxPieces, n)
}

// SetDataType declares the data type produced on output i.
func (r *DescribeRequest) SetDataType(i int, dataType string) error {
	rec := r.OutputInfo(i)
	if rec == nil {
		return invalidRequest("node %q has no output %d", r.Node.name, i)
	}
	return rec.Set(r.Keys.DataType, dataType)
}

// NegotiateRequest is passed to a NegotiateExtent handler after the default
// policy filled every connected input's request.
type NegotiateRequest struct {
	Node   *Node
	Params *Parameters
	Keys   *Keys
	exec   *Executive
}

// OutputRequest is what downstream asked of output i.
func (r *NegotiateRequest) OutputRequest(i int) (Request, bool) {
	return r.exec.OutputRequest(i)
}

// InputRequest is what the node currently asks of input i.
func (r *NegotiateRequest) InputRequest(i int) (Request, bool) {
	return r.exec.InputRequest(i)
}

// SetInputRequest overrides the request for a connected input.
func (r *NegotiateRequest) SetInputRequest(i int, req Request) error {
	in := r.Node.Input(i)
	if in == nil {
		return invalidRequest("node %q has no input %d", r.Node.name, i)
	}
	if !in.Connected() {
		return invalidRequest("input %s is not connected", in.Address())
	}
	if err := req.Validate(); err != nil {
		return err
	}
	r.exec.inputRequests[i] = optRequest{set: true, req: req}
	return nil
}

// InputInfo is the informational record of the output feeding input i.
func (r *NegotiateRequest) InputInfo(i int) *metadata.Record {
	return inputInfo(r.Node, i)
}

// InputWholeExtent is the whole extent available on input i.
func (r *NegotiateRequest) InputWholeExtent(i int) (extent.Extent, bool) {
	return r.Keys.Whole(r.InputInfo(i))
}

// InputTimeSteps are the times available on input i.
func (r *NegotiateRequest) InputTimeSteps(i int) (extent.TimeSteps, bool) {
	return r.Keys.Steps(r.InputInfo(i))
}

// Input is one input as seen by Execute.
type Input struct {
	Connected bool
	// Handle is nil when the upstream produced nothing or failed. It is
	// retained for the duration of Execute.
	Handle *nodestore.Handle
	Data   any
	// Info and DataRecord belong to the upstream output.
	Info       *metadata.Record
	DataRecord *metadata.Record
	Request    Request
	// UpstreamFailed is set for nodes tolerating upstream failure.
	UpstreamFailed bool
}

// ExecuteRequest is passed to an Execute handler.
type ExecuteRequest struct {
	Node   *Node
	Params *Parameters
	Keys   *Keys

	inputs   []Input
	data     []*metadata.Record
	produced []any
	set      []bool
	progress func(float64)
	aborted  func() bool
	workers  int
}

// NumInputs is the number of input ports.
func (r *ExecuteRequest) NumInputs() int { return len(r.inputs) }

// Input returns input i.
func (r *ExecuteRequest) Input(i int) Input {
	if i < 0 || i >= len(r.inputs) {
		return Input{}
	}
	return r.inputs[i]
}

// OutputRequest is the request to satisfy on output i. Outputs nobody
// requested report false.
func (r *ExecuteRequest) OutputRequest(i int) (Request, bool) {
	return r.Node.exec.OutputRequest(i)
}

// OutputInfo is output i's informational record.
func (r *ExecuteRequest) OutputInfo(i int) *metadata.Record {
	out := r.Node.Output(i)
	if out == nil {
		return nil
	}
	return out.Info()
}

// OutputData is the record for per-execution keys of output i, such as
// DATA_RANGE. It replaces the port's data record when Execute succeeds.
func (r *ExecuteRequest) OutputData(i int) *metadata.Record {
	if i < 0 || i >= len(r.data) {
		return nil
	}
	return r.data[i]
}

// SetOutput publishes the payload of output i. The payload must not be
// modified after Execute returns.
func (r *ExecuteRequest) SetOutput(i int, data any) error {
	if i < 0 || i >= len(r.produced) {
		return fmt.Errorf("node %q has no output %d: %w", r.Node.name, i, ErrInvalidRequest)
	}
	r.produced[i] = data
	r.set[i] = true
	return nil
}

// Progress reports completion of the current execution in [0, 1].
func (r *ExecuteRequest) Progress(f float64) {
	if r.progress != nil {
		r.progress(min(max(f, 0), 1))
	}
}

// Aborted reports whether the update should stop. Long running handlers
// poll it and return early.
func (r *ExecuteRequest) Aborted() bool {
	return r.aborted != nil && r.aborted()
}

// Workers is the parallelism budget for work inside Execute.
func (r *ExecuteRequest) Workers() int { return r.workers }

func inputInfo(n *Node, i int) *metadata.Record {
	in := n.Input(i)
	if in == nil || in.conn == nil {
		return nil
	}
	return in.conn.Source.Info()
}
