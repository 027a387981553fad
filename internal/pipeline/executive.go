package pipeline

import (
	"github.com/vk/streamgrid/internal/nodestore"
	"github.com/vk/streamgrid/internal/stamp"
)

// Executive holds the per-node bookkeeping of the update protocol: what was
// described, negotiated and executed, and when.
type Executive struct {
	node *Node

	// pipelineMTime is the newest change anywhere upstream of the node,
	// computed by the modified pass of the current update.
	pipelineMTime stamp.Stamp
	describedAt   stamp.Stamp
	lastExecuted  stamp.Stamp

	// outputStamps[i] is when output i was last produced.
	outputStamps []stamp.Stamp
	// inputSeen[i] is the upstream output stamp consumed by the last execution.
	inputSeen []stamp.Stamp

	inputRequests   []optRequest
	outputRequests  []optRequest
	executedInputs  []optRequest
	executedOutputs []optRequest
	targetRequests  map[int]Request

	status     nodestore.Status
	executions int
}

type optRequest struct {
	set bool
	req Request
}

func newExecutive(n *Node) *Executive {
	return &Executive{
		node:            n,
		outputStamps:    make([]stamp.Stamp, len(n.outputs)),
		inputSeen:       make([]stamp.Stamp, len(n.inputs)),
		inputRequests:   make([]optRequest, len(n.inputs)),
		outputRequests:  make([]optRequest, len(n.outputs)),
		executedInputs:  make([]optRequest, len(n.inputs)),
		executedOutputs: make([]optRequest, len(n.outputs)),
		targetRequests:  make(map[int]Request),
	}
}

// Executions counts how often the node's Execute handler ran.
func (e *Executive) Executions() int { return e.executions }

// LastExecuted is the stamp of the last successful execution.
func (e *Executive) LastExecuted() stamp.Stamp { return e.lastExecuted }

// Status is the outcome of the node's last Execute pass.
func (e *Executive) Status() nodestore.Status { return e.status }

// InputRequest is the request negotiated for input i by the last update.
func (e *Executive) InputRequest(i int) (Request, bool) {
	if i < 0 || i >= len(e.inputRequests) || !e.inputRequests[i].set {
		return Request{}, false
	}
	return e.inputRequests[i].req, true
}

// OutputRequest is the request negotiated for output i by the last update.
func (e *Executive) OutputRequest(i int) (Request, bool) {
	if i < 0 || i >= len(e.outputRequests) || !e.outputRequests[i].set {
		return Request{}, false
	}
	return e.outputRequests[i].req, true
}

func (e *Executive) resetNegotiation() {
	for i := range e.inputRequests {
		e.inputRequests[i] = optRequest{}
	}
	for i := range e.outputRequests {
		e.outputRequests[i] = optRequest{}
	}
}

// requestsChanged reports whether the negotiated requests differ from those
// used by the last execution.
func (e *Executive) requestsChanged() bool {
	for i := range e.outputRequests {
		if e.outputRequests[i] != e.executedOutputs[i] {
			return true
		}
	}
	for i := range e.inputRequests {
		if e.inputRequests[i] != e.executedInputs[i] {
			return true
		}
	}
	return false
}
