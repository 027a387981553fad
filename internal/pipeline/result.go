package pipeline

import (
	"github.com/google/uuid"
	"github.com/vk/streamgrid/internal/nodestore"
)

// Target is an output port to update and what to ask of it. A zero Request
// asks for the whole dataset.
type Target struct {
	Node    string
	Port    int
	Request Request
}

// Result reports what an Update did.
type Result struct {
	RunID uuid.UUID
	// Order is the source-to-sink visiting order.
	Order []string
	// Executed nodes ran their Execute handler.
	Executed []string
	// Reused nodes were unchanged and kept their cached output.
	Reused []string
	// Skipped nodes could not execute because an upstream node failed.
	Skipped []string
	// Failed nodes returned an error from Execute.
	Failed []string
	// ShortCircuited is true when nothing upstream changed and the cached
	// target outputs were returned without running passes 2 to 4.
	ShortCircuited bool
	// Outputs are the target outputs keyed by port address. The handles are
	// owned by the store; call Retain to keep one.
	Outputs map[string]*nodestore.Handle
}

// Output returns the handle produced for a target, or nil.
func (r *Result) Output(node string, port int) *nodestore.Handle {
	if r == nil {
		return nil
	}
	return r.Outputs[outputKey(node, port)]
}

// Plan is the outcome of negotiation without execution.
type Plan struct {
	Order []string
	// Outputs maps output port addresses to their negotiated requests.
	Outputs map[string]Request
	// Inputs maps input port addresses to what the node asks of them.
	Inputs map[string]Request
}
