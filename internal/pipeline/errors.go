package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCyclicPipeline is returned when the graph reachable from the
	// update targets contains a cycle. No node executes.
	ErrCyclicPipeline = errors.New("cyclic pipeline")
	// ErrComputeFailure is returned when one or more nodes failed to
	// execute. Nodes upstream of the failure keep their outputs.
	ErrComputeFailure = errors.New("compute failure")
	// ErrIncompatibleExtentRequest is returned when requests for one output
	// cannot be reconciled, or a node that does not accept heterogeneous
	// inputs would receive differing extents.
	ErrIncompatibleExtentRequest = errors.New("incompatible extent request")
	// ErrInvalidRequest is returned for malformed targets, unknown nodes or
	// ports, invalid pieces and unconnected required inputs.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAborted is returned when the abort flag stopped an update.
	ErrAborted = errors.New("aborted")
)

// CyclicPipelineError names the nodes forming the cycle.
type CyclicPipelineError struct {
	Path []string
	Err  error
}

func (e *CyclicPipelineError) Error() string {
	return fmt.Sprintf("cyclic pipeline through %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicPipelineError) Is(target error) bool { return target == ErrCyclicPipeline }

func (e *CyclicPipelineError) Unwrap() error { return e.Err }

// IncompatibleExtentRequestError describes requests that could not be
// reconciled on a port.
type IncompatibleExtentRequestError struct {
	Node     string
	Port     string
	Reason   string
	Requests []Request
}

func (e *IncompatibleExtentRequestError) Error() string {
	parts := make([]string, len(e.Requests))
	for i, r := range e.Requests {
		parts[i] = r.String()
	}
	return fmt.Sprintf("incompatible extent request on %s: %s [%s]", e.Port, e.Reason, strings.Join(parts, ", "))
}

func (e *IncompatibleExtentRequestError) Is(target error) bool {
	return target == ErrIncompatibleExtentRequest
}

// NodeFailure is one failed Execute.
type NodeFailure struct {
	Node string
	Err  error
}

// ComputeFailureError collects every node whose Execute failed during an
// update.
type ComputeFailureError struct {
	Failures []NodeFailure
}

func (e *ComputeFailureError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("compute failure in node %q: %v", f.Node, f.Err)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%q: %v", f.Node, f.Err)
	}
	return fmt.Sprintf("compute failure in %d nodes: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ComputeFailureError) Is(target error) bool { return target == ErrComputeFailure }

func (e *ComputeFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Nodes lists the failed node names.
func (e *ComputeFailureError) Nodes() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Node
	}
	return names
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidRequest)
}
