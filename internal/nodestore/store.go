// Package nodestore defines where the pipeline keeps the mutable results of
// node execution: the shared output handles each node produced, the node's
// last status and the error of a failed execution.
//
// The store is separate from the node graph. Nodes and connections describe
// what to compute; the store holds what was computed, so a storage backend
// can bound memory (for example by expiring idle outputs) without touching
// the graph.
//
// Outputs are keyed by the output port address (`<node>.output[<i>]`),
// status and errors by the node address (`<node>`).
package nodestore

import (
	"context"

	"github.com/vk/streamgrid/internal/nodeid"
)

// Status is the outcome of a node's most recent Execute pass.
type Status int

const (
	// StatusPending means the node has not executed yet.
	StatusPending Status = iota
	// StatusRunning means Execute is in progress.
	StatusRunning
	// StatusCompleted means the outputs in the store are valid.
	StatusCompleted
	// StatusFailed means the last Execute returned an error.
	StatusFailed
	// StatusSkipped means an upstream failure prevented execution.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Store manages the execution results of a pipeline.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// SetStatus records a node's status.
	SetStatus(ctx context.Context, id nodeid.Address, status Status) error

	// GetStatus returns StatusPending if no status has been set.
	GetStatus(ctx context.Context, id nodeid.Address) (Status, error)

	// SetOutput stores a handle, taking over one reference the caller
	// holds. A handle already stored under id is released.
	SetOutput(ctx context.Context, id nodeid.Address, h *Handle) error

	// GetOutput returns the stored handle or nil. The returned handle is
	// not retained; callers that keep it must call Retain.
	GetOutput(ctx context.Context, id nodeid.Address) (*Handle, error)

	// DeleteOutput drops and releases the handle stored under id.
	DeleteOutput(ctx context.Context, id nodeid.Address) error

	// SetError records the error of a failed node; nil clears it.
	SetError(ctx context.Context, id nodeid.Address, nodeErr error) error

	// GetError returns nil if the node has no recorded failure.
	GetError(ctx context.Context, id nodeid.Address) (error, error)

	// Flush releases every stored output and forgets all state.
	Flush(ctx context.Context) error
}
