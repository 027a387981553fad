package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pass names one traversal of the update protocol.
type Pass string

const (
	PassModified  Pass = "modified"
	PassDescribe  Pass = "describe"
	PassNegotiate Pass = "negotiate"
	PassExecute   Pass = "execute"
)

// EventKind classifies observer events.
type EventKind string

const (
	EventUpdateStarted  EventKind = "update_started"
	EventUpdateFinished EventKind = "update_finished"
	EventPassStarted    EventKind = "pass_started"
	EventNodeVisited    EventKind = "node_visited"
	EventNodeExecuted   EventKind = "node_executed"
	EventNodeReused     EventKind = "node_reused"
	EventNodeSkipped    EventKind = "node_skipped"
	EventNodeFailed     EventKind = "node_failed"
	EventProgress       EventKind = "progress"
)

// Event is reported to observers while an update runs.
type Event struct {
	Kind     EventKind
	RunID    uuid.UUID
	Time     time.Time
	Pass     Pass
	Node     string
	NodeKind string
	// Request is the primary output request for node events of the
	// execute pass.
	Request  *Request
	Duration time.Duration
	Progress float64
	Err      error
	// Targets are the update targets, set on update events.
	Targets []string
	// Result is set on EventUpdateFinished.
	Result *Result
}

// Observer receives pipeline events synchronously on the updating goroutine.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Aborter is polled between node executions and by Execute handlers.
type Aborter interface {
	Aborted() bool
}
