package progress

import (
	"context"
	"sync/atomic"
)

// Flag is a cooperative abort flag. Execute handlers poll it through
// ExecuteRequest.Aborted and the pipeline checks it between nodes.
type Flag struct {
	set atomic.Bool
}

// Abort raises the flag.
func (f *Flag) Abort() { f.set.Store(true) }

// Reset lowers the flag so the next update can run.
func (f *Flag) Reset() { f.set.Store(false) }

// Aborted reports whether the flag is raised.
func (f *Flag) Aborted() bool { return f.set.Load() }

// AbortOnDone raises the flag when ctx is done. The returned stop function
// detaches it.
func (f *Flag) AbortOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, f.Abort)
}
