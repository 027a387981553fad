package nodestore

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is a reference-counted output shared by the store and every
// consumer that holds it. The payload is released through the producer's
// release function once the last reference is dropped. Payloads are
// immutable to consumers.
type Handle struct {
	id       uuid.UUID
	producer string
	data     any
	refs     atomic.Int64
	release  func(data any)
	once     sync.Once
}

// NewHandle wraps data produced by producer with one reference held by the
// caller. release may be nil.
func NewHandle(producer string, data any, release func(data any)) *Handle {
	h := &Handle{
		id:       uuid.New(),
		producer: producer,
		data:     data,
		release:  release,
	}
	h.refs.Store(1)
	return h
}

// ID uniquely identifies this output instance.
func (h *Handle) ID() uuid.UUID { return h.id }

// Producer is the address of the output port that produced the data.
func (h *Handle) Producer() string { return h.producer }

// Data returns the payload. It is nil once the handle has been freed.
func (h *Handle) Data() any {
	if h.Freed() {
		return nil
	}
	return h.data
}

// Refs returns the current reference count.
func (h *Handle) Refs() int { return int(h.refs.Load()) }

// Freed reports whether the last reference has been released.
func (h *Handle) Freed() bool { return h.refs.Load() <= 0 }

// Retain adds a reference. Retaining a freed handle has no effect and
// returns false.
func (h *Handle) Retain() bool {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference and frees the payload when it was the last.
// It reports whether this call freed the handle.
func (h *Handle) Release() bool {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n-1) {
			if n-1 > 0 {
				return false
			}
			h.once.Do(func() {
				if h.release != nil {
					h.release(h.data)
				}
			})
			return true
		}
	}
}
