// Package stamp implements the change tracker shared by every object in a
// pipeline: a monotonically increasing logical clock and the stamps it
// hands out.
//
// Stamps are never interpreted as wall-clock time. They are only compared
// for ordering, and a stamp issued later by the same Clock always compares
// greater than one issued earlier.
package stamp

import (
	"strconv"
	"sync/atomic"
)

// Stamp is a logical modification time. The zero Stamp predates every stamp
// a Clock issues, so an object that was never modified or executed compares
// older than anything else.
type Stamp uint64

// After reports whether s was issued after other.
func (s Stamp) After(other Stamp) bool { return s > other }

// IsZero reports whether s has never been set.
func (s Stamp) IsZero() bool { return s == 0 }

// String renders the stamp for logs.
func (s Stamp) String() string { return strconv.FormatUint(uint64(s), 10) }

// Max returns the newest of the given stamps.
func Max(stamps ...Stamp) Stamp {
	var m Stamp
	for _, s := range stamps {
		if s > m {
			m = s
		}
	}
	return m
}

// Clock issues stamps. One Clock is owned by each pipeline so stamps of
// different pipelines never need to be compared.
type Clock struct {
	last atomic.Uint64
}

// NewClock returns a clock whose first issued stamp is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new stamp.
func (c *Clock) Next() Stamp {
	return Stamp(c.last.Add(1))
}

// Current returns the most recently issued stamp without advancing.
func (c *Clock) Current() Stamp {
	return Stamp(c.last.Load())
}

// Tracker records the modification time of one object.
// The zero value is not usable; create trackers with NewTracker.
type Tracker struct {
	clock *Clock
	mtime atomic.Uint64
}

// NewTracker returns a tracker bound to clock and marks it modified, so a
// freshly created object is newer than any execution that preceded it.
func NewTracker(clock *Clock) *Tracker {
	t := &Tracker{clock: clock}
	t.Modified()
	return t
}

// Modified advances the tracker to a fresh stamp and returns it.
func (t *Tracker) Modified() Stamp {
	s := t.clock.Next()
	t.mtime.Store(uint64(s))
	return s
}

// MTime returns the last modification stamp.
func (t *Tracker) MTime() Stamp {
	return Stamp(t.mtime.Load())
}

// Clock returns the clock the tracker draws stamps from.
func (t *Tracker) Clock() *Clock {
	return t.clock
}
