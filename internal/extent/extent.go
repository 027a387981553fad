// Package extent implements the descriptors used to negotiate what subset
// of a dataset a node must produce: structured index-space extents,
// unstructured pieces and discrete time steps.
package extent

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned for malformed extents and pieces.
var ErrInvalid = errors.New("invalid extent")

// Extent is a structured index-space box: min and max per axis,
// {xmin, xmax, ymin, ymax, zmin, zmax}, bounds inclusive. An extent with
// min > max on any axis is empty.
type Extent [6]int

// New builds an extent from its six bounds.
func New(xmin, xmax, ymin, ymax, zmin, zmax int) Extent {
	return Extent{xmin, xmax, ymin, ymax, zmin, zmax}
}

// Empty returns the canonical empty extent.
func Empty() Extent {
	return Extent{0, -1, 0, -1, 0, -1}
}

// FromSlice converts a six element slice.
func FromSlice(s []int) (Extent, error) {
	if len(s) != 6 {
		return Empty(), fmt.Errorf("extent needs 6 bounds, got %d: %w", len(s), ErrInvalid)
	}
	var e Extent
	copy(e[:], s)
	return e, nil
}

// Slice returns the bounds as a slice.
func (e Extent) Slice() []int {
	return append([]int(nil), e[:]...)
}

// IsEmpty reports whether some axis has min > max.
func (e Extent) IsEmpty() bool {
	return e[0] > e[1] || e[2] > e[3] || e[4] > e[5]
}

// Intersect returns the overlap of e and o, or Empty.
func (e Extent) Intersect(o Extent) Extent {
	if e.IsEmpty() || o.IsEmpty() {
		return Empty()
	}
	var r Extent
	for a := 0; a < 3; a++ {
		r[2*a] = max(e[2*a], o[2*a])
		r[2*a+1] = min(e[2*a+1], o[2*a+1])
	}
	if r.IsEmpty() {
		return Empty()
	}
	return r
}

// Union returns the bounding box of e and o. Empty operands are ignored.
func (e Extent) Union(o Extent) Extent {
	switch {
	case e.IsEmpty():
		return o.normalize()
	case o.IsEmpty():
		return e
	}
	var r Extent
	for a := 0; a < 3; a++ {
		r[2*a] = min(e[2*a], o[2*a])
		r[2*a+1] = max(e[2*a+1], o[2*a+1])
	}
	return r
}

// Pad grows every axis by the given width on both sides.
func (e Extent) Pad(width [3]int) Extent {
	if e.IsEmpty() {
		return e
	}
	for a := 0; a < 3; a++ {
		e[2*a] -= width[a]
		e[2*a+1] += width[a]
	}
	return e
}

// PadUniform pads every axis by w.
func (e Extent) PadUniform(w int) Extent {
	return e.Pad([3]int{w, w, w})
}

// Clamp restricts e to whole.
func (e Extent) Clamp(whole Extent) Extent {
	return e.Intersect(whole)
}

// Contains reports whether o lies inside e. The empty extent is contained
// in everything.
func (e Extent) Contains(o Extent) bool {
	if o.IsEmpty() {
		return true
	}
	if e.IsEmpty() {
		return false
	}
	for a := 0; a < 3; a++ {
		if o[2*a] < e[2*a] || o[2*a+1] > e[2*a+1] {
			return false
		}
	}
	return true
}

// Overlaps reports whether e and o share at least one point.
func (e Extent) Overlaps(o Extent) bool {
	return !e.Intersect(o).IsEmpty()
}

// Dimensions returns the number of points per axis.
func (e Extent) Dimensions() [3]int {
	if e.IsEmpty() {
		return [3]int{}
	}
	return [3]int{e[1] - e[0] + 1, e[3] - e[2] + 1, e[5] - e[4] + 1}
}

// NumPoints returns the number of points in e.
func (e Extent) NumPoints() int {
	d := e.Dimensions()
	return d[0] * d[1] * d[2]
}

func (e Extent) String() string {
	if e.IsEmpty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%d,%d %d,%d %d,%d]", e[0], e[1], e[2], e[3], e[4], e[5])
}

func (e Extent) normalize() Extent {
	if e.IsEmpty() {
		return Empty()
	}
	return e
}
