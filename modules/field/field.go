// Package field provides the dense scalar grid the reference algorithms
// exchange. A Field stores one float64 per point of its extent, x varying
// fastest.
package field

import (
	"fmt"
	"math"

	"github.com/vk/streamgrid/internal/extent"
)

// DataType is the DATA_TYPE value outputs carrying a *Field declare.
const DataType = "field"

// Field is a dense grid of values over an extent.
type Field struct {
	Extent  extent.Extent
	Time    float64
	HasTime bool
	Values  []float64
}

// New allocates a zeroed field covering e.
func New(e extent.Extent) *Field {
	return &Field{Extent: e, Values: make([]float64, e.NumPoints())}
}

// Len is the number of points.
func (f *Field) Len() int { return len(f.Values) }

// Contains reports whether the point lies inside the field.
func (f *Field) Contains(i, j, k int) bool {
	e := f.Extent
	return i >= e[0] && i <= e[1] && j >= e[2] && j <= e[3] && k >= e[4] && k <= e[5]
}

// Index is the offset of point (i, j, k) in Values. The point must lie
// inside the field.
func (f *Field) Index(i, j, k int) int {
	d := f.Extent.Dimensions()
	return (i - f.Extent[0]) + d[0]*((j-f.Extent[2])+d[1]*(k-f.Extent[4]))
}

// At returns the value at (i, j, k).
func (f *Field) At(i, j, k int) float64 { return f.Values[f.Index(i, j, k)] }

// Set stores the value at (i, j, k).
func (f *Field) Set(i, j, k int, v float64) { f.Values[f.Index(i, j, k)] = v }

// Each calls fn for every point of e in storage order.
func Each(e extent.Extent, fn func(i, j, k int)) {
	if e.IsEmpty() {
		return
	}
	for k := e[4]; k <= e[5]; k++ {
		for j := e[2]; j <= e[3]; j++ {
			for i := e[0]; i <= e[1]; i++ {
				fn(i, j, k)
			}
		}
	}
}

// Crop copies the part of f covering e, which must lie inside f.
func (f *Field) Crop(e extent.Extent) (*Field, error) {
	if !f.Extent.Contains(e) {
		return nil, fmt.Errorf("extent %s is not inside field %s", e, f.Extent)
	}
	out := New(e)
	out.Time, out.HasTime = f.Time, f.HasTime
	Each(e, func(i, j, k int) {
		out.Set(i, j, k, f.At(i, j, k))
	})
	return out, nil
}

// Range returns the smallest and largest value. ok is false for an empty
// field.
func (f *Field) Range() (lo, hi float64, ok bool) {
	if len(f.Values) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, true
}

// Sum adds every value.
func (f *Field) Sum() float64 {
	var s float64
	for _, v := range f.Values {
		s += v
	}
	return s
}

func (f *Field) String() string {
	s := fmt.Sprintf("field %s (%d points)", f.Extent, f.Len())
	if lo, hi, ok := f.Range(); ok {
		s += fmt.Sprintf(" range [%g, %g]", lo, hi)
	}
	if f.HasTime {
		s += fmt.Sprintf(" @%g", f.Time)
	}
	return s
}
