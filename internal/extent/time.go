package extent

import "sort"

// TimeSteps describes the times an output can supply.
type TimeSteps struct {
	// Values are the discrete steps, ascending.
	Values []float64
	// Range is the [first, last] time covered.
	Range [2]float64
	// Continuous outputs accept any requested time.
	Continuous bool
}

// Discrete builds a step set from unordered values.
func Discrete(values ...float64) TimeSteps {
	v := append([]float64(nil), values...)
	sort.Float64s(v)
	ts := TimeSteps{Values: v}
	if len(v) > 0 {
		ts.Range = [2]float64{v[0], v[len(v)-1]}
	}
	return ts
}

// ContinuousRange builds a continuous time range.
func ContinuousRange(from, to float64) TimeSteps {
	return TimeSteps{Range: [2]float64{from, to}, Continuous: true}
}

// IsEmpty reports whether no time information is available.
func (ts TimeSteps) IsEmpty() bool {
	return !ts.Continuous && len(ts.Values) == 0
}

// Select snaps a requested time to a step the output can supply: the exact
// step if present, otherwise the nearest step not later than t, otherwise
// the first step. Continuous and empty sets return t unchanged.
func (ts TimeSteps) Select(t float64) float64 {
	if ts.Continuous || len(ts.Values) == 0 {
		return t
	}
	i := sort.SearchFloat64s(ts.Values, t)
	if i < len(ts.Values) && ts.Values[i] == t {
		return t
	}
	if i == 0 {
		return ts.Values[0]
	}
	return ts.Values[i-1]
}
