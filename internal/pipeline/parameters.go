package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/streamgrid/internal/stamp"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Parameters is a node's configuration. The executive treats values as
// opaque and only watches the modification stamp.
type Parameters struct {
	mu      sync.RWMutex
	values  map[string]cty.Value
	tracker *stamp.Tracker
}

func newParameters(clock *stamp.Clock) *Parameters {
	return &Parameters{
		values:  make(map[string]cty.Value),
		tracker: stamp.NewTracker(clock),
	}
}

// MTime is the stamp of the last change.
func (p *Parameters) MTime() stamp.Stamp { return p.tracker.MTime() }

// Modified forces a new modification stamp.
func (p *Parameters) Modified() { p.tracker.Modified() }

// Set stores a value. Setting a value equal to the current one does not
// advance the stamp. It reports whether anything changed.
func (p *Parameters) Set(name string, v cty.Value) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.values[name]; ok && cur.RawEquals(v) {
		return false
	}
	p.values[name] = v
	p.tracker.Modified()
	return true
}

// SetGo converts a Go value with its implied cty type and stores it.
func (p *Parameters) SetGo(name string, v any) (bool, error) {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return false, fmt.Errorf("parameter %q: %w", name, err)
	}
	cv, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return false, fmt.Errorf("parameter %q: %w", name, err)
	}
	return p.Set(name, cv), nil
}

// SetAll replaces the whole set, advancing the stamp once if anything
// differs.
func (p *Parameters) SetAll(values map[string]cty.Value) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := len(values) != len(p.values)
	if !changed {
		for k, v := range values {
			cur, ok := p.values[k]
			if !ok || !cur.RawEquals(v) {
				changed = true
				break
			}
		}
	}
	if !changed {
		return false
	}
	p.values = make(map[string]cty.Value, len(values))
	for k, v := range values {
		p.values[k] = v
	}
	p.tracker.Modified()
	return true
}

// Get returns a raw value.
func (p *Parameters) Get(name string) (cty.Value, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// Decode converts a value into out, which must be a pointer.
func (p *Parameters) Decode(name string, out any) error {
	v, ok := p.Get(name)
	if !ok {
		return fmt.Errorf("parameter %q is not set", name)
	}
	if v.IsNull() {
		return fmt.Errorf("parameter %q is null", name)
	}
	if err := gocty.FromCtyValue(v, out); err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	return nil
}

// Int returns an integer parameter or def when absent or not integral.
func (p *Parameters) Int(name string, def int) int {
	var out int
	if err := p.Decode(name, &out); err != nil {
		return def
	}
	return out
}

// Float returns a number parameter or def.
func (p *Parameters) Float(name string, def float64) float64 {
	var out float64
	if err := p.Decode(name, &out); err != nil {
		return def
	}
	return out
}

// String returns a string parameter or def.
func (p *Parameters) String(name string, def string) string {
	var out string
	if err := p.Decode(name, &out); err != nil {
		return def
	}
	return out
}

// Names lists the parameter names in order.
func (p *Parameters) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
