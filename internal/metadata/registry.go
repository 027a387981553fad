package metadata

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the key definitions of one pipeline.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]*Key
}

// NewRegistry returns an empty key registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*Key)}
}

// Register declares a key. Registering an identical definition again
// returns the existing key; a conflicting definition is an error.
func (r *Registry) Register(scope, name string, kind Kind, opts ...KeyOption) (*Key, error) {
	if name == "" {
		return nil, fmt.Errorf("metadata key in scope %q: empty name", scope)
	}
	if kind < KindInt || kind > KindObject {
		return nil, fmt.Errorf("metadata key %s::%s: unknown kind %d", scope, name, int(kind))
	}
	k := &Key{name: name, scope: scope, kind: kind}
	for _, opt := range opts {
		opt(k)
	}
	if k.length < 0 {
		return nil, fmt.Errorf("metadata key %s: negative length %d", k, k.length)
	}
	if k.length > 0 && kind != KindIntVector && kind != KindFloatVector {
		return nil, fmt.Errorf("metadata key %s: length only applies to vector kinds", k)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.keys[k.String()]; ok {
		if existing.sameDefinition(k) {
			return existing, nil
		}
		return nil, fmt.Errorf("metadata key %s registered as %s, redeclared as %s: %w",
			k, existing.describe(), k.describe(), ErrKeyConflict)
	}
	r.keys[k.String()] = k
	return k, nil
}

// MustRegister is Register for keys declared at construction time; it
// panics on a conflicting definition.
func (r *Registry) MustRegister(scope, name string, kind Kind, opts ...KeyOption) *Key {
	k, err := r.Register(scope, name, kind, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Lookup finds a registered key.
func (r *Registry) Lookup(scope, name string) (*Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[scope+"::"+name]
	return k, ok
}

// Keys lists every registered key ordered by scope and name.
func (r *Registry) Keys() []*Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Key, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func sortKeys(keys []*Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}
