// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Status and errors live in sync.Map: the key space (the pipeline's nodes)
// is stable while values change on every Update.
//
// Outputs live in a cachemanager so that an idle output can expire. Every
// output the cache drops, by deletion or expiry, releases the store's
// reference on the handle; the producing node then re-executes on the next
// Update because its output is missing.
package inmemorystore

import (
	"context"
	"sync"
	"time"

	"github.com/vk/streamgrid/internal/cachemanager"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/nodestore"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	outputTTL       time.Duration
	cleanupInterval time.Duration
}

// WithOutputTTL expires outputs that have not been read for ttl.
// Zero keeps outputs until they are replaced or deleted.
func WithOutputTTL(ttl time.Duration) Option {
	return func(o *options) { o.outputTTL = ttl }
}

// WithCleanupInterval sets how often expired outputs are purged.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: node address string, Value: nodestore.Status
	errors  sync.Map // Key: node address string, Value: error
	outputs *cachemanager.InMemoryCacheManager[*nodestore.Handle]
	ttl     time.Duration
}

// New creates a new, empty in-memory store.
func New(opts ...Option) *Store {
	o := options{cleanupInterval: cachemanager.DefaultCleanupInterval}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		outputs: cachemanager.NewInMemoryCacheManager[*nodestore.Handle]("node-outputs", o.outputTTL, o.cleanupInterval),
		ttl:     o.outputTTL,
	}
	s.outputs.OnEvicted(func(_ string, h *nodestore.Handle) {
		h.Release()
	})
	return s
}

// SetStatus updates the execution status of a specific node.
func (s *Store) SetStatus(ctx context.Context, id nodeid.Address, status nodestore.Status) error {
	s.states.Store(id.String(), status)
	return nil
}

// GetStatus retrieves the execution status of a specific node.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id nodeid.Address) (nodestore.Status, error) {
	status, ok := s.states.Load(id.String())
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutput stores h under id and releases whatever handle it replaces.
func (s *Store) SetOutput(ctx context.Context, id nodeid.Address, h *nodestore.Handle) error {
	key := id.String()
	// Delete first so the eviction callback releases the previous handle.
	if err := s.outputs.Delete(ctx, key); err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	s.outputs.Set(ctx, key, h, 0)
	return nil
}

// GetOutput retrieves a stored output. Reading refreshes its expiry.
func (s *Store) GetOutput(ctx context.Context, id nodeid.Address) (*nodestore.Handle, error) {
	var (
		h  *nodestore.Handle
		ok bool
	)
	if s.ttl > 0 {
		h, ok = s.outputs.GetWithRefresh(ctx, id.String(), s.ttl)
	} else {
		h, ok = s.outputs.Get(ctx, id.String())
	}
	if !ok || h.Freed() {
		return nil, nil // If not found, the output is nil.
	}
	return h, nil
}

// DeleteOutput drops and releases the output stored under id.
func (s *Store) DeleteOutput(ctx context.Context, id nodeid.Address) error {
	return s.outputs.Delete(ctx, id.String())
}

// SetError records the failure error of a node. A nil error clears it.
func (s *Store) SetError(ctx context.Context, id nodeid.Address, nodeErr error) error {
	if nodeErr == nil {
		s.errors.Delete(id.String())
		return nil
	}
	s.errors.Store(id.String(), nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed node.
func (s *Store) GetError(ctx context.Context, id nodeid.Address) (error, error) {
	err, ok := s.errors.Load(id.String())
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// Flush releases every output and clears status and errors.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.outputs.Flush(ctx); err != nil {
		return err
	}
	s.states.Clear()
	s.errors.Clear()
	return nil
}

// PurgeExpired releases outputs whose expiry has passed.
func (s *Store) PurgeExpired() {
	s.outputs.DeleteExpired()
}
