package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/nodestore"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr, err := nodeid.Parse("blur")
	require.NoError(t, err)

	// Get status of a node that doesn't exist yet
	status, err := s.GetStatus(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, nodestore.StatusPending, status)

	// Set status
	err = s.SetStatus(ctx, *addr, nodestore.StatusRunning)
	require.NoError(t, err)

	// Get status again
	status, err = s.GetStatus(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, nodestore.StatusRunning, status)
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.Output("src", 0)

	// Get output for a node that doesn't exist yet should be nil
	output, err := s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Nil(t, output)

	h := nodestore.NewHandle(addr.String(), []float64{1, 2}, nil)
	require.NoError(t, s.SetOutput(ctx, *addr, h))

	retrieved, err := s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Same(t, h, retrieved)
	assert.Equal(t, []float64{1, 2}, retrieved.Data())
}

func TestSetOutput_ReleasesReplacedHandle(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.Output("src", 0)

	var released []string
	release := func(d any) { released = append(released, d.(string)) }
	first := nodestore.NewHandle(addr.String(), "first", release)
	second := nodestore.NewHandle(addr.String(), "second", release)

	require.NoError(t, s.SetOutput(ctx, *addr, first))
	require.NoError(t, s.SetOutput(ctx, *addr, second))
	assert.Equal(t, []string{"first"}, released)
	assert.True(t, first.Freed())

	// A consumer still holding the handle keeps it alive past deletion.
	require.True(t, second.Retain())
	require.NoError(t, s.DeleteOutput(ctx, *addr))
	assert.Equal(t, []string{"first"}, released)
	assert.Equal(t, "second", second.Data())

	second.Release()
	assert.Equal(t, []string{"first", "second"}, released)

	got, err := s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOutputExpiry(t *testing.T) {
	s := New(WithOutputTTL(time.Millisecond), WithCleanupInterval(time.Hour))
	ctx := context.Background()
	addr := nodeid.Output("src", 0)

	released := false
	h := nodestore.NewHandle(addr.String(), "data", func(any) { released = true })
	require.NoError(t, s.SetOutput(ctx, *addr, h))

	time.Sleep(5 * time.Millisecond)
	got, err := s.GetOutput(ctx, *addr)
	require.NoError(t, err)
	assert.Nil(t, got)

	s.PurgeExpired()
	assert.True(t, released)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr, err := nodeid.Parse("blur")
	require.NoError(t, err)

	nodeErr, err := s.GetError(ctx, *addr)
	require.NoError(t, err)
	assert.NoError(t, nodeErr)

	expectedErr := errors.New("compute failed")
	require.NoError(t, s.SetError(ctx, *addr, expectedErr))

	nodeErr, err = s.GetError(ctx, *addr)
	require.NoError(t, err)
	assert.Equal(t, expectedErr, nodeErr)

	require.NoError(t, s.SetError(ctx, *addr, nil))
	nodeErr, err = s.GetError(ctx, *addr)
	require.NoError(t, err)
	assert.NoError(t, nodeErr)
}

func TestFlush(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.Output("src", 0)
	node, _ := nodeid.Parse("src")

	h := nodestore.NewHandle(addr.String(), "data", nil)
	require.NoError(t, s.SetOutput(ctx, *addr, h))
	require.NoError(t, s.SetStatus(ctx, *node, nodestore.StatusCompleted))

	require.NoError(t, s.Flush(ctx))
	assert.True(t, h.Freed())
	status, _ := s.GetStatus(ctx, *node)
	assert.Equal(t, nodestore.StatusPending, status)
}

func TestConcurrency(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			addr := nodeid.Output(fmt.Sprintf("node%d", i), 0)
			node, _ := nodeid.Parse(fmt.Sprintf("node%d", i))

			_ = s.SetStatus(ctx, *node, nodestore.StatusCompleted)
			_ = s.SetOutput(ctx, *addr, nodestore.NewHandle(addr.String(), i, nil))

			status, _ := s.GetStatus(ctx, *node)
			assert.Equal(t, nodestore.StatusCompleted, status)
			h, _ := s.GetOutput(ctx, *addr)
			if assert.NotNil(t, h) {
				assert.Equal(t, i, h.Data())
			}
		}(i)
	}

	wg.Wait()
}
