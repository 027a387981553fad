package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
	"pgregory.net/rapid"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		name   string
		e      extent.Extent
		chunks int
		want   int
	}{
		{name: "empty", e: extent.Empty(), chunks: 4, want: 0},
		{name: "fewer points than chunks", e: extent.New(0, 2, 0, 0, 0, 0), chunks: 8, want: 3},
		{name: "zero chunks means one", e: extent.New(0, 9, 0, 0, 0, 0), chunks: 0, want: 1},
		{name: "even", e: extent.New(0, 99, 0, 9, 0, 0), chunks: 4, want: 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, Split(tc.e, tc.chunks), tc.want)
		})
	}
}

func TestSplit_Partitions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.IntRange(0, 40).Draw(rt, "x")
		y := rapid.IntRange(0, 40).Draw(rt, "y")
		e := extent.New(0, x, 0, y, 0, 0)
		chunks := rapid.IntRange(1, 16).Draw(rt, "chunks")

		total := 0
		parts := Split(e, chunks)
		for i, a := range parts {
			assert.True(rt, e.Contains(a))
			total += a.NumPoints()
			for _, b := range parts[i+1:] {
				assert.False(rt, a.Overlaps(b), "%s overlaps %s", a, b)
			}
		}
		assert.Equal(rt, e.NumPoints(), total)
	})
}

func TestForEachChunk(t *testing.T) {
	t.Run("visits every point once within the worker limit", func(t *testing.T) {
		e := extent.New(0, 999, 0, 0, 0, 0)
		var (
			mu      sync.Mutex
			seen    = make(map[int]int)
			running atomic.Int32
			peak    atomic.Int32
		)

		err := ForEachChunk(context.Background(), e, 16, 3, func(_ context.Context, _ int, sub extent.Extent) error {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			mu.Lock()
			defer mu.Unlock()
			for x := sub[0]; x <= sub[1]; x++ {
				seen[x]++
			}
			return nil
		})

		require.NoError(t, err)
		assert.Len(t, seen, 1000)
		for x, c := range seen {
			require.Equal(t, 1, c, "point %d", x)
		}
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("first error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		err := ForEachChunk(context.Background(), extent.New(0, 9, 0, 0, 0, 0), 10, 2, func(_ context.Context, i int, _ extent.Extent) error {
			if i == 3 {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("canceled context runs nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls atomic.Int32
		err := ForEachChunk(ctx, extent.New(0, 9, 0, 0, 0, 0), 4, 1, func(context.Context, int, extent.Extent) error {
			calls.Add(1)
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls.Load())
	})
}

func TestForEachRange(t *testing.T) {
	var sum atomic.Int64
	err := ForEachRange(context.Background(), 101, 7, 4, func(_ context.Context, start, end int) error {
		for i := start; i < end; i++ {
			sum.Add(int64(i))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5050), sum.Load())

	assert.NoError(t, ForEachRange(context.Background(), 0, 4, 4, nil))
}
