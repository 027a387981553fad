package stamp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, Stamp(0), c.Current())

	a := c.Next()
	b := c.Next()
	assert.True(t, b.After(a))
	assert.Equal(t, b, c.Current())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const n = 200

	var mu sync.Mutex
	seen := make(map[Stamp]struct{}, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s := c.Next()
			mu.Lock()
			seen[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	assert.Equal(t, Stamp(n), c.Current())
}

func TestTracker(t *testing.T) {
	c := NewClock()
	tr := NewTracker(c)
	first := tr.MTime()
	assert.False(t, first.IsZero(), "new trackers start modified")

	other := c.Next()
	assert.True(t, other.After(first))

	second := tr.Modified()
	assert.True(t, second.After(other))
	assert.Equal(t, second, tr.MTime())
}

func TestMax(t *testing.T) {
	assert.Equal(t, Stamp(0), Max())
	assert.Equal(t, Stamp(9), Max(3, 9, 1))
}
