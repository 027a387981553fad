package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
)

func TestField_Indexing(t *testing.T) {
	// Arrange
	e := extent.New(2, 4, 10, 11, 0, 1)
	f := New(e)

	// Act
	n := 0
	Each(e, func(i, j, k int) {
		assert.Equal(t, n, f.Index(i, j, k), "point (%d,%d,%d)", i, j, k)
		f.Set(i, j, k, float64(n))
		n++
	})

	// Assert
	assert.Equal(t, 12, f.Len())
	assert.Equal(t, 12, n)
	assert.Equal(t, 4.0, f.At(2, 11, 0))
	assert.True(t, f.Contains(4, 11, 1))
	assert.False(t, f.Contains(5, 11, 1))
}

func TestField_Crop(t *testing.T) {
	f := New(extent.New(0, 9, 0, 0, 0, 0))
	for i := range f.Values {
		f.Values[i] = float64(i * i)
	}
	f.Time, f.HasTime = 2, true

	sub, err := f.Crop(extent.New(3, 5, 0, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 16, 25}, sub.Values)
	assert.True(t, sub.HasTime)

	_, err = f.Crop(extent.New(8, 12, 0, 0, 0, 0))
	assert.Error(t, err)
}

func TestField_RangeAndSum(t *testing.T) {
	f := New(extent.New(0, 3, 0, 0, 0, 0))
	copy(f.Values, []float64{3, -1, 7, 2})

	lo, hi, ok := f.Range()
	require.True(t, ok)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)
	assert.Equal(t, 11.0, f.Sum())
	assert.Contains(t, f.String(), "range [-1, 7]")

	_, _, ok = New(extent.Empty()).Range()
	assert.False(t, ok)
}
