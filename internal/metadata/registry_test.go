package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	t.Run("identical definition returns the same key", func(t *testing.T) {
		r := NewRegistry()
		a, err := r.Register("executive", "WHOLE_EXTENT", KindIntVector, WithLength(6), TracksModification())
		require.NoError(t, err)
		b, err := r.Register("executive", "WHOLE_EXTENT", KindIntVector, WithLength(6), TracksModification())
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, "executive::WHOLE_EXTENT", a.String())
		assert.True(t, a.Tracked())
		assert.Equal(t, 6, a.Length())
	})

	t.Run("conflicting definition is rejected", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register("executive", "UPDATE_PIECE", KindInt)
		require.NoError(t, err)
		_, err = r.Register("executive", "UPDATE_PIECE", KindFloat)
		assert.ErrorIs(t, err, ErrKeyConflict)
	})

	t.Run("same name in different scopes are distinct keys", func(t *testing.T) {
		r := NewRegistry()
		a := r.MustRegister("a", "X", KindInt)
		b := r.MustRegister("b", "X", KindString)
		assert.NotSame(t, a, b)
		assert.Len(t, r.Keys(), 2)
	})

	t.Run("invalid definitions", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register("s", "", KindInt)
		assert.ErrorContains(t, err, "empty name")
		_, err = r.Register("s", "n", KindInt, WithLength(3))
		assert.ErrorContains(t, err, "vector kinds")
		_, err = r.Register("s", "n", Kind(99))
		assert.ErrorContains(t, err, "unknown kind")
	})

	t.Run("MustRegister panics on conflict", func(t *testing.T) {
		r := NewRegistry()
		r.MustRegister("s", "n", KindInt)
		assert.Panics(t, func() { r.MustRegister("s", "n", KindString) })
	})

	t.Run("registries are independent", func(t *testing.T) {
		r1, r2 := NewRegistry(), NewRegistry()
		r1.MustRegister("s", "n", KindInt)
		_, ok := r2.Lookup("s", "n")
		assert.False(t, ok)
		_, err := r2.Register("s", "n", KindString)
		assert.NoError(t, err)
	})
}
