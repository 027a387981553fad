package extent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeSteps_Select(t *testing.T) {
	steps := Discrete(2, 0, 1)
	assert.Equal(t, []float64{0, 1, 2}, steps.Values)
	assert.Equal(t, [2]float64{0, 2}, steps.Range)

	testCases := []struct {
		name string
		req  float64
		want float64
	}{
		{"exact match", 1, 1},
		{"between steps picks the earlier", 1.7, 1},
		{"after the last step", 9, 2},
		{"before the first step", -1, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, steps.Select(tc.req))
		})
	}

	t.Run("continuous passes through", func(t *testing.T) {
		assert.Equal(t, 1.7, ContinuousRange(0, 2).Select(1.7))
	})
	t.Run("empty passes through", func(t *testing.T) {
		assert.True(t, TimeSteps{}.IsEmpty())
		assert.Equal(t, 3.5, TimeSteps{}.Select(3.5))
	})
}
