// internal/nodeid/port_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePort(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  Port
	}{
		{name: "bare node", raw: "src", expected: Port{Node: "src", Direction: DirOutput, Index: 0}},
		{name: "output without index", raw: "src.output", expected: Port{Node: "src", Direction: DirOutput, Index: 0}},
		{name: "indexed output", raw: "grid-source.output[2]", expected: Port{Node: "grid-source", Direction: DirOutput, Index: 2}},
		{name: "indexed input", raw: "blur.input[1]", expected: Port{Node: "blur", Direction: DirInput, Index: 1}},
		{name: "error - unknown port kind", raw: "src.result[0]", expectErr: true},
		{name: "error - index on node", raw: "src[0].output[0]", expectErr: true},
		{name: "error - too many segments", raw: "a.output[0].x", expectErr: true},
		{name: "error - empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			port, err := ParsePort(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, port)
		})
	}
}

func TestPort_RoundTrip(t *testing.T) {
	out := Port{Node: "src", Direction: DirOutput, Index: 3}
	assert.Equal(t, "src.output[3]", out.String())
	parsed, err := ParsePort(out.String())
	require.NoError(t, err)
	assert.Equal(t, out, parsed)

	assert.Equal(t, "blur.input[0]", Input("blur", 0).String())
	assert.True(t, Output("a", 1).Equal(Port{Node: "a", Direction: DirOutput, Index: 1}.Address()))
}
