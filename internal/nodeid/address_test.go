// internal/nodeid/address_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	testCases := []struct {
		name string
		addr *Address
		want string
	}{
		{name: "node", addr: &Address{Path: []PathSegment{NewPathSegment("src")}}, want: "src"},
		{name: "output port", addr: Output("src", 0), want: "src.output[0]"},
		{name: "input port", addr: Input("blur", 3), want: "blur.input[3]"},
		{name: "nil address", addr: nil, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.addr.String())
		})
	}
}

func TestAddress_RoundTrip(t *testing.T) {
	for _, id := range []string{"src", "src.output", "edge-detect.output[12]", "blur.input[0]"} {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)

			again, err := Parse(addr.String())

			require.NoError(t, err)
			assert.Equal(t, id, addr.String())
			assert.True(t, addr.Equal(again))
		})
	}
}

func TestAddress_Equal(t *testing.T) {
	assert.True(t, Output("a", 0).Equal(Output("a", 0)))
	assert.False(t, Output("a", 0).Equal(Output("a", 1)))
	assert.False(t, Output("a", 0).Equal(Input("a", 0)))
	assert.False(t, Output("a", 0).Equal(nil))
	assert.False(t, (*Address)(nil).Equal(Output("a", 0)))
	assert.True(t, (*Address)(nil).Equal(nil))
}

func TestAddress_Node(t *testing.T) {
	assert.Equal(t, "blur", Input("blur", 1).Node())
	assert.Equal(t, "", (*Address)(nil).Node())
	assert.Equal(t, "", (&Address{}).Node())
}
