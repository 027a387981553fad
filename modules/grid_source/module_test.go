package grid_source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/testutil"
	"github.com/vk/streamgrid/modules/field"
	"github.com/zclconf/go-cty/cty"
)

func nums(v ...int64) cty.Value {
	out := make([]cty.Value, len(v))
	for i, n := range v {
		out[i] = cty.NumberIntVal(n)
	}
	return cty.ListVal(out)
}

func newSource(t *testing.T, args map[string]cty.Value) *pipeline.Pipeline {
	t.Helper()
	model := testutil.Model(t, testutil.Node(Kind, "src", nil, args))
	return testutil.BuildPipeline(t, model, []registry.Module{&Module{}})
}

func TestGridSource_Execute(t *testing.T) {
	// Arrange
	p := newSource(t, map[string]cty.Value{
		"whole_extent": nums(0, 9, 0, 0, 0, 0),
		"time_steps":   nums(0, 1, 2),
		"slope":        cty.NumberIntVal(2),
		"offset":       cty.NumberIntVal(1),
	})
	target := pipeline.Target{Node: "src", Request: pipeline.ExtentRequest(extent.New(3, 5, 0, 0, 0, 0)).AtTime(1.5)}

	// Act
	res, err := p.Update(context.Background(), target)

	// Assert
	require.NoError(t, err)
	f, ok := res.Output("src", 0).Data().(*field.Field)
	require.True(t, ok)
	assert.Equal(t, extent.New(3, 5, 0, 0, 0, 0), f.Extent)
	assert.True(t, f.HasTime)
	assert.Equal(t, 1.0, f.Time)
	assert.Equal(t, []float64{8, 10, 12}, f.Values)

	n, _ := p.Node("src")
	rng, ok := n.Output(0).Data().FloatVector(p.Keys().DataRange)
	require.True(t, ok)
	assert.Equal(t, []float64{8, 12}, rng)
	whole, ok := p.Keys().Whole(n.Output(0).Info())
	require.True(t, ok)
	assert.Equal(t, extent.New(0, 9, 0, 0, 0, 0), whole)
}

func TestGridSource_Pieces(t *testing.T) {
	p := newSource(t, map[string]cty.Value{"whole_extent": nums(0, 9, 0, 0, 0, 0)})

	res, err := p.Update(context.Background(), pipeline.Target{Node: "src", Request: pipeline.PieceRequest(1, 2, 0)})

	require.NoError(t, err)
	f := res.Output("src", 0).Data().(*field.Field)
	assert.Equal(t, extent.New(5, 9, 0, 0, 0, 0), f.Extent)
	assert.Equal(t, []float64{5, 6, 7, 8, 9}, f.Values)
	assert.False(t, f.HasTime)
}

func TestGridSource_BadExtent(t *testing.T) {
	p := newSource(t, map[string]cty.Value{"whole_extent": nums(0, 9)})

	_, err := p.Update(context.Background(), pipeline.Target{Node: "src"})

	assert.ErrorContains(t, err, "extent needs 6 bounds")
}
