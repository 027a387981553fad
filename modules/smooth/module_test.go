package smooth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/nodeid"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/testutil"
	"github.com/vk/streamgrid/modules/field"
	"github.com/vk/streamgrid/modules/grid_source"
	"github.com/zclconf/go-cty/cty"
)

func build(t *testing.T, radius int64) *pipeline.Pipeline {
	t.Helper()
	whole := cty.ListVal([]cty.Value{
		cty.NumberIntVal(0), cty.NumberIntVal(9),
		cty.NumberIntVal(0), cty.NumberIntVal(0),
		cty.NumberIntVal(0), cty.NumberIntVal(0),
	})
	model := testutil.Model(t,
		testutil.Node(grid_source.Kind, "src", nil, map[string]cty.Value{"whole_extent": whole}),
		testutil.Node(Kind, "blur", []string{"src"}, map[string]cty.Value{"radius": cty.NumberIntVal(radius)}),
	)
	return testutil.BuildPipeline(t, model, []registry.Module{&grid_source.Module{}, &Module{}})
}

func TestSmooth_StencilWidensUpstreamRequest(t *testing.T) {
	// Arrange
	p := build(t, 1)
	target := pipeline.Target{Node: "blur", Request: pipeline.ExtentRequest(extent.New(0, 4, 0, 0, 0, 0))}

	// Act
	plan, err := p.Plan(context.Background(), target)
	require.NoError(t, err)
	res, err := p.Update(context.Background(), target)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, pipeline.ExtentRequest(extent.New(0, 5, 0, 0, 0, 0)), plan.Outputs[nodeid.Output("src", 0).String()])
	f := res.Output("blur", 0).Data().(*field.Field)
	assert.Equal(t, []float64{0.5, 1, 2, 3, 4}, f.Values)
}

func TestSmooth_RadiusZeroIsIdentity(t *testing.T) {
	p := build(t, 0)

	res, err := p.Update(context.Background(), pipeline.Target{Node: "blur", Request: pipeline.ExtentRequest(extent.New(7, 9, 0, 0, 0, 0))})

	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9}, res.Output("blur", 0).Data().(*field.Field).Values)
}

func TestSmooth_NegativeRadius(t *testing.T) {
	_, err := Spec(-1)
	assert.Error(t, err)
}
