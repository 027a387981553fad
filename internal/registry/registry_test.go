package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
)

func ptr(v cty.Value) *cty.Value { return &v }

// testModule registers a constant source and an adder, counting executions.
type testModule struct {
	execs map[string]int
}

func (m *testModule) Register(r *Registry) {
	r.Register(&Algorithm{
		Kind: "const",
		Arguments: map[string]ArgumentDef{
			"value": {Type: cty.Number, Default: ptr(cty.NumberIntVal(1))},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return pipeline.Spec{
				Outputs: []pipeline.PortSpec{{Name: "out"}},
				Handlers: pipeline.Handlers{Execute: func(_ context.Context, req *pipeline.ExecuteRequest) error {
					m.execs[req.Node.Name()]++
					return req.SetOutput(0, req.Params.Float("value", 0))
				}},
			}, nil
		},
	})
	r.Register(&Algorithm{
		Kind: "add",
		Arguments: map[string]ArgumentDef{
			"bias": {Type: cty.Number, Optional: true},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return pipeline.Spec{
				Inputs:  []pipeline.PortSpec{{Name: "a"}, {Name: "b", Optional: true}},
				Outputs: []pipeline.PortSpec{{Name: "sum"}},
				Capabilities: pipeline.Capabilities{HeterogeneousInputs: true},
				Handlers: pipeline.Handlers{Execute: func(_ context.Context, req *pipeline.ExecuteRequest) error {
					m.execs[req.Node.Name()]++
					sum := req.Params.Float("bias", 0)
					for i := 0; i < req.NumInputs(); i++ {
						if v, ok := req.Input(i).Data.(float64); ok {
							sum += v
						}
					}
					return req.SetOutput(0, sum)
				}},
			}, nil
		},
	})
}

func newTestRegistry() (*Registry, *testModule) {
	m := &testModule{execs: make(map[string]int)}
	r := New()
	r.RegisterModules(m)
	return r, m
}

func TestRegistry_Register(t *testing.T) {
	r, _ := newTestRegistry()
	assert.Equal(t, []string{"add", "const"}, r.Kinds())

	_, ok := r.Lookup("const")
	assert.True(t, ok)

	assert.Panics(t, func() { r.Register(&Algorithm{Kind: "const", New: func(map[string]cty.Value) (pipeline.Spec, error) { return pipeline.Spec{}, nil }}) })
	assert.Panics(t, func() { r.Register(&Algorithm{Kind: "nil"}) })
	assert.Panics(t, func() { r.Register(&Algorithm{}) })
}

func TestRegistry_ValidateRegistry(t *testing.T) {
	r, _ := newTestRegistry()
	require.NoError(t, r.ValidateRegistry(context.Background()))

	r.Register(&Algorithm{
		Kind: "broken",
		Arguments: map[string]ArgumentDef{
			"n":       {Type: cty.Number, Default: ptr(cty.StringVal("many"))},
			"untyped": {},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) { return pipeline.Spec{}, nil },
	})
	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 'n': default is not a number")
	assert.Contains(t, err.Error(), "argument 'untyped': no type declared")
}

func TestAlgorithm_Bind(t *testing.T) {
	alg := &Algorithm{
		Kind: "k",
		Arguments: map[string]ArgumentDef{
			"width":  {Type: cty.Number},
			"mode":   {Type: cty.String, Default: ptr(cty.StringVal("box"))},
			"extent": {Type: cty.List(cty.Number), Optional: true},
		},
	}

	testCases := []struct {
		name    string
		given   map[string]cty.Value
		want    map[string]cty.Value
		wantErr string
	}{
		{
			name:  "defaults applied and optional omitted",
			given: map[string]cty.Value{"width": cty.NumberIntVal(2)},
			want:  map[string]cty.Value{"width": cty.NumberIntVal(2), "mode": cty.StringVal("box")},
		},
		{
			name:  "converted to declared type",
			given: map[string]cty.Value{"width": cty.StringVal("3"), "extent": cty.TupleVal([]cty.Value{cty.NumberIntVal(1)})},
			want: map[string]cty.Value{
				"width":  cty.NumberIntVal(3),
				"mode":   cty.StringVal("box"),
				"extent": cty.ListVal([]cty.Value{cty.NumberIntVal(1)}),
			},
		},
		{
			name:    "missing required",
			given:   map[string]cty.Value{},
			wantErr: "missing required argument 'width'",
		},
		{
			name:    "unknown argument",
			given:   map[string]cty.Value{"width": cty.NumberIntVal(1), "colour": cty.StringVal("red")},
			wantErr: "unknown argument 'colour'",
		},
		{
			name:    "wrong type",
			given:   map[string]cty.Value{"width": cty.StringVal("wide")},
			wantErr: "argument 'width': expected number",
		},
		{
			name:    "null counts as missing",
			given:   map[string]cty.Value{"width": cty.NullVal(cty.Number)},
			wantErr: "missing required argument 'width'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := alg.Bind(tc.given)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for k, v := range tc.want {
				assert.True(t, got[k].Equals(v).True(), "argument %s: got %#v", k, got[k])
			}
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	r, _ := newTestRegistry()
	model := config.NewModel()
	model.Nodes = []*config.Node{
		{Kind: "const", Name: "a", Source: "main.hcl"},
		{Kind: "mystery", Name: "b", Source: "main.hcl"},
		{Kind: "const", Name: "c", Source: "main.hcl", Arguments: map[string]cty.Value{"value": cty.True}},
	}

	err := r.Validate(context.Background(), model)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "node 'b' (main.hcl): unknown kind 'mystery'")
	assert.Contains(t, err.Error(), "node 'c' (main.hcl)")
	assert.NotContains(t, err.Error(), "node 'a'")
}

func TestTargets(t *testing.T) {
	one := 1.0
	model := config.NewModel()
	model.Updates = []*config.Update{
		{Node: "a"},
		{Node: "b", Port: 1, Extent: []int{0, 9, 0, 0, 0, 0}, Time: &one},
		{Node: "c", Piece: &config.Piece{Index: 1, Count: 4, Ghost: 2}},
	}

	targets, err := Targets(model)

	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, pipeline.Target{Node: "a", Request: pipeline.WholeRequest()}, targets[0])
	assert.Equal(t, pipeline.Target{Node: "b", Port: 1, Request: pipeline.ExtentRequest(extent.New(0, 9, 0, 0, 0, 0)).AtTime(1)}, targets[1])
	assert.Equal(t, pipeline.PieceRequest(1, 4, 2), targets[2].Request)

	t.Run("invalid piece", func(t *testing.T) {
		model.Updates = []*config.Update{{Node: "a", Piece: &config.Piece{Index: 4, Count: 4}}}
		_, err := Targets(model)
		assert.ErrorIs(t, err, pipeline.ErrInvalidRequest)
	})
}
