package hcl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const sampleHCL = `
variable "radius" {
  type    = number
  default = 2
}

variable "label" {
  type = string
  default = "blurred"
}

node "grid_source" "src" {
  arguments {
    whole_extent = [0, 99, 0, 0, 0, 0]
  }
}

node "smooth" "blur" {
  inputs = ["src.output[0]"]
  arguments {
    radius = var.radius
    name   = "${var.label}-${var.radius}"
  }
}

update "blur" {
  extent = [10, 20, 0, 0, 0, 0]
  time   = 1.5
}

update "src" {
  piece  = 1
  pieces = 4
  ghost  = var.radius
}
`

func TestLoader_Load(t *testing.T) {
	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{"pipeline/main.hcl": sampleHCL})

	// Act
	model, err := NewLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	require.Len(t, model.Nodes, 2)
	require.Len(t, model.Updates, 2)

	blur, ok := model.Node("blur")
	require.True(t, ok)
	assert.Equal(t, "smooth", blur.Kind)
	assert.Equal(t, []string{"src.output[0]"}, blur.Inputs)
	assert.True(t, blur.Arguments["radius"].Equals(cty.NumberIntVal(2)).True())
	assert.Equal(t, "blurred-2", blur.Arguments["name"].AsString())

	ext := model.Updates[0]
	assert.Equal(t, "blur", ext.Node)
	assert.Equal(t, []int{10, 20, 0, 0, 0, 0}, ext.Extent)
	require.NotNil(t, ext.Time)
	assert.Equal(t, 1.5, *ext.Time)
	assert.Nil(t, ext.Piece)

	piece := model.Updates[1]
	require.NotNil(t, piece.Piece)
	assert.Equal(t, 1, piece.Piece.Index)
	assert.Equal(t, 4, piece.Piece.Count)
	assert.Equal(t, 2, piece.Piece.Ghost)

	v := model.Variables["radius"]
	require.NotNil(t, v)
	assert.Equal(t, cty.Number, v.Type)
}

func TestLoader_Variables(t *testing.T) {
	testCases := []struct {
		name      string
		hcl       string
		overrides map[string]string
		wantErr   string
		check     func(t *testing.T, args map[string]cty.Value)
	}{
		{
			name: "override number",
			hcl: `
variable "n" {
  type    = number
  default = 1
}
node "k" "a" {
  arguments { n = var.n }
}`,
			overrides: map[string]string{"n": "7"},
			check: func(t *testing.T, args map[string]cty.Value) {
				assert.True(t, args["n"].Equals(cty.NumberIntVal(7)).True())
			},
		},
		{
			name: "override list",
			hcl: `
variable "e" {
  type = list(number)
}
node "k" "a" {
  arguments { e = var.e }
}`,
			overrides: map[string]string{"e": "[1, 2]"},
			check: func(t *testing.T, args map[string]cty.Value) {
				assert.Equal(t, 2, args["e"].LengthInt())
			},
		},
		{
			name: "override string keeps raw text",
			hcl: `
variable "s" {
  type    = string
  default = "x"
}
node "k" "a" {
  arguments { s = var.s }
}`,
			overrides: map[string]string{"s": "[not a list]"},
			check: func(t *testing.T, args map[string]cty.Value) {
				assert.Equal(t, "[not a list]", args["s"].AsString())
			},
		},
		{
			name: "missing value",
			hcl: `
variable "n" {
  type = number
}
node "k" "a" {}`,
			wantErr: `variable "n" has no default`,
		},
		{
			name:      "undeclared override",
			hcl:       `node "k" "a" {}`,
			overrides: map[string]string{"zzz": "1"},
			wantErr:   `undeclared variable "zzz"`,
		},
		{
			name: "override of wrong type",
			hcl: `
variable "n" {
  type = number
}
node "k" "a" {}`,
			overrides: map[string]string{"n": "true"},
			wantErr:   "is not a valid number",
		},
		{
			name: "default of wrong type",
			hcl: `
variable "n" {
  type    = number
  default = "abc"
}
node "k" "a" {}`,
			wantErr: "does not match type number",
		},
		{
			name: "unknown type keyword",
			hcl: `
variable "n" {
  type = decimal
}
node "k" "a" {}`,
			wantErr: `unknown type "decimal"`,
		},
		{
			name: "undeclared reference",
			hcl: `
node "k" "a" {
  arguments { n = var.nope }
}`,
			wantErr: `argument "n"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, map[string]string{"main.hcl": tc.hcl})

			model, err := NewLoader(WithVariables(tc.overrides)).Load(context.Background(), dir)

			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			n, ok := model.Node("a")
			require.True(t, ok)
			tc.check(t, n.Arguments)
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"main.hcl": "node \"k\" \"a\" {\n  arguments {\n"},
			wantErr: "failed to parse",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"main.hcl": `step "k" "a" {}`},
			wantErr: "failed to decode",
		},
		{
			name: "duplicate node across files",
			files: map[string]string{
				"a.hcl": `node "k" "a" {}`,
				"b.hcl": `node "k" "a" {}`,
			},
			wantErr: `node "a" declared twice`,
		},
		{
			name: "duplicate variable",
			files: map[string]string{
				"a.hcl": `variable "v" { default = 1 }`,
				"b.hcl": `variable "v" { default = 2 }`,
			},
			wantErr: `variable "v" declared twice`,
		},
		{
			name:    "bad update attribute",
			files:   map[string]string{"main.hcl": "node \"k\" \"a\" {}\nupdate \"a\" {\n  pieces = \"many\"\n}"},
			wantErr: `update "a"`,
		},
		{
			name:    "no files",
			files:   map[string]string{"readme.txt": "hi"},
			wantErr: "no .hcl files",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, tc.files)
			_, err := NewLoader().Load(context.Background(), dir)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoader_CrossFileVariables(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"b_nodes.hcl": `node "k" "a" {
  arguments { n = var.n }
}`,
		"a_vars.hcl": `variable "n" { default = 3 }`,
	})

	model, err := NewLoader().Load(context.Background(), dir, filepath.Join(dir, "a_vars.hcl"), filepath.Join(dir, "missing"))

	require.NoError(t, err)
	require.Len(t, model.Nodes, 1)
	assert.True(t, model.Nodes[0].Arguments["n"].Equals(cty.NumberIntVal(3)).True())
}

func TestLoader_EnvironmentVariables(t *testing.T) {
	const definition = `
variable "n" {
  type    = number
  default = 1
}

node "k" "a" {
  arguments { n = var.n }
}`

	testCases := []struct {
		name      string
		environ   []string
		overrides map[string]string
		want      int64
		wantErr   string
	}{
		{name: "default", environ: []string{"HOME=/root"}, want: 1},
		{name: "environment", environ: []string{"STREAMGRID_VAR_n=4"}, want: 4},
		{name: "override wins", environ: []string{"STREAMGRID_VAR_n=4"}, overrides: map[string]string{"n": "9"}, want: 9},
		{name: "undeclared ignored", environ: []string{"STREAMGRID_VAR_other=x"}, want: 1},
		{name: "bad value", environ: []string{"STREAMGRID_VAR_n=many"}, wantErr: `variable "n" from environment`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, map[string]string{"main.hcl": definition})

			model, err := NewLoader(WithEnvironment(tc.environ), WithVariables(tc.overrides)).Load(context.Background(), dir)

			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, model.Nodes[0].Arguments["n"].Equals(cty.NumberIntVal(tc.want)).True())
		})
	}
}

func TestEnvironmentVariables(t *testing.T) {
	got := environmentVariables([]string{
		"STREAMGRID_VAR_radius=3",
		"STREAMGRID_VAR_expr=a=b",
		"STREAMGRID_VAR_=ignored",
		"STREAMGRID_LOG_LEVEL=debug",
		"malformed",
	})

	assert.Equal(t, map[string]string{"radius": "3", "expr": "a=b"}, got)
}
