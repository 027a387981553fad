package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// brokenModule declares a default that does not match its argument type.
type brokenModule struct{}

func (brokenModule) Register(r *registry.Registry) {
	word := cty.StringVal("three")
	r.Register(&registry.Algorithm{
		Kind: "broken",
		Arguments: map[string]registry.ArgumentDef{
			"count": {Type: cty.Number, Default: &word},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) { return pipeline.Spec{}, nil },
	})
}

func TestRun_PanicRecovery(t *testing.T) {
	// --- Arrange ---
	// A module whose declaration fails registry validation makes app
	// construction panic.
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`node "broken" "b" {}`), 0o600))
	t.Chdir(tempDir)
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{"run", filePath}, brokenModule{})

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "count")
}

func TestRun_ShouldExit(t *testing.T) {
	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when help is requested")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}
