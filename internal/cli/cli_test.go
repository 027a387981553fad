package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/testutil"
)

const definition = `
node "sequence" "numbers" {
  arguments {
    count = 3
  }
}

node "print" "show" {
  inputs = ["numbers.output[0]"]
}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	out := &testutil.SafeBuffer{}
	err := Execute(context.Background(), args, out)
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestExecute_Help(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"no arguments", nil, "Available Commands:"},
		{"help flag", []string{"-h"}, "Usage:"},
		{"command help", []string{"run", "--help"}, "--var stringArray"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)

			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag"}, "unknown flag: --this-is-not-a-valid-flag"},
		{"unknown command", []string{"launch"}, "unknown command"},
		{"missing path", []string{"run"}, "requires at least one PATH"},
		{"malformed variable", []string{"run", "--var", "radius", "x.hcl"}, `invalid --var "radius"`},
		{"invalid log level", []string{"run", "--log-level", "loud", "x.hcl"}, "invalid log.level"},
		{"too many history args", []string{"history", "a", "b"}, "accepts at most 1 arg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
			assert.Equal(t, ExitUsage, exitCode(t, err))
		})
	}
}

func TestExecute_Run(t *testing.T) {
	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": definition})

	// Act
	out, err := execute(t, "run", "--log-format", "json", dir)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "show: sequence items [0,3) of 3")
	assert.Contains(t, out, `"msg":"Pipeline definition loaded."`)
}

func TestExecute_RunFailureIsRuntimeError(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": `node "teleport" "t" {}`})

	_, err := execute(t, "run", dir)

	require.Error(t, err)
	assert.Equal(t, ExitRuntime, exitCode(t, err))
}

func TestExecute_Plan(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": definition})

	out, err := execute(t, "plan", "--log-level", "error", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "order:")
	assert.Contains(t, out, "show.output[0]")
}

func TestExecute_HistoryUsesJournalFlag(t *testing.T) {
	// Arrange
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": definition})
	journalPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, "run", "--journal", journalPath, dir)
	require.NoError(t, err)

	// Act
	out, err := execute(t, "history", "--journal", journalPath, "--log-level", "error")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
}

func TestExecute_Modules(t *testing.T) {
	out, err := execute(t, "modules", "--log-level", "error")

	require.NoError(t, err)
	for _, kind := range []string{"grid_source", "http_source", "print", "scale", "sequence", "smooth", "sort"} {
		assert.Contains(t, out, kind)
	}
	assert.Contains(t, out, "whole_extent*")
}

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables([]string{"radius=2", "expr=a=b", "empty="})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"radius": "2", "expr": "a=b", "empty": ""}, vars)
}
