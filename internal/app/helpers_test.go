package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/internal/testutil"
)

// SetupAppTest creates a new app instance logging at debug level into a
// buffer. The app is closed when the test ends.
func SetupAppTest(t *testing.T, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.Log.Level = "debug"
	testApp, err := NewApp(context.Background(), logBuffer, cfg, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, testApp.Close(context.Background()))
		if os.Getenv("STREAMGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}

const sequenceHCL = `
node "sequence" "numbers" {
  arguments {
    count  = 5
    stride = 2
  }
}

node "sort" "sorted" {
  inputs = ["numbers.output[0]"]
}

node "print" "show" {
  inputs = ["sorted.output[0]"]
  arguments {
    label = "sorted"
  }
}
`

const gridHCL = `
variable "radius" {
  type    = number
  default = 1
}

node "grid_source" "src" {
  arguments {
    whole_extent = [0, 9, 0, 0, 0, 0]
  }
}

node "smooth" "blur" {
  inputs = ["src.output[0]"]
  arguments {
    radius = var.radius
  }
}

update "blur" {
  extent = [2, 4, 0, 0, 0, 0]
}
`

// writeDefinition writes main.hcl into a fresh directory and returns its
// path.
func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": content})
	return filepath.Join(dir, "main.hcl")
}

// replaceFile swaps the file content with a rename so that a watcher never
// observes a half-written definition.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}
