// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Node declares a node for a test model.
func Node(kind, name string, inputs []string, args map[string]cty.Value) *config.Node {
	if args == nil {
		args = map[string]cty.Value{}
	}
	return &config.Node{Kind: kind, Name: name, Inputs: inputs, Arguments: args, Source: "test"}
}

// Model assembles a validated model from nodes.
func Model(t *testing.T, nodes ...*config.Node) *config.Model {
	t.Helper()
	m := config.NewModel()
	m.Nodes = nodes
	require.NoError(t, m.Validate())
	return m
}

// BuildPipeline registers the modules and builds a pipeline from the model.
func BuildPipeline(t *testing.T, model *config.Model, modules []registry.Module, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	r := registry.New()
	r.RegisterModules(modules...)
	require.NoError(t, r.ValidateRegistry(context.Background()))
	p := pipeline.New(opts...)
	require.NoError(t, r.Build(context.Background(), model, p))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

// WriteFiles writes files, keyed by relative path, under a fresh temporary
// directory and returns the directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}
