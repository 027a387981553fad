package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	// Arrange
	root := t.TempDir()
	writeTree(t, root, "a.hcl", "sub/b.hcl", "sub/c.txt", ".git/d.hcl", "sub/.e.hcl")

	// Act
	files, err := FindFilesByExtension(root, ".hcl")

	// Assert
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "sub", "b.hcl"),
	}, files)
}

func writeTree(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
}

func TestFindFilesByExtension_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, ".hidden.hcl")
	path := filepath.Join(root, ".hidden.hcl")

	files, err := FindFilesByExtension(path, ".hcl")

	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestVisibleDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/b/x.hcl", ".cache/y.hcl", "c/.d/z.hcl")

	dirs, err := VisibleDirs(root)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
		filepath.Join(root, "c"),
	}, dirs)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
