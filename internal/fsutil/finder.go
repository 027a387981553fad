// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// isHidden reports names such as ".git" or an editor's ".main.hcl.swp".
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// walkVisible walks rootPath without entering hidden directories other than
// rootPath itself and without reporting hidden files.
func walkVisible(rootPath string, fn func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path, d)
	})
}

// FindFilesByExtension recursively collects the visible files under
// rootPath whose name ends with extension.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := walkVisible(rootPath, func(path string, d fs.DirEntry) error {
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// VisibleDirs lists rootPath and every directory below it that
// FindFilesByExtension would search.
func VisibleDirs(rootPath string) ([]string, error) {
	var dirs []string
	err := walkVisible(rootPath, func(path string, d fs.DirEntry) error {
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
