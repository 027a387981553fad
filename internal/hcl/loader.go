package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	overrides   map[string]string
	environment map[string]string
}

// Option configures a Loader.
type Option func(*Loader)

// WithVariables sets variable values, overriding declared defaults.
func WithVariables(values map[string]string) Option {
	return func(l *Loader) {
		for k, v := range values {
			l.overrides[k] = v
		}
	}
}

// WithEnvironment takes variable values from `STREAMGRID_VAR_<name>` entries
// of environ, formatted like os.Environ. They rank below WithVariables.
func WithEnvironment(environ []string) Option {
	return func(l *Loader) {
		l.environment = environmentVariables(environ)
	}
}

// NewLoader creates a new HCL definition loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{overrides: make(map[string]string)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ config.Loader = (*Loader)(nil)

type parsedFile struct {
	path string
	root fileRoot
}

// Load parses every .hcl file under the given paths. Variables from all
// files are resolved first so any file may refer to any variable.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	model := config.NewModel()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		pf := parsedFile{path: file}
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &pf.root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, vb := range pf.root.Variables {
			if _, dup := model.Variables[vb.Name]; dup {
				return nil, fmt.Errorf("%s: variable %q declared twice", file, vb.Name)
			}
			v, err := translateVariable(ctx, vb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Variables[vb.Name] = v
		}
		parsed = append(parsed, pf)
	}

	evalCtx, err := resolveVariables(ctx, model.Variables, l.overrides, l.environment)
	if err != nil {
		return nil, err
	}

	for _, pf := range parsed {
		for _, nb := range pf.root.Nodes {
			n, err := translateNode(pf.path, nb, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pf.path, err)
			}
			model.Nodes = append(model.Nodes, n)
		}
		for _, ub := range pf.root.Updates {
			u, err := translateUpdate(ub, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pf.path, err)
			}
			model.Updates = append(model.Updates, u)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "variables", len(model.Variables), "nodes", len(model.Nodes), "updates", len(model.Updates))
	return model, nil
}

// findAllHCLFiles expands directories and returns the .hcl files in a
// stable order. Missing paths are skipped.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}
