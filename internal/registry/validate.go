package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ValidateRegistry checks every registered algorithm for consistency: each
// default must conform to its argument's declared type.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.Kinds() {
		a := r.algorithms[kind]
		for _, name := range sortedKeys(a.Arguments) {
			def := a.Arguments[name]
			if def.Type == cty.NilType {
				errs = append(errs, fmt.Sprintf("algorithm '%s', argument '%s': no type declared", kind, name))
				continue
			}
			if def.Type.Equals(cty.DynamicPseudoType) {
				logger.Debug("Algorithm argument accepts any type.", "kind", kind, "argument", name)
			}
			if def.Default == nil {
				continue
			}
			if _, err := convert.Convert(*def.Default, def.Type); err != nil {
				errs = append(errs, fmt.Sprintf("algorithm '%s', argument '%s': default is not a %s: %v",
					kind, name, def.Type.FriendlyName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Bind checks user arguments against the algorithm's declarations and
// returns them converted to the declared types, with defaults filled in.
func (a *Algorithm) Bind(given map[string]cty.Value) (map[string]cty.Value, error) {
	var errs []string
	out := make(map[string]cty.Value, len(a.Arguments))

	for _, name := range sortedKeys(given) {
		if _, ok := a.Arguments[name]; !ok {
			errs = append(errs, fmt.Sprintf("unknown argument '%s'", name))
		}
	}

	for _, name := range sortedKeys(a.Arguments) {
		def := a.Arguments[name]
		val, ok := given[name]
		switch {
		case ok && !val.IsNull():
			conv, err := convert.Convert(val, def.Type)
			if err != nil {
				errs = append(errs, fmt.Sprintf("argument '%s': expected %s: %v", name, def.Type.FriendlyName(), err))
				continue
			}
			out[name] = conv
		case def.Default != nil:
			out[name] = *def.Default
		case def.Optional:
		default:
			errs = append(errs, fmt.Sprintf("missing required argument '%s'", name))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %s", a.Kind, strings.Join(errs, "; "))
	}
	return out, nil
}

// Validate checks that every node of the model names a registered kind and
// carries valid arguments.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	_, err := r.resolve(ctx, model)
	return err
}

type resolvedNode struct {
	node *config.Node
	alg  *Algorithm
	args map[string]cty.Value
}

func (r *Registry) resolve(ctx context.Context, model *config.Model) ([]resolvedNode, error) {
	var errs []string
	out := make([]resolvedNode, 0, len(model.Nodes))
	for _, n := range model.Nodes {
		alg, ok := r.Lookup(n.Kind)
		if !ok {
			errs = append(errs, fmt.Sprintf("node '%s' (%s): unknown kind '%s'", n.Name, n.Source, n.Kind))
			continue
		}
		args, err := alg.Bind(n.Arguments)
		if err != nil {
			errs = append(errs, fmt.Sprintf("node '%s' (%s): %v", n.Name, n.Source, err))
			continue
		}
		out = append(out, resolvedNode{node: n, alg: alg, args: args})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("pipeline validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	ctxlog.FromContext(ctx).Debug("Pipeline definition validated.", "nodes", len(out))
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
