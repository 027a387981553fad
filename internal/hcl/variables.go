package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/streamgrid/internal/config"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateVariable parses a variable block's type and default.
func translateVariable(ctx context.Context, v *variableBlock) (*config.Variable, error) {
	typ, err := typeExprToCtyType(ctx, v.Type)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	out := &config.Variable{Name: v.Name, Type: typ, Description: v.Description}
	if isExprDefined(v.Default) {
		val, diags := v.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("variable %q default: %w", v.Name, diags)
		}
		if !val.IsNull() {
			val, err = convert.Convert(val, typ)
			if err != nil {
				return nil, fmt.Errorf("variable %q default does not match type %s: %w", v.Name, typ.FriendlyName(), err)
			}
			out.Default = &val
		}
	}
	return out, nil
}

// resolveVariables assigns every variable its value, preferring overrides,
// then environment values, then defaults, and builds the evaluation context
// exposing them as `var`. Environment values for undeclared variables are
// ignored.
func resolveVariables(ctx context.Context, vars map[string]*config.Variable, overrides, environment map[string]string) (*hcl.EvalContext, error) {
	for name := range overrides {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("value given for undeclared variable %q", name)
		}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]cty.Value, len(vars))
	for _, name := range names {
		v := vars[name]
		raw, ok := overrides[name]
		source := "override"
		if !ok {
			raw, ok = environment[name]
			source = "environment"
		}
		switch {
		case ok:
			val, err := parseOverride(raw, v.Type)
			if err != nil {
				return nil, fmt.Errorf("variable %q from %s: %w", name, source, err)
			}
			v.Value = val
			ctxlog.FromContext(ctx).Debug("Variable overridden.", "name", name, "source", source)
		case v.Default != nil:
			v.Value = *v.Default
		default:
			return nil, fmt.Errorf("variable %q has no default and no value was given", name)
		}
		values[name] = v.Value
	}

	varObj := cty.EmptyObjectVal
	if len(values) > 0 {
		varObj = cty.ObjectVal(values)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"var": varObj}}, nil
}

// parseOverride turns a command line value into the variable's type.
// String variables take the raw text; anything else is read as an HCL
// expression, so `[1, 2]` or `true` work.
func parseOverride(raw string, typ cty.Type) (cty.Value, error) {
	if typ == cty.String {
		return cty.StringVal(raw), nil
	}
	expr, diags := hclsyntax.ParseExpression([]byte(raw), "<override>", hcl.InitialPos)
	if diags.HasErrors() {
		if typ == cty.DynamicPseudoType {
			return cty.StringVal(raw), nil
		}
		return cty.NilVal, fmt.Errorf("cannot parse %q: %w", raw, diags)
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("cannot evaluate %q: %w", raw, diags)
	}
	val, err := convert.Convert(val, typ)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%q is not a valid %s: %w", raw, typ.FriendlyName(), err)
	}
	return val, nil
}
