package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts a type expression such as `number` or
// `list(string)` into a cty.Type. A missing expression means `any`.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	if expr == nil || !isExprDefined(expr) {
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("%s: a type keyword is a single identifier", v.SrcRange)
		}
		return primitiveType(v.Traversal.RootName())

	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("%s: %s() takes exactly one element type, got %d", v.NameRange, v.Name, len(v.Args))
		}
		elem, err := typeExprToCtyType(ctx, v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		if elem == cty.DynamicPseudoType {
			return cty.NilType, fmt.Errorf("%s: %s(any) is not a usable type", v.NameRange, v.Name)
		}
		ctxlog.FromContext(ctx).Debug("Parsed collection type.", "constructor", v.Name, "element", elem.FriendlyName())
		switch v.Name {
		case "list":
			return cty.List(elem), nil
		case "set":
			return cty.Set(elem), nil
		case "map":
			return cty.Map(elem), nil
		}
		return cty.NilType, fmt.Errorf("%s: unknown type constructor %q", v.NameRange, v.Name)
	}

	return cty.NilType, fmt.Errorf("%s: unsupported type expression %T", expr.Range(), expr)
}

func primitiveType(keyword string) (cty.Type, error) {
	switch keyword {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "any":
		return cty.DynamicPseudoType, nil
	}
	return cty.NilType, fmt.Errorf("unknown type %q", keyword)
}

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted expression fields with a zero-width
// placeholder instead of nil.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
