package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/streamgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// translateNode evaluates a node block's arguments.
func translateNode(file string, n *nodeBlock, evalCtx *hcl.EvalContext) (*config.Node, error) {
	out := &config.Node{
		Kind:      n.Kind,
		Name:      n.Name,
		Inputs:    n.Inputs,
		Arguments: make(map[string]cty.Value),
		Source:    file,
	}
	if n.Arguments == nil || n.Arguments.Body == nil {
		return out, nil
	}
	attrs, diags := n.Arguments.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("node %q arguments: %w", n.Name, diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %q argument %q: %w", n.Name, name, diags)
		}
		out.Arguments[name] = val
	}
	return out, nil
}

// translateUpdate decodes an update block against the variable context.
func translateUpdate(u *updateBlock, evalCtx *hcl.EvalContext) (*config.Update, error) {
	var attrs updateAttrs
	if diags := gohcl.DecodeBody(u.Body, evalCtx, &attrs); diags.HasErrors() {
		return nil, fmt.Errorf("update %q: %w", u.Node, diags)
	}

	out := &config.Update{Node: u.Node, Extent: attrs.Extent, Time: attrs.Time}
	if attrs.Port != nil {
		out.Port = *attrs.Port
	}
	if attrs.Piece != nil || attrs.Pieces != nil || attrs.Ghost != nil {
		p := &config.Piece{Count: 1}
		if attrs.Piece != nil {
			p.Index = *attrs.Piece
		}
		if attrs.Pieces != nil {
			p.Count = *attrs.Pieces
		}
		if attrs.Ghost != nil {
			p.Ghost = *attrs.Ghost
		}
		out.Piece = p
	}
	return out, nil
}
