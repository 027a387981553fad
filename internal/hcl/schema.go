package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a definition file may hold.
type fileRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Nodes     []*nodeBlock     `hcl:"node,block"`
	Updates   []*updateBlock   `hcl:"update,block"`
}

// variableBlock is a `variable "name" {}` declaration.
type variableBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

// nodeBlock is a `node "kind" "name" {}` declaration.
type nodeBlock struct {
	Kind      string          `hcl:"kind,label"`
	Name      string          `hcl:"name,label"`
	Inputs    []string        `hcl:"inputs,optional"`
	Arguments *argumentsBlock `hcl:"arguments,block"`
}

// argumentsBlock holds free-form attributes, evaluated once variables are
// known.
type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// updateBlock is an `update "node" {}` target. Its attributes may use
// variables, so the body is decoded in a second step.
type updateBlock struct {
	Node string   `hcl:"node,label"`
	Body hcl.Body `hcl:",remain"`
}

// updateAttrs are the attributes of an update block.
type updateAttrs struct {
	Port   *int     `hcl:"port,optional"`
	Extent []int    `hcl:"extent,optional"`
	Piece  *int     `hcl:"piece,optional"`
	Pieces *int     `hcl:"pieces,optional"`
	Ghost  *int     `hcl:"ghost,optional"`
	Time   *float64 `hcl:"time,optional"`
}
