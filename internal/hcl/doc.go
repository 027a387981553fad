// Package hcl loads pipeline definitions written in HCL into a
// `config.Model`.
//
// A definition is a set of `.hcl` files holding three kinds of blocks:
//
//	variable "radius" {
//	  type    = number
//	  default = 2
//	}
//
//	node "grid_source" "src" {
//	  arguments {
//	    whole_extent = [0, 99, 0, 0, 0, 0]
//	  }
//	}
//
//	node "smooth" "blur" {
//	  inputs = ["src.output[0]"]
//	  arguments {
//	    radius = var.radius
//	  }
//	}
//
//	update "blur" {
//	  extent = [10, 20, 0, 0, 0, 0]
//	}
//
// Node arguments and update attributes may refer to variables through
// `var.<name>`. Argument values are left as cty values; type checking
// against an algorithm's declared arguments belongs to the registry.
package hcl
