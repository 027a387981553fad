// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for the
addresses used to name pipeline ports, based on the canonical format `path`.

The format is a dot-separated sequence of segments, e.g. `src.output[0]`.
A port address is a node name followed by a port segment: `output[i]` for
the i-th output or `input[i]` for the i-th input. A bare node name is
shorthand for `<node>.output[0]`.

This package enforces the identifier schema and centralizes all
formatting and parsing logic.
*/
package nodeid
