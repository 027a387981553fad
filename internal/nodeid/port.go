// internal/nodeid/port.go
package nodeid

import "fmt"

// Output returns the address of a node's output port.
func Output(node string, index int) *Address {
	return &Address{Path: []PathSegment{
		NewPathSegment(node),
		NewPathSegmentWithIndex(string(DirOutput), index),
	}}
}

// Input returns the address of a node's input port.
func Input(node string, index int) *Address {
	return &Address{Path: []PathSegment{
		NewPathSegment(node),
		NewPathSegmentWithIndex(string(DirInput), index),
	}}
}

// Address converts the port back to its canonical address.
func (p Port) Address() *Address {
	if p.Direction == DirInput {
		return Input(p.Node, p.Index)
	}
	return Output(p.Node, p.Index)
}

func (p Port) String() string {
	return p.Address().String()
}

// ParsePort resolves a port reference such as `src`, `src.output` or
// `src.output[1]`. Missing direction or index default to output 0.
func ParsePort(raw string) (Port, error) {
	addr, err := Parse(raw)
	if err != nil {
		return Port{}, err
	}
	return addr.Port()
}

// Port interprets the address as a port reference.
func (a *Address) Port() (Port, error) {
	if a == nil || len(a.Path) == 0 {
		return Port{}, fmt.Errorf("empty port address")
	}
	node := a.Path[0]
	if node.HasIndex() {
		return Port{}, fmt.Errorf("node segment %q cannot carry an index", a.String())
	}
	switch len(a.Path) {
	case 1:
		return Port{Node: node.Name, Direction: DirOutput}, nil
	case 2:
		seg := a.Path[1]
		dir := Direction(seg.Name)
		if dir != DirOutput && dir != DirInput {
			return Port{}, fmt.Errorf("unknown port kind %q in %q, want %q or %q", seg.Name, a.String(), DirOutput, DirInput)
		}
		index := 0
		if seg.HasIndex() {
			index = seg.Index
		}
		return Port{Node: node.Name, Direction: dir, Index: index}, nil
	default:
		return Port{}, fmt.Errorf("port address %q has too many segments", a.String())
	}
}
