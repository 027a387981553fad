// internal/nodeid/address.go
package nodeid

import (
	"slices"
	"strconv"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(segment.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// Equal reports whether both addresses have the same segments.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}

// Node is the name in the first segment, or "" for an empty address.
func (a *Address) Node() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0].Name
}
