// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports where an identifier failed to parse.
type SyntaxError struct {
	Input string
	// Offset is the byte position of the offending segment.
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid identifier %q at offset %d: %s", e.Input, e.Offset, e.Msg)
}

// ValidateName checks a node name: a letter or underscore followed by
// letters, digits, underscores or hyphens.
func ValidateName(name string) error {
	if msg := checkName(name); msg != "" {
		return &SyntaxError{Input: name, Msg: msg}
	}
	return nil
}

func checkName(name string) string {
	if name == "" {
		return "empty name"
	}
	for i, r := range name {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
		case i > 0 && (r == '-' || ('0' <= r && r <= '9')):
		default:
			return fmt.Sprintf("unexpected character %q in name %q", r, name)
		}
	}
	return ""
}

// Parse creates a new Address by parsing its canonical string
// representation: dot-separated segments, each a name optionally followed
// by a non-negative `[index]`.
func Parse(raw string) (*Address, error) {
	if raw == "" {
		return nil, &SyntaxError{Input: raw, Msg: "identifier cannot be empty"}
	}

	addr := &Address{}
	offset := 0
	for _, part := range strings.Split(raw, ".") {
		seg, msg := parseSegment(part)
		if msg != "" {
			return nil, &SyntaxError{Input: raw, Offset: offset, Msg: msg}
		}
		addr.Path = append(addr.Path, seg)
		offset += len(part) + 1
	}
	return addr, nil
}

func parseSegment(part string) (PathSegment, string) {
	if part == "" {
		return PathSegment{}, "empty segment"
	}
	name, rest, hasIndex := strings.Cut(part, "[")
	if msg := checkName(name); msg != "" {
		return PathSegment{}, msg
	}
	if !hasIndex {
		return NewPathSegment(name), ""
	}

	digits, ok := strings.CutSuffix(rest, "]")
	if !ok || digits == "" || strings.ContainsAny(digits, "+-") {
		return PathSegment{}, fmt.Sprintf("malformed index in %q", part)
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return PathSegment{}, fmt.Sprintf("malformed index in %q", part)
	}
	return NewPathSegmentWithIndex(name, index), ""
}
