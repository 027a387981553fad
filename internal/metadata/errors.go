package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a value does not match its key's
	// declared type or arity.
	ErrTypeMismatch = errors.New("metadata type mismatch")
	// ErrKeyConflict is returned when a key is redeclared with a different
	// definition.
	ErrKeyConflict = errors.New("metadata key conflict")
)

// TypeMismatchError describes a rejected Set.
type TypeMismatchError struct {
	Key    *Key
	Got    string
	Reason string
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("metadata key %s expects %s, got %s", e.Key, e.Key.describe(), e.Got)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
