// Package metadata implements the typed, keyed records that ports exchange
// during pipeline negotiation.
//
// Keys are declared once in a Registry (owned by the pipeline, never
// global) with a name, an owning scope and a value kind. A Record maps keys
// to cty values and rejects any value whose type or arity does not match the
// key's declaration.
package metadata

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the declared value type of a key.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
	KindIntVector
	KindFloatVector
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindIntVector:
		return "int[]"
	case KindFloatVector:
		return "float[]"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ObjectType is the cty capsule type holding opaque object references.
// Capsules wrap a *any so any Go value can be carried.
var ObjectType = cty.Capsule("object", reflect.TypeOf((*any)(nil)).Elem())

// Key identifies one entry of a Record. Keys are created by a Registry and
// compared by identity.
type Key struct {
	name    string
	scope   string
	kind    Kind
	length  int
	tracked bool
}

func (k *Key) Name() string  { return k.name }
func (k *Key) Scope() string { return k.scope }
func (k *Key) Kind() Kind    { return k.kind }

// Length is the fixed arity of a vector key, or 0 when any length is allowed.
func (k *Key) Length() int { return k.length }

// Tracked reports whether changing this key's value advances the owning
// record's modification stamp.
func (k *Key) Tracked() bool { return k.tracked }

// Type returns the cty type every value stored under k has.
func (k *Key) Type() cty.Type {
	switch k.kind {
	case KindInt, KindFloat:
		return cty.Number
	case KindString:
		return cty.String
	case KindIntVector, KindFloatVector:
		return cty.List(cty.Number)
	default:
		return ObjectType
	}
}

// String renders the key as scope::name.
func (k *Key) String() string {
	return k.scope + "::" + k.name
}

func (k *Key) describe() string {
	if k.length > 0 {
		return fmt.Sprintf("%s[%d]", k.kind.String()[:len(k.kind.String())-2], k.length)
	}
	return k.kind.String()
}

func (k *Key) sameDefinition(other *Key) bool {
	return k.kind == other.kind && k.length == other.length && k.tracked == other.tracked
}

// KeyOption customizes a key at registration.
type KeyOption func(*Key)

// WithLength fixes the arity of a vector key.
func WithLength(n int) KeyOption {
	return func(k *Key) { k.length = n }
}

// TracksModification marks a reserved key: setting it to a different value
// marks the owning record as modified.
func TracksModification() KeyOption {
	return func(k *Key) { k.tracked = true }
}
