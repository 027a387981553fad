package metadata

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/vk/streamgrid/internal/stamp"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Record is a typed key/value container attached to a port.
// Records are not safe for concurrent mutation.
type Record struct {
	clock  *stamp.Clock
	values map[*Key]cty.Value
	mtime  stamp.Stamp
	logger *slog.Logger
}

// NewRecord creates an empty record whose modification stamps come from
// clock. A nil clock gives the record a private one.
func NewRecord(clock *stamp.Clock) *Record {
	if clock == nil {
		clock = stamp.NewClock()
	}
	return &Record{
		clock:  clock,
		values: make(map[*Key]cty.Value),
		logger: slog.Default(),
	}
}

// SetLogger sets the logger that receives type mismatch diagnostics.
func (r *Record) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// MTime is the stamp of the last change to a tracked key.
func (r *Record) MTime() stamp.Stamp { return r.mtime }

// Set stores a Go value under key after checking it against the key's
// declared kind and arity. On mismatch the record is left unchanged.
func (r *Record) Set(key *Key, v any) error {
	val, err := toCty(key, v)
	if err != nil {
		r.logger.Debug("Rejected metadata value.", "key", key.String(), "error", err)
		return err
	}
	r.store(key, val)
	return nil
}

// SetValue stores a cty value under key. The value must already have the
// key's cty type.
func (r *Record) SetValue(key *Key, val cty.Value) error {
	if err := checkValue(key, val); err != nil {
		r.logger.Debug("Rejected metadata value.", "key", key.String(), "error", err)
		return err
	}
	r.store(key, val)
	return nil
}

func (r *Record) store(key *Key, val cty.Value) {
	prev, had := r.values[key]
	r.values[key] = val
	if key.tracked && (!had || !valuesEqual(key, prev, val)) {
		r.mtime = r.clock.Next()
	}
}

// Get returns the raw value stored under key.
func (r *Record) Get(key *Key) (cty.Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is set.
func (r *Record) Has(key *Key) bool {
	_, ok := r.values[key]
	return ok
}

// Remove deletes key. Removing a tracked key counts as a modification.
func (r *Record) Remove(key *Key) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	if key.tracked {
		r.mtime = r.clock.Next()
	}
}

// Clear removes every key.
func (r *Record) Clear() {
	for k := range r.values {
		r.Remove(k)
	}
}

// Len returns the number of keys set.
func (r *Record) Len() int { return len(r.values) }

// Keys lists the keys set, ordered by scope and name.
func (r *Record) Keys() []*Key {
	out := make([]*Key, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// CopyFrom copies the given keys from other, or every key when none are
// named. Keys absent from other are removed from r. Values are shared, not
// deep-copied.
func (r *Record) CopyFrom(other *Record, keys ...*Key) {
	if other == nil {
		return
	}
	if len(keys) == 0 {
		keys = other.Keys()
	}
	for _, k := range keys {
		if v, ok := other.values[k]; ok {
			r.store(k, v)
		} else {
			r.Remove(k)
		}
	}
}

// Clone returns a shallow copy sharing r's clock and logger.
func (r *Record) Clone() *Record {
	c := &Record{
		clock:  r.clock,
		values: make(map[*Key]cty.Value, len(r.values)),
		mtime:  r.mtime,
		logger: r.logger,
	}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Equal reports whether both records hold the same values for keys, or for
// every key of either record when none are named.
func (r *Record) Equal(other *Record, keys ...*Key) bool {
	if other == nil {
		return r.Len() == 0 && len(keys) == 0
	}
	if len(keys) == 0 {
		if r.Len() != other.Len() {
			return false
		}
		keys = r.Keys()
	}
	for _, k := range keys {
		a, aok := r.values[k]
		b, bok := other.values[k]
		if aok != bok {
			return false
		}
		if aok && !valuesEqual(k, a, b) {
			return false
		}
	}
	return true
}

// Int returns an int-kind value.
func (r *Record) Int(key *Key) (int, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindInt {
		return 0, false
	}
	var out int
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return 0, false
	}
	return out, true
}

// Float returns a float-kind value.
func (r *Record) Float(key *Key) (float64, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindFloat {
		return 0, false
	}
	var out float64
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return 0, false
	}
	return out, true
}

// String returns a string-kind value.
func (r *Record) String(key *Key) (string, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindString {
		return "", false
	}
	return v.AsString(), true
}

// IntVector returns an int-vector value.
func (r *Record) IntVector(key *Key) ([]int, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindIntVector {
		return nil, false
	}
	out := []int{}
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return nil, false
	}
	return out, true
}

// FloatVector returns a float-vector value.
func (r *Record) FloatVector(key *Key) ([]float64, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindFloatVector {
		return nil, false
	}
	out := []float64{}
	if err := gocty.FromCtyValue(v, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Object returns the value held by an object-kind key.
func (r *Record) Object(key *Key) (any, bool) {
	v, ok := r.values[key]
	if !ok || key.kind != KindObject {
		return nil, false
	}
	return unwrapObject(v), true
}

func toCty(key *Key, v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, mismatch(key, "nil", "")
	}
	rv := reflect.ValueOf(v)
	switch key.kind {
	case KindInt:
		if !isInt(rv.Kind()) {
			return cty.NilVal, mismatch(key, rv.Type().String(), "")
		}
		return gocty.ToCtyValue(rv.Convert(reflect.TypeOf(int64(0))).Interface(), cty.Number)
	case KindFloat:
		switch {
		case isFloat(rv.Kind()):
			if !finite(rv.Float()) {
				return cty.NilVal, mismatch(key, "non-finite float", "")
			}
			return cty.NumberFloatVal(rv.Float()), nil
		case isInt(rv.Kind()):
			return cty.NumberIntVal(rv.Convert(reflect.TypeOf(int64(0))).Int()), nil
		}
		return cty.NilVal, mismatch(key, rv.Type().String(), "")
	case KindString:
		if rv.Kind() != reflect.String {
			return cty.NilVal, mismatch(key, rv.Type().String(), "")
		}
		return cty.StringVal(rv.String()), nil
	case KindIntVector, KindFloatVector:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return cty.NilVal, mismatch(key, rv.Type().String(), "")
		}
		n := rv.Len()
		if key.length > 0 && n != key.length {
			return cty.NilVal, mismatch(key, fmt.Sprintf("%d elements", n), "wrong arity")
		}
		elemKind := rv.Type().Elem().Kind()
		if key.kind == KindIntVector && !isInt(elemKind) {
			return cty.NilVal, mismatch(key, rv.Type().String(), "")
		}
		if key.kind == KindFloatVector && !isFloat(elemKind) && !isInt(elemKind) {
			return cty.NilVal, mismatch(key, rv.Type().String(), "")
		}
		if n == 0 {
			return cty.ListValEmpty(cty.Number), nil
		}
		elems := make([]cty.Value, n)
		for i := range n {
			e := rv.Index(i)
			if isFloat(elemKind) {
				if !finite(e.Float()) {
					return cty.NilVal, mismatch(key, "non-finite element", "")
				}
				elems[i] = cty.NumberFloatVal(e.Float())
			} else {
				elems[i] = cty.NumberIntVal(e.Convert(reflect.TypeOf(int64(0))).Int())
			}
		}
		return cty.ListVal(elems), nil
	default:
		boxed := v
		return cty.CapsuleVal(ObjectType, &boxed), nil
	}
}

func checkValue(key *Key, val cty.Value) error {
	if val == cty.NilVal || val.IsNull() || !val.IsKnown() {
		return mismatch(key, "null or unknown value", "")
	}
	if !val.Type().Equals(key.Type()) {
		return mismatch(key, val.Type().FriendlyName(), "")
	}
	switch key.kind {
	case KindInt:
		if !isWhole(val) {
			return mismatch(key, "fractional number", "")
		}
	case KindIntVector, KindFloatVector:
		n := val.LengthInt()
		if key.length > 0 && n != key.length {
			return mismatch(key, fmt.Sprintf("%d elements", n), "wrong arity")
		}
		for it := val.ElementIterator(); it.Next(); {
			_, e := it.Element()
			if e.IsNull() || !e.IsKnown() {
				return mismatch(key, "null element", "")
			}
			if key.kind == KindIntVector && !isWhole(e) {
				return mismatch(key, "fractional element", "")
			}
		}
	}
	return nil
}

func isWhole(v cty.Value) bool {
	bf := v.AsBigFloat()
	if bf.IsInf() {
		return false
	}
	return bf.IsInt()
}

func mismatch(key *Key, got, reason string) error {
	return &TypeMismatchError{Key: key, Got: got, Reason: reason}
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func unwrapObject(v cty.Value) any {
	p, ok := v.EncapsulatedValue().(*any)
	if !ok || p == nil {
		return nil
	}
	return *p
}

func valuesEqual(key *Key, a, b cty.Value) bool {
	if key.kind != KindObject {
		return a.RawEquals(b)
	}
	x, y := unwrapObject(a), unwrapObject(b)
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	tx, ty := reflect.TypeOf(x), reflect.TypeOf(y)
	if tx != ty || !tx.Comparable() {
		return false
	}
	return x == y
}

// finite reports whether f can be stored as a cty number.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
