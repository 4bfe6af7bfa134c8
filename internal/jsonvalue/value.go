// File: internal/jsonvalue/value.go
package jsonvalue

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies which variant of the JSON value union a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON-Schema type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a closed, recursive representation of a JSON document.
// Objects keep the order in which their keys were first set.
//
// A Value is treated as immutable once it has been stored in a schema directory.
// Functions that transform documents return new values rather than editing in place.
type Value struct {
	kind Kind
	b    bool
	num  string // literal text of a number, kept to avoid precision loss on round trips
	str  string
	arr  []*Value
	obj  *Object
}

// Object is an ordered JSON object.
type Object struct {
	keys   []string
	values map[string]*Value
}

// -- Constructors --

// Null returns a JSON null.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Number returns a JSON number from a float.
func Number(f float64) *Value {
	return &Value{kind: KindNumber, num: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Int returns a JSON number from an integer.
func Int(i int64) *Value {
	return &Value{kind: KindNumber, num: strconv.FormatInt(i, 10)}
}

// NumberLiteral returns a JSON number from its literal text.
// The literal is not validated; callers parse it from a trusted decoder.
func NumberLiteral(lit string) *Value { return &Value{kind: KindNumber, num: lit} }

// String returns a JSON string.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Array returns a JSON array holding the given items.
func Array(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: KindArray, arr: items}
}

// NewObject returns an empty JSON object.
func NewObject() *Value {
	return &Value{kind: KindObject, obj: &Object{values: map[string]*Value{}}}
}

// -- Accessors --

// Kind reports which variant the value holds. A nil *Value reports KindNull.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether the value is JSON null (or a nil pointer).
func (v *Value) IsNull() bool { return v.Kind() == KindNull }

// IsObject reports whether the value is a JSON object.
func (v *Value) IsObject() bool { return v.Kind() == KindObject }

// IsArray reports whether the value is a JSON array.
func (v *Value) IsArray() bool { return v.Kind() == KindArray }

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string payload.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.str, true
}

// AsFloat returns the numeric payload as a float64.
func (v *Value) AsFloat() (float64, bool) {
	if v.Kind() != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.num, 64)
	if err != nil {
		return math.NaN(), false
	}
	return f, true
}

// NumberText returns the literal text of a number.
func (v *Value) NumberText() (string, bool) {
	if v.Kind() != KindNumber {
		return "", false
	}
	return v.num, true
}

// Items returns the elements of an array. The slice must not be modified.
func (v *Value) Items() []*Value {
	if v.Kind() != KindArray {
		return nil
	}
	return v.arr
}

// Len returns the number of elements of an array or members of an object.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj.keys)
	default:
		return 0
	}
}

// Index returns the i-th array element.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindArray || i < 0 || i >= len(v.arr) {
		return nil, false
	}
	return v.arr[i], true
}

// Keys returns the keys of an object in insertion order. The slice must not be modified.
func (v *Value) Keys() []string {
	if v.Kind() != KindObject {
		return nil
	}
	return v.obj.keys
}

// Get returns the member stored under key.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	m, ok := v.obj.values[key]
	return m, ok
}

// Has reports whether an object has a member named key.
func (v *Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// GetString returns the member stored under key when it is a string.
func (v *Value) GetString(key string) (string, bool) {
	m, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return m.AsString()
}

// -- Mutation (construction time only) --

// Set stores a member on an object, keeping the original position if the key exists.
// It panics when called on a non-object, which is a programming error.
func (v *Value) Set(key string, member *Value) *Value {
	if v.Kind() != KindObject {
		panic("jsonvalue: Set called on " + v.Kind().String())
	}
	if member == nil {
		member = Null()
	}
	if _, exists := v.obj.values[key]; !exists {
		v.obj.keys = append(v.obj.keys, key)
	}
	v.obj.values[key] = member
	return v
}

// Delete removes a member from an object. It is a no-op for missing keys.
func (v *Value) Delete(key string) {
	if v.Kind() != KindObject {
		return
	}
	if _, exists := v.obj.values[key]; !exists {
		return
	}
	delete(v.obj.values, key)
	for i, k := range v.obj.keys {
		if k == key {
			v.obj.keys = append(v.obj.keys[:i:i], v.obj.keys[i+1:]...)
			break
		}
	}
}

// Append adds elements to an array.
func (v *Value) Append(items ...*Value) *Value {
	if v.Kind() != KindArray {
		panic("jsonvalue: Append called on " + v.Kind().String())
	}
	v.arr = append(v.arr, items...)
	return v
}

// -- Whole-value helpers --

// Clone returns a deep copy of the value.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindArray:
		items := make([]*Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return &Value{kind: KindArray, arr: items}
	case KindObject:
		out := NewObject()
		for _, k := range v.obj.keys {
			out.Set(k, v.obj.values[k].Clone())
		}
		return out
	default:
		c := *v
		return &c
	}
}

// Without returns a shallow copy of an object without the named keys.
func (v *Value) Without(keys ...string) *Value {
	if v.Kind() != KindObject {
		return v
	}
	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}
	out := NewObject()
	for _, k := range v.obj.keys {
		if _, drop := skip[k]; drop {
			continue
		}
		out.Set(k, v.obj.values[k])
	}
	return out
}

// Equal reports whether two values are structurally equal.
// Object key order is ignored; numbers compare by value.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.str == b.str
	case KindNumber:
		if a.num == b.num {
			return true
		}
		fa, okA := a.AsFloat()
		fb, okB := b.AsFloat()
		return okA && okB && fa == fb
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj.keys) != len(b.obj.keys) {
			return false
		}
		for _, k := range a.obj.keys {
			bv, ok := b.obj.values[k]
			if !ok || !Equal(a.obj.values[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Walk visits every value in depth-first order together with its pointer tokens.
// Returning false from fn stops descent into the current value's children.
func Walk(v *Value, fn func(path []string, v *Value) bool) {
	walk(v, nil, fn)
}

func walk(v *Value, path []string, fn func([]string, *Value) bool) {
	if !fn(path, v) {
		return
	}
	switch v.Kind() {
	case KindArray:
		for i, item := range v.arr {
			walk(item, appendToken(path, strconv.Itoa(i)), fn)
		}
	case KindObject:
		for _, k := range v.obj.keys {
			walk(v.obj.values[k], appendToken(path, k), fn)
		}
	}
}

func appendToken(path []string, token string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = token
	return out
}

// Transform returns a copy of v where every object member is passed through fn.
// fn receives the member key and the already transformed member value.
func Transform(v *Value, fn func(key string, member *Value) *Value) *Value {
	switch v.Kind() {
	case KindArray:
		items := make([]*Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = Transform(item, fn)
		}
		return Array(items...)
	case KindObject:
		out := NewObject()
		for _, k := range v.obj.keys {
			out.Set(k, fn(k, Transform(v.obj.values[k], fn)))
		}
		return out
	default:
		return v
	}
}

// ToAny converts the value to the generic representation used by encoding/json,
// with numbers as json.Number.
func (v *Value) ToAny() any {
	switch v.Kind() {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.num)
	case KindString:
		return v.str
	case KindArray:
		items := make([]any, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.ToAny()
		}
		return items
	case KindObject:
		m := make(map[string]any, len(v.obj.keys))
		for _, k := range v.obj.keys {
			m[k] = v.obj.values[k].ToAny()
		}
		return m
	default:
		return nil
	}
}
