// Package value provides the dynamic value type the template engine
// renders against.
//
// A Value holds one of a small set of kinds: null, booleans, integers,
// floats, strings, arrays and string-keyed objects. Values are created
// from Go primitives with constructor functions (FromInt, FromString,
// FromSlice, ...) or from arbitrary Go data with FromAny, which converts
// maps, slices and structs recursively via reflection.
//
// Array order is significant; object key order is not.
package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Kind describes the type of a Value.
type Kind int

const (
	// KindNull represents the absence of a value (null/nil).
	KindNull Kind = iota

	// KindBool represents a boolean.
	KindBool

	// KindInt represents a 64-bit signed integer.
	KindInt

	// KindFloat represents a 64-bit float.
	KindFloat

	// KindString represents UTF-8 text.
	KindString

	// KindArray represents an ordered sequence of values.
	KindArray

	// KindObject represents a string-keyed mapping.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
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

// Value is a dynamically typed template value.
type Value struct {
	data any
}

// internal marker for the null value
type nullType struct{}

// Null returns the null value.
func Null() Value {
	return Value{data: nullType{}}
}

// FromBool creates a Value from a boolean.
func FromBool(v bool) Value {
	return Value{data: v}
}

// FromInt creates a Value from an int64.
func FromInt(v int64) Value {
	return Value{data: v}
}

// FromFloat creates a Value from a float64.
func FromFloat(v float64) Value {
	return Value{data: v}
}

// FromString creates a Value from a string.
func FromString(v string) Value {
	return Value{data: v}
}

// FromSlice creates an array Value. The slice is taken over, not copied.
func FromSlice(v []Value) Value {
	if v == nil {
		v = []Value{}
	}
	return Value{data: v}
}

// FromMap creates an object Value. The map is taken over, not copied.
func FromMap(v map[string]Value) Value {
	if v == nil {
		v = map[string]Value{}
	}
	return Value{data: v}
}

// FromAny converts an arbitrary Go value into a Value using reflection.
// Maps, slices, arrays and structs are converted recursively; struct
// fields use their `json` tag name when present, otherwise the field
// name. Unconvertible values become Null.
func FromAny(v any) Value {
	if v == nil {
		return Null()
	}
	if val, ok := v.(Value); ok {
		return val
	}
	return fromReflectValue(reflect.ValueOf(v))
}

func fromReflectValue(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Null()
	}
	if rv.CanInterface() {
		if val, ok := rv.Interface().(Value); ok {
			return val
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return FromBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return FromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FromInt(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return FromFloat(rv.Float())
	case reflect.String:
		return FromString(rv.String())
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = fromReflectValue(rv.Index(i))
		}
		return FromSlice(items)
	case reflect.Map:
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			var key string
			if k.Kind() == reflect.String {
				key = k.String()
			} else {
				key = fmt.Sprintf("%v", k.Interface())
			}
			m[key] = fromReflectValue(iter.Value())
		}
		return FromMap(m)
	case reflect.Struct:
		return fromStruct(rv)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return fromReflectValue(rv.Elem())
	default:
		return Null()
	}
}

func fromStruct(rv reflect.Value) Value {
	t := rv.Type()
	m := make(map[string]Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tag = strings.Split(tag, ",")[0]
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		m[name] = fromReflectValue(rv.Field(i))
	}
	return FromMap(m)
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	switch v.data.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []Value:
		return KindArray
	case map[string]Value:
		return KindObject
	default:
		return KindNull
	}
}

// IsNull reports whether the value is null. Zero Values are null.
func (v Value) IsNull() bool {
	return v.Kind() == KindNull
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// AsSlice returns the array payload.
func (v Value) AsSlice() ([]Value, bool) {
	s, ok := v.data.([]Value)
	return s, ok
}

// AsMap returns the object payload.
func (v Value) AsMap() (map[string]Value, bool) {
	m, ok := v.data.(map[string]Value)
	return m, ok
}

// IsTruthy reports the truthiness of the value: booleans as-is, strings
// true iff non-empty, numbers true iff non-zero, arrays and objects true
// iff non-empty, null false.
func (v Value) IsTruthy() bool {
	switch d := v.data.(type) {
	case bool:
		return d
	case int64:
		return d != 0
	case float64:
		return d != 0
	case string:
		return d != ""
	case []Value:
		return len(d) > 0
	case map[string]Value:
		return len(d) > 0
	default:
		return false
	}
}

// Equal reports equality between two values. Equality is defined only
// for matching string/int/bool pairs; every cross-type comparison is
// false.
func (v Value) Equal(other Value) bool {
	switch a := v.data.(type) {
	case string:
		b, ok := other.data.(string)
		return ok && a == b
	case int64:
		b, ok := other.data.(int64)
		return ok && a == b
	case bool:
		b, ok := other.data.(bool)
		return ok && a == b
	default:
		return false
	}
}

// AsNumber coerces the value to a float64 for ordering comparisons.
// Non-numeric values compare as 0.
func (v Value) AsNumber() float64 {
	switch d := v.data.(type) {
	case int64:
		return float64(d)
	case float64:
		return d
	default:
		return 0
	}
}

// Len returns the length of a string, array or object, and false for
// every other kind.
func (v Value) Len() (int, bool) {
	switch d := v.data.(type) {
	case string:
		return len(d), true
	case []Value:
		return len(d), true
	case map[string]Value:
		return len(d), true
	default:
		return 0, false
	}
}

// String renders the value the way it appears in template output.
func (v Value) String() string {
	switch d := v.data.(type) {
	case bool:
		if d {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", d)
	case float64:
		if math.IsInf(d, 1) {
			return "inf"
		}
		if math.IsInf(d, -1) {
			return "-inf"
		}
		if math.IsNaN(d) {
			return "nan"
		}
		if d == math.Trunc(d) && math.Abs(d) < 1e15 {
			return fmt.Sprintf("%.1f", d)
		}
		return fmt.Sprintf("%g", d)
	case string:
		return d
	case []Value:
		parts := make([]string, len(d))
		for i, item := range d {
			parts[i] = item.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(d))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%q: %s", k, d[k].Repr()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// Repr returns a debug representation: like String, except strings are
// quoted and null is spelled out.
func (v Value) Repr() string {
	switch d := v.data.(type) {
	case string:
		return fmt.Sprintf("%q", d)
	case nullType, nil:
		return "null"
	default:
		return v.String()
	}
}

// Raw returns the underlying Go representation: nil, bool, int64,
// float64, string, []any or map[string]any.
func (v Value) Raw() any {
	switch d := v.data.(type) {
	case bool:
		return d
	case int64:
		return d
	case float64:
		return d
	case string:
		return d
	case []Value:
		items := make([]any, len(d))
		for i, item := range d {
			items[i] = item.Raw()
		}
		return items
	case map[string]Value:
		m := make(map[string]any, len(d))
		for k, item := range d {
			m[k] = item.Raw()
		}
		return m
	default:
		return nil
	}
}
