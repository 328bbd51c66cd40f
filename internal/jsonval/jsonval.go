// Package jsonval models a decoded JSON document as an explicit tagged
// variant, replacing the "whatever encoding/json gives us" duck typing that
// key-path extraction would otherwise need.
package jsonval

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a single node of a JSON document. The zero value is JSON null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	arr  []Value
	obj  map[string]Value
}

// Parse decodes raw JSON bytes into a Value.
func Parse(data []byte) (Value, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("parse json: %w", err)
	}
	return fromAny(v), nil
}

func fromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{kind: Null}
	case bool:
		return Value{kind: Bool, b: t}
	case json.Number:
		f, _ := t.Float64()
		return Value{kind: Number, num: f, str: t.String()}
	case float64:
		return Value{kind: Number, num: t, str: strconv.FormatFloat(t, 'g', -1, 64)}
	case string:
		return Value{kind: String, str: t}
	case []any:
		arr := make([]Value, len(t))
		for i, el := range t {
			arr[i] = fromAny(el)
		}
		return Value{kind: Array, arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, el := range t {
			obj[k] = fromAny(el)
		}
		return Value{kind: Object, obj: obj}
	default:
		// Unreachable for values produced by encoding/json.
		return Value{kind: Null}
	}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// BoolVal returns the boolean payload; false unless Kind() == Bool.
func (v Value) BoolVal() bool { return v.kind == Bool && v.b }

// NumberVal returns the numeric payload as float64.
func (v Value) NumberVal() float64 { return v.num }

// StringVal returns the string payload.
func (v Value) StringVal() string {
	if v.kind == String {
		return v.str
	}
	return ""
}

// ArrayVal returns the element slice; nil unless Kind() == Array.
func (v Value) ArrayVal() []Value { return v.arr }

// ObjectVal returns the member map; nil unless Kind() == Object.
func (v Value) ObjectVal() map[string]Value { return v.obj }

// Interface converts v back into plain Go values (nil, bool, float64, string,
// []any, map[string]any), the shape encoding/json would produce. Useful for
// schema validation and report serialization.
func (v Value) Interface() any {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Number:
		return v.num
	case String:
		return v.str
	case Array:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, el := range v.obj {
			out[k] = el.Interface()
		}
		return out
	default:
		return nil
	}
}

// Lookup walks a dot-delimited key path and returns the addressed node.
// A segment that is all digits indexes an Array; any other segment looks up
// an Object member. The walk stops at the first segment that does not
// resolve and reports ok=false; a miss is never an error.
//
// The empty path addresses v itself.
func (v Value) Lookup(keyPath string) (Value, bool) {
	if keyPath == "" {
		return v, true
	}

	cur := v
	for _, seg := range strings.Split(keyPath, ".") {
		if isDigits(seg) {
			if cur.kind != Array {
				return Value{}, false
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.arr) {
				return Value{}, false
			}
			cur = cur.arr[idx]
			continue
		}

		if cur.kind != Object {
			return Value{}, false
		}
		next, ok := cur.obj[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}

	return cur, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
