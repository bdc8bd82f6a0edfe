package props

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a tagged scalar or list. Lists keep their elements as decoded,
// nested objects inside a list are never flattened.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []any
}

func String(s string) Value { return Value{kind: KindString, str: s} }

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func List(items []any) Value { return Value{kind: KindList, list: items} }

func Null() Value { return Value{} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Items returns the elements of a list value.
func (v Value) Items() []any { return v.list }

// Of converts a decoded JSON value (or a Go scalar) into a Value. Maps are
// not representable and report ok=false; callers flatten them instead.
func Of(x any) (Value, bool) {
	switch t := x.(type) {
	case nil:
		return Null(), true
	case Value:
		return t, true
	case string:
		return String(t), true
	case bool:
		return Bool(t), true
	case float64:
		return Number(t), true
	case float32:
		return Number(float64(t)), true
	case int:
		return Number(float64(t)), true
	case int32:
		return Number(float64(t)), true
	case int64:
		return Number(float64(t)), true
	case uint:
		return Number(float64(t)), true
	case uint64:
		return Number(float64(t)), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f), true
		}
		return String(t.String()), true
	case []any:
		return List(t), true
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return List(items), true
	case map[string]any:
		return Value{}, false
	default:
		return String(fmt.Sprint(t)), true
	}
}

// Interface returns the plain Go value held by v.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		return v.list
	default:
		return nil
	}
}

// Str returns the string form of v. Numbers use the shortest representation.
func (v Value) Str() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// Float returns the numeric interpretation of v. Strings are parsed after
// trimming whitespace; booleans and lists are not numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Boolean returns the boolean interpretation of v: a bool, or a
// case-insensitive "true"/"false" string.
func (v Value) Boolean() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// LooseEqual compares two values the way a query does: identical kinds
// compare directly, numbers compare against numeric strings, and anything
// else falls back to comparing string forms.
func (v Value) LooseEqual(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	if v.kind == KindNumber || o.kind == KindNumber {
		a, aok := v.Float()
		b, bok := o.Float()
		if aok && bok {
			return a == b
		}
		return false
	}
	if v.kind == KindBool && o.kind == KindBool {
		return v.b == o.b
	}
	return v.Str() == o.Str()
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	val, ok := Of(x)
	if !ok {
		return fmt.Errorf("props: cannot hold a JSON object in a single value")
	}
	*v = val
	return nil
}

func (v Value) String() string {
	return v.Str()
}
