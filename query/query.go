package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/props"
)

// Constraints maps a property name to its expected value, as decoded from
// JSON.
type Constraints map[string]any

// ErrInvalidQuery is returned by Parse for input that is neither a JSON
// object nor a JSON array of objects.
var ErrInvalidQuery = errors.New("query: expected a JSON object or an array of objects")

// Parse decodes one constraint object or a priority-ordered array of them.
func Parse(raw []byte) ([]Constraints, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrInvalidQuery
	}
	switch trimmed[0] {
	case '{':
		var c Constraints
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return []Constraints{c}, nil
	case '[':
		var sets []Constraints
		if err := json.Unmarshal(trimmed, &sets); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		for i, c := range sets {
			if c == nil {
				return nil, fmt.Errorf("%w: element %d is null", ErrInvalidQuery, i)
			}
		}
		return sets, nil
	default:
		return nil, ErrInvalidQuery
	}
}

// Select returns the entries matching the first constraint set with a
// non-empty result. Later sets are only consulted when every earlier one
// matched nothing; results are never merged. No sets selects everything.
func Select(entries []*engine.Entry, sets ...Constraints) []*engine.Entry {
	if len(sets) == 0 {
		return entries
	}
	for _, c := range sets {
		var matched []*engine.Entry
		for _, e := range entries {
			if Matches(c, e.Properties()) {
				matched = append(matched, e)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return []*engine.Entry{}
}

// Matches reports whether every constraint is satisfied by p. A property
// missing from p never matches.
func Matches(c Constraints, p *props.Properties) bool {
	for key, expected := range c {
		actual, ok := p.Get(key)
		if !ok || !matchValue(expected, actual) {
			return false
		}
	}
	return true
}

func matchValue(expected any, actual props.Value) bool {
	if list, ok := expected.([]any); ok {
		for _, item := range list {
			if v, ok := props.Of(item); ok && v.LooseEqual(actual) {
				return true
			}
		}
		return false
	}

	exp, ok := props.Of(expected)
	if !ok {
		return false
	}

	eb, expIsBool := exp.Boolean()
	ab, actIsBool := actual.Boolean()
	if expIsBool || actIsBool {
		return expIsBool && actIsBool && eb == ab
	}

	if exp.Kind() == props.KindString {
		if op, limit, ok := comparison(exp.Str()); ok {
			n, ok := actual.Float()
			if !ok {
				return false
			}
			if op == '>' {
				return n > limit
			}
			return n < limit
		}
	}

	return exp.LooseEqual(actual)
}

// comparison parses ">N" or "<N".
func comparison(s string) (byte, float64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != '>' && s[0] != '<') {
		return 0, 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
	if err != nil {
		return 0, 0, false
	}
	return s[0], n, true
}
