package props

import "sort"

// Flatten returns the dotted-path form of a decoded JSON object:
//
//	{"a": 1, "d": {"k1": 111}}  ->  a=1, d.k1=111
//
// Lists and scalars are stored as leaves and never descended into. A value
// that is not an object flattens to an empty set.
func Flatten(x any) *Properties {
	p := New()
	FlattenInto(p, x)
	return p
}

// FlattenInto adds the leaves of x to p. Keys already present in p win, so
// callers add higher-priority sources first.
func FlattenInto(p *Properties, x any) {
	obj, ok := x.(map[string]any)
	if !ok {
		return
	}
	flattenObject(p, "", obj)
}

func flattenObject(p *Properties, prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := obj[k].(map[string]any); ok {
			flattenObject(p, path, nested)
			continue
		}
		if v, ok := Of(obj[k]); ok {
			p.Set(path, v)
		}
	}
}
