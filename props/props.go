package props

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Properties is an insertion-ordered mapping from dotted paths to values.
// The zero value is ready to use.
type Properties struct {
	keys   []string
	values map[string]Value
}

// New returns an empty property set.
func New() *Properties {
	return &Properties{values: map[string]Value{}}
}

// FromLabels builds a property set from string labels in key order.
func FromLabels(labels map[string]string) *Properties {
	p := New()
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, String(labels[k]))
	}
	return p
}

// Set stores v under key unless key is already present. It reports whether
// the value was stored.
func (p *Properties) Set(key string, v Value) bool {
	if p.values == nil {
		p.values = map[string]Value{}
	}
	if _, exists := p.values[key]; exists {
		return false
	}
	p.keys = append(p.keys, key)
	p.values[key] = v
	return true
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Merge adds every key of o that p does not have yet, in o's order.
func (p *Properties) Merge(o *Properties) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		p.Set(k, o.values[k])
	}
}

// Map returns the properties as plain Go values.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out[k] = p.values[k].Interface()
	}
	return out
}

// MarshalJSON renders the set as a JSON object preserving key order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p != nil {
		for i, k := range p.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(p.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
