package engine

import (
	"bytes"
	"encoding/json"
)

// View is the listing representation of an entry:
//
//	{"key": "...", "engine": {...}, "<backend>": <raw payload>}
type View struct {
	Key     string     `json:"key"`
	Engine  EngineView `json:"engine"`
	Backend string     `json:"-"`
	Raw     any        `json:"-"`
}

// EngineView carries the connection and status data of a View.
type EngineView struct {
	IP          string `json:"ip"`
	Port        int    `json:"port"`
	MetricsPort int    `json:"metricsPort"`
	Status      Status `json:"status"`
	Health      any    `json:"health,omitempty"`
	Metrics     any    `json:"metrics,omitempty"`
}

// View snapshots the entry. A condensed view leaves out the health and
// metrics payloads and the backend raw payload.
func (e *Entry) View(condensed bool) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		Key: e.key,
		Engine: EngineView{
			IP:          e.address,
			Port:        e.apiPort,
			MetricsPort: e.metricsPort,
			Status:      e.status,
		},
	}
	if !condensed {
		v.Engine.Health = e.health.payload
		v.Engine.Metrics = e.metrics.payload
		v.Backend = e.backend
		v.Raw = e.raw
	}
	return v
}

// Views snapshots a list of entries.
func Views(entries []*Entry, condensed bool) []View {
	out := make([]View, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.View(condensed))
	}
	return out
}

func (v View) MarshalJSON() ([]byte, error) {
	type plain View
	b, err := json.Marshal(plain(v))
	if err != nil {
		return nil, err
	}
	if v.Backend == "" || v.Raw == nil {
		return b, nil
	}
	name, err := json.Marshal(v.Backend)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v.Raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	buf.WriteByte(',')
	buf.Write(name)
	buf.WriteByte(':')
	buf.Write(raw)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
