package events

import (
	"time"

	"github.com/kbukum/mira/engine"
)

// Event types.
const (
	TypeAdded   = "engine.added"
	TypeRemoved = "engine.removed"
)

// Event is the message body written for one engine change.
type Event struct {
	Type        string    `json:"type"`
	Key         string    `json:"key"`
	Backend     string    `json:"backend,omitempty"`
	Address     string    `json:"address"`
	Port        int       `json:"port"`
	MetricsPort int       `json:"metricsPort"`
	At          time.Time `json:"at"`
}

// NewEvent describes e under the given type.
func NewEvent(typ string, e *engine.Entry, at time.Time) Event {
	return Event{
		Type:        typ,
		Key:         e.Key(),
		Backend:     e.Backend(),
		Address:     e.Address(),
		Port:        e.APIPort(),
		MetricsPort: e.MetricsPort(),
		At:          at.UTC(),
	}
}
