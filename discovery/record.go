package discovery

import (
	"context"
	"errors"
)

// Record is one engine as reported by an adapter in one cycle.
type Record struct {
	// Key identifies the instance and is stable across cycles.
	Key string
	// Addresses lists every address the instance is reachable on.
	Addresses []string
	// StatusAddress is the address chosen for health and metrics polling.
	// When empty the first of Addresses is used.
	StatusAddress string
	// Port is the API port declared by the orchestrator, 0 if none.
	Port    int
	Labels  map[string]string
	Backend string
	Raw     any
}

// Address returns the address used for status polling.
func (r Record) Address() string {
	if r.StatusAddress != "" {
		return r.StatusAddress
	}
	if len(r.Addresses) > 0 {
		return r.Addresses[0]
	}
	return ""
}

// Adapter lists the engines of one orchestrator backend. It fails when the
// backend cannot be reached; an empty result means no engines run.
type Adapter interface {
	ListEngines(ctx context.Context) ([]Record, error)
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context) ([]Record, error)

func (f AdapterFunc) ListEngines(ctx context.Context) ([]Record, error) {
	return f(ctx)
}

var (
	// ErrNotStarted is the state of a loop that has not run a cycle yet.
	ErrNotStarted = errors.New("discovery: no cycle has run yet")
	// ErrAlreadyRunning is returned by Start on a running loop.
	ErrAlreadyRunning = errors.New("discovery: loop already running")
)
