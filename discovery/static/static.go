// Package static reports a fixed list of engines from configuration. Mode
// "none" reports no engines at all, for running the service without an
// orchestrator.
package static

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the endpoint appears in engine views.
const Backend = "static"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeStatic, func(cfg discovery.Config, _ *logger.Logger) (discovery.Adapter, error) {
		return NewAdapter(cfg.Static.Endpoints)
	})
	discovery.RegisterAdapterFactory(discovery.ModeNone, func(discovery.Config, *logger.Logger) (discovery.Adapter, error) {
		return None(), nil
	})
}

// Adapter serves the same records on every cycle.
type Adapter struct {
	records []discovery.Record
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter builds the record list once. An endpoint without a key is keyed
// by address and port.
func NewAdapter(endpoints []discovery.StaticEndpoint) (*Adapter, error) {
	a := &Adapter{records: make([]discovery.Record, 0, len(endpoints))}
	seen := make(map[string]bool, len(endpoints))
	for i, ep := range endpoints {
		if ep.Address == "" {
			return nil, fmt.Errorf("static endpoint %d: address is required", i)
		}
		key := ep.Key
		if key == "" {
			key = net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port))
		}
		if seen[key] {
			return nil, fmt.Errorf("static endpoint %d: duplicate key %q", i, key)
		}
		seen[key] = true
		a.records = append(a.records, discovery.Record{
			Key:       key,
			Addresses: []string{ep.Address},
			Port:      ep.Port,
			Labels:    ep.Labels,
			Backend:   Backend,
			Raw:       ep,
		})
	}
	return a, nil
}

// None returns an adapter that never reports an engine.
func None() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ListEngines(_ context.Context) ([]discovery.Record, error) {
	out := make([]discovery.Record, len(a.records))
	copy(out, a.records)
	return out, nil
}
