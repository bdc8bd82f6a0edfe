package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/mira/logger"
)

// AdapterFactory builds the adapter of one mode from the discovery config.
type AdapterFactory func(cfg Config, log *logger.Logger) (Adapter, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]AdapterFactory)
)

// RegisterAdapterFactory makes a backend available under mode. Backend
// packages call it from init.
func RegisterAdapterFactory(mode string, f AdapterFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[mode] = f
}

// NewAdapter builds the adapter for cfg.Mode.
func NewAdapter(cfg Config, log *logger.Logger) (Adapter, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Mode]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported discovery mode %q (registered: %v)", cfg.Mode, Modes())
	}
	a, err := f(cfg, log.WithComponent("discovery-"+cfg.Mode))
	if err != nil {
		return nil, fmt.Errorf("discovery mode %q: %w", cfg.Mode, err)
	}
	return a, nil
}

// Modes returns the registered mode names, sorted.
func Modes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for m := range factories {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
