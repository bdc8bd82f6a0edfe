// Package consul discovers engines registered as Consul services. Only
// instances whose checks are all passing are reported.
package consul

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/hashicorp/consul/api"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the catalog entry appears in engine views.
const Backend = "consul"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeConsul, func(cfg discovery.Config, log *logger.Logger) (discovery.Adapter, error) {
		return NewAdapter(cfg.Consul, log)
	})
}

// healthAPI is the part of the Consul health endpoint the adapter uses.
type healthAPI interface {
	Service(service, tag string, passingOnly bool, q *api.QueryOptions) ([]*api.ServiceEntry, *api.QueryMeta, error)
}

// Adapter lists passing instances of one Consul service.
type Adapter struct {
	health  healthAPI
	service string
	tag     string
	log     *logger.Logger
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter talking to the agent at cfg.Address.
func NewAdapter(cfg discovery.ConsulConfig, log *logger.Logger) (*Adapter, error) {
	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.Address
	apiCfg.Scheme = cfg.Scheme
	apiCfg.Token = cfg.Token
	if cfg.Datacenter != "" {
		apiCfg.Datacenter = cfg.Datacenter
	}
	if cfg.TLS.IsEnabled() {
		tc, err := cfg.TLS.Build()
		if err != nil {
			return nil, fmt.Errorf("consul tls: %w", err)
		}
		transport := apiCfg.Transport
		transport.TLSClientConfig = tc
		apiCfg.HttpClient = &http.Client{Transport: transport}
		if cfg.Scheme == "" || cfg.Scheme == "http" {
			apiCfg.Scheme = "https"
		}
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	if cfg.Service == "" {
		return nil, fmt.Errorf("consul service name is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{health: client.Health(), service: cfg.Service, tag: cfg.Tag, log: log}, nil
}

func (a *Adapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)
	entries, _, err := a.health.Service(a.service, a.tag, true, q)
	if err != nil {
		return nil, fmt.Errorf("consul list %q: %w", a.service, err)
	}

	records := make([]discovery.Record, 0, len(entries))
	for _, e := range entries {
		if e.Service == nil {
			continue
		}
		addr := e.Service.Address
		if addr == "" && e.Node != nil {
			addr = e.Node.Address
		}
		if addr == "" {
			a.log.Warn("skipping consul instance without address", logger.Fields(logger.FieldEngineKey, instanceKey(e)))
			continue
		}
		records = append(records, discovery.Record{
			Key:       instanceKey(e),
			Addresses: []string{addr},
			Port:      e.Service.Port,
			Labels:    labels(e.Service),
			Backend:   Backend,
			Raw:       e.Service,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// instanceKey qualifies the service ID with the node name. Service IDs are
// only unique per agent and default to the service name.
func instanceKey(e *api.ServiceEntry) string {
	if e.Node == nil || e.Node.Node == "" {
		return e.Service.ID
	}
	return e.Node.Node + "/" + e.Service.ID
}

// labels merges service meta and tags. A tag becomes "<tag>=true" unless a
// meta key of the same name exists.
func labels(s *api.AgentService) map[string]string {
	out := make(map[string]string, len(s.Meta)+len(s.Tags))
	for _, tag := range s.Tags {
		out[tag] = "true"
	}
	for k, v := range s.Meta {
		out[k] = v
	}
	return out
}
