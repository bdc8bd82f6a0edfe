// Package docker discovers engines running as containers on a single Docker
// host (mode "local").
package docker

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the container summary appears in engine
// views.
const Backend = "local"

const localhost = "127.0.0.1"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeLocal, func(cfg discovery.Config, log *logger.Logger) (discovery.Adapter, error) {
		cli, err := NewClient(cfg.Docker)
		if err != nil {
			return nil, err
		}
		return NewAdapter(cli, cfg.Label, cfg.Docker, log)
	})
}

// NewClient creates a Docker Engine API client from cfg. An empty host falls
// back to DOCKER_HOST and the platform default socket.
func NewClient(cfg discovery.DockerConfig) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker: create client: %w", err)
	}
	return cli, nil
}

// ContainerAPI is the part of the Docker client the adapter uses.
type ContainerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// Adapter lists running containers carrying the discovery label.
type Adapter struct {
	client        ContainerAPI
	label         string
	containerized bool
	apiPort       nat.Port
	log           *logger.Logger
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter over cli.
func NewAdapter(cli ContainerAPI, label string, cfg discovery.DockerConfig, log *logger.Logger) (*Adapter, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &Adapter{client: cli, label: label, log: log}

	switch cfg.Containerized {
	case "true":
		a.containerized = true
	case "false":
	default:
		a.containerized = runningInContainer()
	}

	if cfg.APIPort != "" {
		proto, port := nat.SplitProtoPort(cfg.APIPort)
		p, err := nat.NewPort(proto, port)
		if err != nil {
			return nil, fmt.Errorf("docker: api_port %q: %w", cfg.APIPort, err)
		}
		a.apiPort = p
	}
	return a, nil
}

func runningInContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

func (a *Adapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	containers, err := a.client.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", a.label)),
	})
	if err != nil {
		return nil, fmt.Errorf("docker: list containers: %w", err)
	}

	records := make([]discovery.Record, 0, len(containers))
	for _, c := range containers {
		if _, ok := c.Labels[a.label]; !ok {
			continue
		}
		rec := discovery.Record{
			Key:     c.ID,
			Labels:  c.Labels,
			Backend: Backend,
			Raw:     c,
		}
		if a.containerized {
			rec.Addresses = networkAddresses(c)
			if len(rec.Addresses) == 0 {
				a.log.Warn("skipping container without network address", logger.Fields(logger.FieldContainerID, c.ID))
				continue
			}
		} else {
			rec.Addresses = []string{localhost}
			rec.Port = a.publishedPort(c)
		}
		records = append(records, rec)
	}
	return records, nil
}

// networkAddresses returns the container IPs ordered by network name.
func networkAddresses(c container.Summary) []string {
	if c.NetworkSettings == nil {
		return nil
	}
	names := make([]string, 0, len(c.NetworkSettings.Networks))
	for name := range c.NetworkSettings.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if ep := c.NetworkSettings.Networks[name]; ep != nil && ep.IPAddress != "" {
			out = append(out, ep.IPAddress)
		}
	}
	return out
}

// publishedPort returns the host port the API port is published on, 0 when
// it is not published.
func (a *Adapter) publishedPort(c container.Summary) int {
	if a.apiPort == "" {
		return 0
	}
	for _, p := range c.Ports {
		if p.PublicPort == 0 || int(p.PrivatePort) != a.apiPort.Int() || p.Type != a.apiPort.Proto() {
			continue
		}
		return int(p.PublicPort)
	}
	return 0
}

// Close releases the Docker client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
