package discovery

import (
	"fmt"
	"time"

	"github.com/kbukum/mira/security"
)

// Modes accepted by Config.Mode.
const (
	ModeLocal      = "local"
	ModeSwarm      = "swarm"
	ModeKubernetes = "kubernetes"
	ModeDNS        = "dns"
	ModeConsul     = "consul"
	ModeNone       = "none"
	ModeStatic     = "static"
)

// Config selects the orchestrator backend and the reconciliation schedule.
type Config struct {
	Mode     string        `yaml:"mode" mapstructure:"mode" validate:"oneof=local swarm kubernetes dns consul none static"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
	// Label marks engine containers, tasks and pods.
	Label string `yaml:"label" mapstructure:"label" validate:"required"`

	Docker     DockerConfig     `yaml:"docker" mapstructure:"docker"`
	Swarm      SwarmConfig      `yaml:"swarm" mapstructure:"swarm"`
	Kubernetes KubernetesConfig `yaml:"kubernetes" mapstructure:"kubernetes"`
	DNS        DNSConfig        `yaml:"dns" mapstructure:"dns"`
	Consul     ConsulConfig     `yaml:"consul" mapstructure:"consul"`
	Static     StaticConfig     `yaml:"static" mapstructure:"static"`
}

// DockerConfig configures the local container and swarm backends.
type DockerConfig struct {
	// Host overrides DOCKER_HOST, e.g. unix:///var/run/docker.sock.
	Host       string `yaml:"host" mapstructure:"host"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	// Containerized says whether mira itself runs in a container on the same
	// host: "auto" checks for /.dockerenv, "true" and "false" force it.
	Containerized string `yaml:"containerized" mapstructure:"containerized" validate:"omitempty,oneof=auto true false"`
	// APIPort is the container port, as "port/proto", whose published host
	// port is reported when mira runs on the host.
	APIPort string `yaml:"api_port" mapstructure:"api_port"`
}

// SwarmConfig configures the swarm backend.
type SwarmConfig struct {
	// Networks is the allow-list of overlay networks engines are polled on.
	// Required when engines attach to more than one network.
	Networks []string `yaml:"networks" mapstructure:"networks"`
}

// KubernetesConfig configures the pod backend.
type KubernetesConfig struct {
	Namespace  string `yaml:"namespace" mapstructure:"namespace"`
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
	// PortName names the container port reported as the API port.
	PortName string `yaml:"port_name" mapstructure:"port_name"`
}

// DNSConfig configures the DNS backend.
type DNSConfig struct {
	Hostname string `yaml:"hostname" mapstructure:"hostname"`
	// Server is host:port of the resolver; /etc/resolv.conf when empty.
	Server  string        `yaml:"server" mapstructure:"server"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ConsulConfig configures the Consul catalog backend.
type ConsulConfig struct {
	Address    string `yaml:"address" mapstructure:"address"`
	Scheme     string `yaml:"scheme" mapstructure:"scheme"`
	Token      string `yaml:"token" mapstructure:"token"`
	Datacenter string `yaml:"datacenter" mapstructure:"datacenter"`
	Service    string `yaml:"service" mapstructure:"service"`
	Tag        string `yaml:"tag" mapstructure:"tag"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// StaticConfig lists engines for the static backend.
type StaticConfig struct {
	Endpoints []StaticEndpoint `yaml:"endpoints" mapstructure:"endpoints"`
}

// StaticEndpoint is one statically configured engine.
type StaticEndpoint struct {
	Key     string            `yaml:"key" mapstructure:"key"`
	Address string            `yaml:"address" mapstructure:"address"`
	Port    int               `yaml:"port" mapstructure:"port"`
	Labels  map[string]string `yaml:"labels" mapstructure:"labels"`
}

// ApplyDefaults fills zero-valued fields with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeLocal
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.Label == "" {
		c.Label = "qix-engine"
	}
	if c.Docker.Containerized == "" {
		c.Docker.Containerized = "auto"
	}
	if c.Docker.APIPort == "" {
		c.Docker.APIPort = "9076/tcp"
	}
	if c.Kubernetes.PortName == "" {
		c.Kubernetes.PortName = "qix"
	}
	if c.DNS.Timeout <= 0 {
		c.DNS.Timeout = 5 * time.Second
	}
	if c.Consul.Address == "" {
		c.Consul.Address = "localhost:8500"
	}
	if c.Consul.Scheme == "" {
		c.Consul.Scheme = "http"
	}
	if c.Consul.Service == "" {
		c.Consul.Service = c.Label
	}
}

// Validate checks the cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDNS:
		if c.DNS.Hostname == "" {
			return fmt.Errorf("discovery.dns.hostname is required in dns mode")
		}
	case ModeConsul:
		if err := c.Consul.TLS.Validate(); err != nil {
			return fmt.Errorf("discovery.consul.tls: %w", err)
		}
	case ModeStatic:
		for i, ep := range c.Static.Endpoints {
			if ep.Address == "" {
				return fmt.Errorf("discovery.static.endpoints[%d].address is required", i)
			}
		}
	}
	return nil
}
