package engine

import (
	"fmt"
	"strconv"
	"time"
)

// Config controls how entries derive their ports and poll their endpoints.
type Config struct {
	UpdateInterval     time.Duration `yaml:"update_interval" mapstructure:"update_interval" validate:"gt=0"`
	APIPortLabel       string        `yaml:"api_port_label" mapstructure:"api_port_label"`
	MetricsPortLabel   string        `yaml:"metrics_port_label" mapstructure:"metrics_port_label"`
	DefaultAPIPort     int           `yaml:"default_api_port" mapstructure:"default_api_port" validate:"min=1,max=65535"`
	DefaultMetricsPort int           `yaml:"default_metrics_port" mapstructure:"default_metrics_port" validate:"min=1,max=65535"`
	HealthPath         string        `yaml:"health_path" mapstructure:"health_path" validate:"startswith=/"`
	MetricsPath        string        `yaml:"metrics_path" mapstructure:"metrics_path" validate:"startswith=/"`
}

// ApplyDefaults fills unset fields with the engine defaults.
func (c *Config) ApplyDefaults() {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = 10 * time.Second
	}
	if c.APIPortLabel == "" {
		c.APIPortLabel = "qix-engine-api-port"
	}
	if c.MetricsPortLabel == "" {
		c.MetricsPortLabel = "qix-engine-metrics-port"
	}
	if c.DefaultAPIPort == 0 {
		c.DefaultAPIPort = 9076
	}
	if c.DefaultMetricsPort == 0 {
		c.DefaultMetricsPort = 9090
	}
	if c.HealthPath == "" {
		c.HealthPath = "/healthcheck"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

// Validate checks fields that ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("engine.update_interval must be positive")
	}
	return nil
}

// Ports resolves the API and metrics ports of an engine. A port label wins,
// then the port declared by the orchestrator (API port only), then the
// configured default. Unparseable label values are ignored.
func (c *Config) Ports(labels map[string]string, declared int) (api, metrics int) {
	api, metrics = c.DefaultAPIPort, c.DefaultMetricsPort
	if declared > 0 {
		api = declared
	}
	if p, ok := labelPort(labels, c.APIPortLabel); ok {
		api = p
	}
	if p, ok := labelPort(labels, c.MetricsPortLabel); ok {
		metrics = p
	}
	return api, metrics
}

func labelPort(labels map[string]string, label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	raw, ok := labels[label]
	if !ok {
		return 0, false
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p <= 0 || p > 65535 {
		return 0, false
	}
	return p, true
}
