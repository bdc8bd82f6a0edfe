package main

import (
	"fmt"

	"github.com/kbukum/mira/config"
	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/events"
	"github.com/kbukum/mira/fetcher"
	"github.com/kbukum/mira/observability"
	"github.com/kbukum/mira/server"
	"github.com/kbukum/mira/validation"
)

// Config is the full mira service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Discovery     discovery.Config     `yaml:"discovery" mapstructure:"discovery"`
	Engine        engine.Config        `yaml:"engine" mapstructure:"engine"`
	Fetcher       fetcher.Config       `yaml:"fetcher" mapstructure:"fetcher"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Events        events.Config        `yaml:"events" mapstructure:"events"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "mira"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Discovery.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Fetcher.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Events.ApplyDefaults()
}

// Validate runs the struct tag checks, then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	sections := []struct {
		name string
		fn   func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"discovery", c.Discovery.Validate},
		{"engine", c.Engine.Validate},
		{"observability", c.Observability.Validate},
		{"events", c.Events.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
