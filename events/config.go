package events

import (
	"fmt"

	"github.com/kbukum/mira/kafka"
)

// Config enables lifecycle events and carries the broker settings.
type Config struct {
	kafka.Config `yaml:",inline" mapstructure:",squash"`

	Topic string `yaml:"topic" mapstructure:"topic"`
	// Buffer is the number of events queued before new ones are dropped.
	Buffer int `yaml:"buffer" mapstructure:"buffer" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults()
	if c.Topic == "" {
		c.Topic = "mira.engines"
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
}

// Validate checks the broker settings when events are enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Topic == "" {
		return fmt.Errorf("events topic is required")
	}
	return c.Config.Validate()
}
