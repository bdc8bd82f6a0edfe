package config

import (
	"errors"
	"fmt"

	"github.com/kbukum/mira/logger"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// ServiceConfig is the part of the configuration shared by every binary:
// identity, environment and logging. Binaries embed it with
// `mapstructure:",squash"` so its keys sit at the top level.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// Service returns c. The method is promoted to structs embedding
// ServiceConfig.
func (c *ServiceConfig) Service() *ServiceConfig { return c }

// IsProduction reports whether the service runs in production.
func (c *ServiceConfig) IsProduction() bool { return c.Environment == EnvProduction }

// ApplyDefaults runs in development unless told otherwise. Production
// defaults to JSON logs.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	if c.IsProduction() && c.Logging.Format == "" {
		c.Logging.Format = logger.FormatJSON
	}
	c.Logging.ApplyDefaults()
}

// Validate reports every problem with the shared fields.
func (c *ServiceConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("environment %q is not one of development, staging, production", c.Environment))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
