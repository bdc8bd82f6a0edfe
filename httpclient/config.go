package httpclient

import (
	"errors"
	"time"
)

const (
	defaultTimeout             = 10 * time.Second
	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 90 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxIdleConnsPerHost caps kept-alive connections per engine.
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`

	// IdleConnTimeout closes kept-alive connections after this long.
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout" validate:"gte=0"`

	// Headers are applied to every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// MaxBodyBytes caps the response body size. Zero means no limit.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
}

// Validate runs after ApplyDefaults, so only negative values can be wrong.
func (c *Config) Validate() error {
	if c.MaxBodyBytes < 0 {
		return errors.New("httpclient: max_body_bytes must not be negative")
	}
	return nil
}
