package fetcher

import (
	"time"

	"github.com/kbukum/mira/httpclient"
)

// Config configures engine polling requests.
type Config struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// MaxBodyBytes caps a payload. A larger body fails the fetch.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 4 << 20
	}
}

func (c Config) client() httpclient.Config {
	return httpclient.Config{
		Timeout:      c.Timeout,
		MaxBodyBytes: c.MaxBodyBytes,
		Headers:      map[string]string{"User-Agent": "mira"},
	}
}
