package kafka

import (
	"fmt"
	"time"

	"github.com/kbukum/mira/security"
)

// SASL mechanisms accepted by Config.SASLMechanism.
const (
	SASLPlain       = "PLAIN"
	SASLScramSHA256 = "SCRAM-SHA-256"
	SASLScramSHA512 = "SCRAM-SHA-512"
)

// Config holds Kafka connection and producer settings.
type Config struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers  []string `yaml:"brokers" mapstructure:"brokers" validate:"omitempty,dive,hostname_port"`
	ClientID string   `yaml:"client_id" mapstructure:"client_id"`

	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	EnableSASL    bool   `yaml:"enable_sasl" mapstructure:"enable_sasl"`
	SASLMechanism string `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism" validate:"omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`

	Compression  string        `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
	Retries      int           `yaml:"retries" mapstructure:"retries" validate:"gte=0"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	// RequiredAcks is -1 (all in-sync replicas), 1 (leader) or 0 (none).
	// Zero is replaced by -1; set 0 through a client that never waits.
	RequiredAcks int `yaml:"required_acks" mapstructure:"required_acks" validate:"oneof=-1 0 1"`

	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`
	MetadataTTL time.Duration `yaml:"metadata_ttl" mapstructure:"metadata_ttl" validate:"gte=0"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.ClientID == "" {
		c.ClientID = "mira"
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = 6 * time.Second
	}
	if c.EnableSASL && c.SASLMechanism == "" {
		c.SASLMechanism = SASLPlain
	}
}

// Validate checks the rules that only apply once Kafka is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers are required")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	if c.EnableSASL {
		if _, ok := saslMechanisms[c.SASLMechanism]; !ok {
			return fmt.Errorf("unsupported SASL mechanism %q", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	if _, err := CompressionCodec(c.Compression); err != nil {
		return err
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0")
	}
	return nil
}
