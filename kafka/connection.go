package kafka

import (
	"fmt"
	"net"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

var saslMechanisms = map[string]func(user, pass string) (sasl.Mechanism, error){
	SASLPlain: func(user, pass string) (sasl.Mechanism, error) {
		return plain.Mechanism{Username: user, Password: pass}, nil
	},
	SASLScramSHA256: func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA256, user, pass)
	},
	SASLScramSHA512: func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA512, user, pass)
	},
}

var codecs = map[string]kafkago.Compression{
	"none":   0,
	"gzip":   kafkago.Gzip,
	"snappy": kafkago.Snappy,
	"lz4":    kafkago.Lz4,
	"zstd":   kafkago.Zstd,
}

// CompressionCodec maps a configured codec name to kafka-go's value. The
// empty name means snappy.
func CompressionCodec(name string) (kafkago.Compression, error) {
	if name == "" {
		return kafkago.Snappy, nil
	}
	c, ok := codecs[name]
	if !ok {
		return 0, fmt.Errorf("unsupported compression %q", name)
	}
	return c, nil
}

// NewTransport builds the kafka-go transport shared by every write: client
// ID, dial and idle timeouts, metadata refresh, TLS and SASL.
func NewTransport(cfg *Config) (*kafkago.Transport, error) {
	t := &kafkago.Transport{
		ClientID:    cfg.ClientID,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
	}
	if cfg.DialTimeout > 0 {
		d := &net.Dialer{Timeout: cfg.DialTimeout}
		t.Dial = d.DialContext
	}

	tc, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("kafka tls: %w", err)
	}
	t.TLS = tc

	if cfg.EnableSASL {
		build, ok := saslMechanisms[cfg.SASLMechanism]
		if !ok {
			return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.SASLMechanism)
		}
		m, err := build(cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("kafka sasl: %w", err)
		}
		t.SASL = m
	}
	return t, nil
}
