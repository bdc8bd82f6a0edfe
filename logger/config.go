package logger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config contains logging configuration.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format      string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console pretty"`
	Output      string `yaml:"output" mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs at info to stdout in console format, with timestamps.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if lvl, err := zerolog.ParseLevel(c.Level); err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled {
		errs = append(errs, fmt.Errorf("logging.level %q is not a log level", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole, FormatPretty:
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json, console or pretty", c.Format))
	}
	return errors.Join(errs...)
}
