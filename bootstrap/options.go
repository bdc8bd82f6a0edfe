package bootstrap

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/kbukum/mira/logger"
)

// Option customizes NewApp.
type Option func(*settings)

type settings struct {
	log             *logger.Logger
	shutdownTimeout time.Duration
	summary         io.Writer
	signals         []os.Signal
}

func defaultSettings() settings {
	return settings{
		shutdownTimeout: 15 * time.Second,
		summary:         os.Stdout,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithShutdownTimeout bounds the Stopping hooks and component shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithSummaryOutput sends the startup summary to w instead of stdout.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *settings) { s.summary = w }
}

// WithSignals overrides the signals that trigger shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(s *settings) { s.signals = sigs }
}
