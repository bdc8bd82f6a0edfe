package logger

import "sync/atomic"

var global atomic.Pointer[Logger]

// Init replaces the global logger with one built from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	name := cfg.ServiceName
	if name == "" {
		name = "mira"
	}
	SetGlobalLogger(New(&cfg, name))
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger. Before Init it is a console
// logger at info level.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	global.CompareAndSwap(nil, New(&cfg, "mira"))
	return global.Load()
}

// WithComponent derives a component logger from the global one.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
