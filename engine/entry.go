package engine

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/props"
)

// Info is the identity and connection data an Entry is created from.
type Info struct {
	Key     string
	Address string
	// DeclaredPort is the API port reported by the orchestrator, 0 if none.
	DeclaredPort int
	Labels       map[string]string
	Backend      string
	Raw          any
}

// Option configures an Entry.
type Option func(*Entry)

// WithLogger logs status transitions through an "engine" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Entry) { e.log = l.WithComponent("engine") }
}

// WithObserver registers an observer notified after each applied check.
func WithObserver(o Observer) Option {
	return func(e *Entry) { e.observer = o }
}

// Entry is one tracked engine. Identity and connection fields are fixed at
// creation; payloads, status and properties change only through the entry's
// own polling cycles.
type Entry struct {
	key         string
	address     string
	apiPort     int
	metricsPort int
	labels      map[string]string
	backend     string
	raw         any

	interval    time.Duration
	healthPath  string
	metricsPath string
	fetcher     StatusFetcher
	observer    Observer
	log         *logger.Logger

	mu sync.Mutex
	// generation is bumped on every start and stop; a check only applies
	// its result while the generation it was scheduled under is current.
	generation uint64
	running    bool
	cancel     context.CancelFunc
	timers     map[Check]*time.Timer
	health     outcome
	metrics    outcome
	status     Status
	properties *props.Properties
}

// NewEntry creates an idle entry. Polling begins with StartStatusChecks.
func NewEntry(info Info, cfg Config, fetcher StatusFetcher, opts ...Option) *Entry {
	api, metrics := cfg.Ports(info.Labels, info.DeclaredPort)
	labels := make(map[string]string, len(info.Labels))
	for k, v := range info.Labels {
		labels[k] = v
	}
	e := &Entry{
		key:         info.Key,
		address:     info.Address,
		apiPort:     api,
		metricsPort: metrics,
		labels:      labels,
		backend:     info.Backend,
		raw:         info.Raw,
		interval:    cfg.UpdateInterval,
		healthPath:  cfg.HealthPath,
		metricsPath: cfg.MetricsPath,
		fetcher:     fetcher,
		timers:      make(map[Check]*time.Timer, 2),
		status:      StatusPending,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	e.properties = e.buildProperties()
	return e
}

func (e *Entry) Key() string { return e.key }
func (e *Entry) Address() string { return e.address }
func (e *Entry) APIPort() int { return e.apiPort }
func (e *Entry) MetricsPort() int { return e.metricsPort }
func (e *Entry) Backend() string { return e.backend }
func (e *Entry) Raw() any { return e.raw }
func (e *Entry) Labels() map[string]string { return e.labels }

// Status returns the current derived status.
func (e *Entry) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Health returns the last successful health payload, nil when the last
// health check failed or none completed yet.
func (e *Entry) Health() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.health.payload
}

// Metrics returns the last successful metrics payload.
func (e *Entry) Metrics() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics.payload
}

// Properties returns the property set queries are evaluated against. The
// returned set is replaced, never mutated, so callers may keep it.
func (e *Entry) Properties() *props.Properties {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.properties
}

// Running reports whether polling is active.
func (e *Entry) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// StartStatusChecks schedules the first health and metrics checks one
// interval from now. A running schedule is stopped first and any result it
// still has in flight is discarded.
func (e *Entry) StartStatusChecks() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	gen := e.generation
	e.scheduleLocked(ctx, CheckHealth, gen)
	e.scheduleLocked(ctx, CheckMetrics, gen)
}

// StopStatusChecks cancels both cycles. It is safe to call repeatedly.
func (e *Entry) StopStatusChecks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Entry) stopLocked() {
	e.generation++
	for check, t := range e.timers {
		t.Stop()
		delete(e.timers, check)
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.running = false
}

func (e *Entry) scheduleLocked(ctx context.Context, check Check, gen uint64) {
	e.timers[check] = time.AfterFunc(e.interval, func() {
		e.runCheck(ctx, check, gen)
	})
}

func (e *Entry) runCheck(ctx context.Context, check Check, gen uint64) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	port, path := e.apiPort, e.healthPath
	if check == CheckMetrics {
		port, path = e.metricsPort, e.metricsPath
	}
	e.mu.Unlock()

	payload, err := e.fetcher.Fetch(ctx, e.address, port, path)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return
	}
	e.applyLocked(check, payload, err)
	if e.observer != nil {
		e.observer.CheckCompleted(ctx, check, err)
	}
	e.scheduleLocked(ctx, check, gen)
}

func (e *Entry) applyLocked(check Check, payload any, err error) {
	o := outcome{done: true, err: err}
	if err == nil {
		o.payload = payload
	}
	if check == CheckHealth {
		e.health = o
	} else {
		e.metrics = o
	}
	if err != nil {
		e.log.Debug("status check failed", logger.Fields(
			logger.FieldEngineKey, e.key, "check", string(check), logger.FieldError, err.Error()))
	}

	prev := e.status
	e.status = deriveStatus(e.health, e.metrics)
	e.properties = e.buildProperties()
	if prev != e.status {
		e.log.Info("engine status changed", logger.Fields(
			logger.FieldEngineKey, e.key, "from", string(prev), "to", string(e.status)))
	}
}

// buildProperties merges labels, then the flattened health payload, then
// the flattened metrics payload when it is an object. Earlier sources win.
func (e *Entry) buildProperties() *props.Properties {
	p := props.FromLabels(e.labels)
	props.FlattenInto(p, e.health.payload)
	props.FlattenInto(p, e.metrics.payload)
	return p
}
