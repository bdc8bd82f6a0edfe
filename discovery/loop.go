package discovery

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kbukum/mira/errors"
	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/query"
)

// State is the outcome of the most recent discovery attempt.
type State struct {
	Success bool
	Err     error
	At      time.Time
}

// CycleResult describes one finished discovery cycle.
type CycleResult struct {
	Mode     string
	Added    []*engine.Entry
	Removed  []*engine.Entry
	Total    int
	Duration time.Duration
	Err      error
}

// Observer is notified around every discovery cycle. CycleStarted may
// return a derived context that is passed to the adapter.
type Observer interface {
	CycleStarted(ctx context.Context) context.Context
	CycleFinished(ctx context.Context, res CycleResult)
}

// EntryBuilder creates the registry entry for a newly seen record.
type EntryBuilder func(rec Record) *engine.Entry

// NewEntryBuilder returns an EntryBuilder creating entries polled through
// fetcher with the given engine config.
func NewEntryBuilder(cfg engine.Config, fetcher engine.StatusFetcher, opts ...engine.Option) EntryBuilder {
	return func(rec Record) *engine.Entry {
		return engine.NewEntry(engine.Info{
			Key:          rec.Key,
			Address:      rec.Address(),
			DeclaredPort: rec.Port,
			Labels:       rec.Labels,
			Backend:      rec.Backend,
			Raw:          rec.Raw,
		}, cfg, fetcher, opts...)
	}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger logs the loop through a "discovery" component logger.
func WithLogger(l *logger.Logger) LoopOption {
	return func(lp *Loop) { lp.log = l.WithComponent("discovery") }
}

// WithObserver adds a cycle observer.
func WithObserver(o Observer) LoopOption {
	return func(lp *Loop) { lp.observers = append(lp.observers, o) }
}

// Loop reconciles the registry against an adapter on a fixed interval. The
// next cycle is scheduled only after the current one returned.
type Loop struct {
	adapter   Adapter
	registry  *engine.Registry
	build     EntryBuilder
	mode      string
	interval  time.Duration
	log       *logger.Logger
	observers []Observer

	// cycleMu serializes reconciliation so Refresh and the schedule never
	// interleave.
	cycleMu sync.Mutex

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a stopped loop.
func NewLoop(adapter Adapter, registry *engine.Registry, build EntryBuilder, cfg Config, opts ...LoopOption) *Loop {
	l := &Loop{
		adapter:  adapter,
		registry: registry,
		build:    build,
		mode:     cfg.Mode,
		interval: cfg.Interval,
		state:    State{Err: apperrors.DiscoveryUnavailable(cfg.Mode, ErrNotStarted)},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	if l.interval <= 0 {
		l.interval = 10 * time.Second
	}
	return l
}

// Registry returns the registry the loop reconciles.
func (l *Loop) Registry() *engine.Registry { return l.registry }

// Mode returns the configured discovery mode.
func (l *Loop) Mode() string { return l.mode }

// State returns the outcome of the most recent attempt.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Refresh runs one discovery cycle. On adapter failure the registry is left
// as it is and the failure becomes the loop state.
func (l *Loop) Refresh(ctx context.Context) error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	start := time.Now()
	for _, o := range l.observers {
		ctx = o.CycleStarted(ctx)
	}

	res := CycleResult{Mode: l.mode}
	records, err := l.adapter.ListEngines(ctx)
	if err != nil {
		res.Err = apperrors.DiscoveryUnavailable(l.mode, err)
		l.setState(State{Err: res.Err, At: time.Now()})
		l.log.Warn("engine discovery failed", logger.Fields(
			logger.FieldMode, l.mode, logger.FieldError, err.Error()))
	} else {
		res.Added, res.Removed = l.reconcile(records)
		l.setState(State{Success: true, At: time.Now()})
		if len(res.Added) > 0 || len(res.Removed) > 0 {
			l.log.Info("engines reconciled", logger.Fields(
				logger.FieldMode, l.mode,
				"added", len(res.Added),
				"removed", len(res.Removed),
				"total", l.registry.Len()))
		}
	}

	res.Total = l.registry.Len()
	res.Duration = time.Since(start)
	for _, o := range l.observers {
		o.CycleFinished(ctx, res)
	}
	return res.Err
}

func (l *Loop) reconcile(records []Record) (added, removed []*engine.Entry) {
	keys := make([]string, 0, len(records))
	byKey := make(map[string]Record, len(records))
	for _, rec := range records {
		if rec.Key == "" {
			l.log.Warn("ignoring engine without key", logger.Fields(logger.FieldAddress, rec.Address()))
			continue
		}
		if _, dup := byKey[rec.Key]; dup {
			l.log.Warn("ignoring duplicate engine key", logger.Fields(logger.FieldEngineKey, rec.Key))
			continue
		}
		byKey[rec.Key] = rec
		keys = append(keys, rec.Key)
	}

	removed = l.registry.Delete(l.registry.Difference(keys)...)

	for _, key := range keys {
		if l.registry.Has(key) {
			continue
		}
		entry := l.build(byKey[key])
		if err := l.registry.Add(key, entry); err != nil {
			l.log.Error("failed to add engine", logger.Fields(
				logger.FieldEngineKey, key, logger.FieldError, err.Error()))
			continue
		}
		added = append(added, entry)
	}
	return added, removed
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// List returns the tracked entries, filtered through query.Select when
// constraint sets are given. It fails with the last error while the most
// recent discovery attempt is a failure.
func (l *Loop) List(sets ...query.Constraints) ([]*engine.Entry, error) {
	st := l.State()
	if !st.Success {
		return nil, st.Err
	}
	return query.Select(l.registry.All(), sets...), nil
}

// Start runs the first cycle synchronously, then keeps reconciling every
// interval until Stop. A failed first cycle is recorded in the state, not
// returned, so the service can come up while its orchestrator is down.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	_ = l.Refresh(runCtx)

	go l.run(runCtx, done)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_ = l.Refresh(ctx)
			timer.Reset(l.interval)
		}
	}
}

// Stop ends the schedule, waits for a running cycle to finish and removes
// every entry, stopping its polling.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	l.registry.DeleteAll()
}
