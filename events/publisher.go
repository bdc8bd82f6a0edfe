package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/kafka"
	"github.com/kbukum/mira/kafka/producer"
	"github.com/kbukum/mira/logger"
)

var (
	_ discovery.Observer    = (*Publisher)(nil)
	_ component.Component   = (*Publisher)(nil)
	_ component.Describable = (*Publisher)(nil)
	_ StatsReporter         = (*producer.Producer)(nil)
)

// Sender writes one JSON value to a topic. *producer.Producer implements it.
type Sender interface {
	SendJSON(ctx context.Context, topic, key string, value interface{}) error
	Close() error
}

// StatsReporter is implemented by senders that keep delivery counters.
type StatsReporter interface {
	Metrics() kafka.WriterMetrics
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// Publisher turns discovery cycle results into Kafka messages. Sends run
// on a single worker so the discovery loop never waits on the broker.
type Publisher struct {
	cfg    Config
	sender Sender
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	queue   chan Event
	running bool
	done    chan struct{}

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New builds a Publisher writing through a Kafka producer.
func New(cfg Config, log *logger.Logger) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("events config: %w", err)
	}
	p, err := producer.NewProducer(cfg.Config, log)
	if err != nil {
		return nil, err
	}
	return NewPublisher(cfg, p, log), nil
}

// NewPublisher builds a Publisher writing through sender.
func NewPublisher(cfg Config, sender Sender, log *logger.Logger, opts ...Option) *Publisher {
	cfg.ApplyDefaults()
	p := &Publisher{
		cfg:    cfg,
		sender: sender,
		log:    log.WithComponent("events"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Name() string { return "events" }

// Start launches the send worker.
func (p *Publisher) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("events publisher already started")
	}
	p.queue = make(chan Event, p.cfg.Buffer)
	p.done = make(chan struct{})
	p.running = true
	go p.run(p.queue, p.done)
	p.log.Info("events publisher started", logger.Fields("topic", p.cfg.Topic, "buffer", p.cfg.Buffer))
	return nil
}

// Stop drains queued events until ctx expires, then closes the sender.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.queue)
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		p.log.Warn("events publisher stopped before the queue drained",
			logger.Fields("pending", len(p.queue)))
	}
	return p.sender.Close()
}

func (p *Publisher) run(queue <-chan Event, done chan<- struct{}) {
	defer close(done)
	for ev := range queue {
		p.send(ev)
	}
}

func (p *Publisher) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.sender.SendJSON(ctx, p.cfg.Topic, ev.Key, ev); err != nil {
		p.failed.Add(1)
		p.log.Error("event publish failed", logger.Fields(
			"type", ev.Type, logger.FieldEngineKey, ev.Key, logger.FieldError, err.Error()))
		return
	}
	p.published.Add(1)
}

// CycleStarted implements discovery.Observer.
func (p *Publisher) CycleStarted(ctx context.Context) context.Context { return ctx }

// CycleFinished enqueues one event per added and removed engine. Failed
// cycles change nothing and publish nothing.
func (p *Publisher) CycleFinished(_ context.Context, res discovery.CycleResult) {
	if res.Err != nil {
		return
	}
	at := p.now()
	p.enqueue(TypeAdded, res.Added, at)
	p.enqueue(TypeRemoved, res.Removed, at)
}

func (p *Publisher) enqueue(typ string, entries []*engine.Entry, at time.Time) {
	if len(entries) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	for _, e := range entries {
		select {
		case p.queue <- NewEvent(typ, e, at):
		default:
			p.dropped.Add(1)
			p.log.Warn("event queue full, dropping event", logger.Fields(
				"type", typ, logger.FieldEngineKey, e.Key()))
		}
	}
}

// Health reports the delivery counters. Failed writes do not make the
// publisher unhealthy; events are best effort.
func (p *Publisher) Health(_ context.Context) component.Health {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return component.Health{Name: p.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	status := component.StatusHealthy
	if p.failed.Load() > 0 || p.dropped.Load() > 0 {
		status = component.StatusDegraded
	}
	msg := fmt.Sprintf("published=%d failed=%d dropped=%d",
		p.published.Load(), p.failed.Load(), p.dropped.Load())
	if r, ok := p.sender.(StatsReporter); ok {
		msg += " " + r.Metrics().String()
	}
	return component.Health{Name: p.Name(), Status: status, Message: msg}
}

// Describe returns summary info for the startup display.
func (p *Publisher) Describe() component.Description {
	return component.Description{
		Name:    "Engine Events",
		Type:    "kafka",
		Details: fmt.Sprintf("topic=%s brokers=%v", p.cfg.Topic, p.cfg.Brokers),
	}
}
