// Package producer writes JSON messages to Kafka with bounded retries.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/mira/kafka"
	"github.com/kbukum/mira/logger"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("producer is closed")

const (
	baseBackoff = 100 * time.Millisecond
	maxBackoff  = 2 * time.Second
)

// messageWriter is the part of *kafkago.Writer the producer drives.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer sends messages through a kafka-go Writer, retrying failures that
// kafka.Classify does not call fatal.
type Producer struct {
	w       messageWriter
	cfg     kafka.Config
	log     *logger.Logger
	backoff func(attempt int) time.Duration
	closed  atomic.Bool

	statsMu sync.Mutex
	totals  kafka.WriterMetrics
}

// NewProducer validates cfg and builds the writer. Brokers are dialed on
// the first write, so an unreachable cluster is not an error here.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	if !cfg.Enabled {
		return nil, errors.New("kafka is disabled")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}

	transport, err := kafka.NewTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	codec, err := kafka.CompressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	log = log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  codec,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf(msg, args...), logger.Fields(logger.FieldOperation, "kafka.write"))
		}),
	}

	log.Info("Kafka producer ready", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
		"acks", cfg.RequiredAcks,
	))
	return newProducer(w, cfg, log), nil
}

func newProducer(w messageWriter, cfg kafka.Config, log *logger.Logger) *Producer {
	return &Producer{w: w, cfg: cfg, log: log, backoff: exponential}
}

// exponential doubles the wait per attempt from baseBackoff up to maxBackoff.
func exponential(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(baseBackoff<<(attempt-1), maxBackoff)
}

// WriteMessages sends msgs, making up to cfg.Retries attempts. Fatal errors
// and context cancellation end the loop at once.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if p.closed.Load() {
		return ErrClosed
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = p.w.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		class := kafka.Classify(err)
		if class == kafka.ClassFatal {
			return err
		}
		if attempt >= p.cfg.Retries {
			break
		}
		p.log.Debug("Kafka write failed, retrying", logger.Fields(
			"attempt", attempt,
			"class", class.String(),
			logger.FieldError, err.Error(),
		))

		t := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("kafka write failed after %d attempts: %w", p.cfg.Retries, err)
}

// SendJSON marshals value and sends it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	return p.WriteMessages(ctx, kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: []kafkago.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
}

// Metrics returns the writer counters accumulated since the producer was
// built. kafka-go resets its stats on every read.
func (p *Producer) Metrics() kafka.WriterMetrics {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.totals.Add(p.w.Stats())
	return p.totals
}

// Close flushes pending batches and closes the writer. Later calls are
// no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.log.Info("Kafka producer closing")
	return p.w.Close()
}
