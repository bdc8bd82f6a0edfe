package kafka

import (
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// WriterMetrics is a running total of kafka-go writer statistics.
// Writer.Stats resets its counters on every call, so snapshots are folded
// in with Add.
type WriterMetrics struct {
	Writes       int64         `json:"writes"`
	Messages     int64         `json:"messages"`
	Bytes        int64         `json:"bytes"`
	Errors       int64         `json:"errors"`
	Retries      int64         `json:"retries"`
	MaxWriteTime time.Duration `json:"max_write_time"`
}

// Add folds one Stats snapshot into the totals.
func (m *WriterMetrics) Add(stats kafkago.WriterStats) {
	m.Writes += stats.Writes
	m.Messages += stats.Messages
	m.Bytes += stats.Bytes
	m.Errors += stats.Errors
	m.Retries += stats.Retries
	if stats.WriteTime.Max > m.MaxWriteTime {
		m.MaxWriteTime = stats.WriteTime.Max
	}
}

// String renders the totals for health messages.
func (m WriterMetrics) String() string {
	return fmt.Sprintf("kafka_messages=%d kafka_errors=%d kafka_retries=%d",
		m.Messages, m.Errors, m.Retries)
}
