package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestWriterMetricsAccumulates(t *testing.T) {
	var m WriterMetrics
	m.Add(kafkago.WriterStats{
		Writes: 2, Messages: 5, Bytes: 512, Errors: 1, Retries: 3,
		WriteTime: kafkago.DurationStats{Max: 40 * time.Millisecond},
	})
	m.Add(kafkago.WriterStats{
		Writes: 1, Messages: 2, Bytes: 100,
		WriteTime: kafkago.DurationStats{Max: 10 * time.Millisecond},
	})

	assert.Equal(t, WriterMetrics{
		Writes: 3, Messages: 7, Bytes: 612, Errors: 1, Retries: 3,
		MaxWriteTime: 40 * time.Millisecond,
	}, m)
	assert.Equal(t, "kafka_messages=7 kafka_errors=1 kafka_retries=3", m.String())
}

func TestWriterMetricsZero(t *testing.T) {
	var m WriterMetrics
	m.Add(kafkago.WriterStats{})
	assert.Zero(t, m)
}
