// Package kafka holds the broker connection settings shared by mira's
// event producer: TLS and SASL transport setup, compression codecs and
// the classification of broker errors into retryable and terminal ones.
//
//	events:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  topic: mira.engines
//
// The producer itself lives in kafka/producer.
package kafka
