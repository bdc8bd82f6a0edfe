// Package events publishes engine lifecycle changes to Kafka.
//
// A Publisher observes the discovery loop. Every successful cycle that adds
// or removes engines enqueues one JSON message per change:
//
//	{"type":"engine.added","key":"c0ffee","backend":"local",
//	 "address":"10.0.0.4","port":9076,"metricsPort":9090,"at":"2026-01-02T15:04:05Z"}
//
// Messages are keyed by engine key so that all changes of one engine land
// on the same partition. Delivery is best effort: a full queue drops the
// event and a failed write is logged, and neither affects discovery.
package events
