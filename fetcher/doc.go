// Package fetcher retrieves health and metrics payloads from engines over
// HTTP. JSON bodies are decoded as generic values; Prometheus text
// exposition bodies are converted into a list of metric families so both
// shapes can be served and queried the same way.
package fetcher
