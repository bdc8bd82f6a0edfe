package errors

import "net/http"

// Code is the machine-readable error code served to API clients.
type Code string

const (
	// CodeDiscoveryUnavailable means the last orchestrator listing failed,
	// or none has completed yet.
	CodeDiscoveryUnavailable Code = "DISCOVERY_UNAVAILABLE"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// HTTPStatus is the status a response carrying c is served with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeDiscoveryUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether repeating the request may succeed. Discovery
// recovers on the next successful cycle.
func (c Code) Retryable() bool {
	return c == CodeDiscoveryUnavailable
}
