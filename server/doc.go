// Package server provides the HTTP server of mira: Gin routes served over
// HTTP/1.1 and h2c, wrapped as a lifecycle component.
//
// # Middleware
//
// Applied at the handler level by ApplyMiddleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin headers and preflight answers
//   - RequestLogger: one log line per request, probes skipped
//
// # Endpoints
//
// Registered from server/endpoint:
//
//   - GET /v1/engines: engine listing, filtered by the properties query
//   - GET /v1/engines/:key: a single engine
//   - GET /health, /v1/health: component health aggregation
//   - GET /alive, /ready: orchestrator probes
//   - GET /info, /version: build information
package server
