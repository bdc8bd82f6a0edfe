// Package component defines the lifecycle contract shared by the long-lived
// parts of mira: the HTTP server, the discovery loop, the event publisher
// and the telemetry providers.
//
// Components are registered with a Registry, started in registration order
// and stopped in reverse order. Optional interfaces let a component describe
// itself and its routes for the startup summary.
package component
