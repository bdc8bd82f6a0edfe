// Package observability exports mira's traces and metrics over OTLP/HTTP.
//
// Observer plugs into the discovery loop and the engine entries:
//
//	metrics, err := observability.NewMetrics(observability.Meter(), registry.Len)
//	obs := observability.NewObserver(metrics, observability.Tracer())
//	loop := discovery.NewLoop(adapter, registry, build, cfg, discovery.WithObserver(obs))
//
// Every discovery cycle runs inside a discovery.refresh span and is counted
// in mira.discovery.cycles and mira.discovery.duration. Entry checks are
// counted in mira.engine.fetches; mira.engines samples the registry size.
package observability
