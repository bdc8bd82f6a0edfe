// Package discovery keeps the engine registry in step with an orchestrator.
//
// An Adapter lists the engines one backend currently runs. The Loop calls it
// on a fixed, non-overlapping schedule, adds entries for new keys, removes
// entries whose keys disappeared and leaves the rest untouched. The outcome
// of the most recent attempt is sticky: while it is a failure, List fails
// with that error even if the registry still holds entries.
//
// # Backends
//
// Backends register themselves by mode name from their init functions:
//
//   - discovery/docker: containers on the local Docker host ("local")
//   - discovery/swarm: running Docker Swarm tasks ("swarm")
//   - discovery/kubernetes: pods selected by label ("kubernetes")
//   - discovery/dns: A records of one hostname ("dns")
//   - discovery/consul: passing Consul service instances ("consul")
//   - discovery/static: a configured endpoint list ("none", "static")
package discovery
