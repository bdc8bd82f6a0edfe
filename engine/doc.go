// Package engine tracks discovered engine instances.
//
// An Entry owns one instance: its identity, the address and ports used to
// reach it, and two independent polling cycles that fetch its health and
// metrics endpoints and derive a Status. A Registry is the keyed, ordered
// collection of entries that the discovery loop reconciles against each new
// orchestrator snapshot.
package engine
