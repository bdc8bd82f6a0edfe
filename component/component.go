package component

import "context"

// Component is a part of the process with a start/stop lifecycle, such as
// the HTTP server, the discovery loop or the event producer.
type Component interface {
	// Name is the registry key and must be unique.
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	Name    string // display name, Name() when empty
	Type    string // grouping: "server", "discovery", "kafka"
	Details string // e.g. "mode=swarm interval=10s"
	Port    int
}

// Describable components appear under infrastructure in the summary.
type Describable interface {
	Describe() Description
}

// Route is one registered HTTP route.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
