package server

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mira/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// probePaths are registered by RegisterDefaultEndpoints and listed after the
// API in the startup summary.
var probePaths = []string{"/health", "/alive", "/ready", "/info", "/version"}

// Component runs a Server under the component registry.
type Component struct {
	srv *Server
}

// NewComponent wraps srv.
func NewComponent(srv *Server) *Component {
	return &Component{srv: srv}
}

func (c *Component) Name() string { return componentName }

func (c *Component) Start(ctx context.Context) error { return c.srv.Start(ctx) }

func (c *Component) Stop(ctx context.Context) error { return c.srv.Stop(ctx) }

// Health is unhealthy until the listener is bound.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	if !c.srv.Listening() {
		h.Status, h.Message = component.StatusUnhealthy, "listener not bound"
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: c.srv.Addr() + " (h2c)",
		Port:    c.srv.config.Port,
	}
}

// Routes lists API routes by path, then the probe routes.
func (c *Component) Routes() []component.Route {
	info := c.srv.engine.Routes()
	slices.SortStableFunc(info, func(a, b gin.RouteInfo) int {
		return cmp.Or(
			cmp.Compare(rank(a.Path), rank(b.Path)),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Method, b.Method),
		)
	})

	routes := make([]component.Route, len(info))
	for i, r := range info {
		routes[i] = component.Route{Method: r.Method, Path: r.Path, Handler: shortHandler(r.Handler)}
	}
	return routes
}

func rank(path string) int {
	if slices.Contains(probePaths, path) {
		return 1
	}
	return 0
}

// shortHandler trims a Gin handler name to package.Func:
// "github.com/kbukum/mira/server/endpoint.Engines.func1" becomes
// "endpoint.Engines" and ".../endpoint.(*Probes).Health-fm" becomes
// "endpoint.Probes.Health".
func shortHandler(name string) string {
	name = strings.TrimSuffix(name, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}
