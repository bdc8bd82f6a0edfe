package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/server"
	"github.com/kbukum/mira/server/endpoint"
	"github.com/kbukum/mira/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const serviceName = "mira-test"

var _ testutil.TestComponent = (*Component)(nil)

// Option configures a Component.
type Option func(*Component)

// WithEngines serves the engine API from lister.
func WithEngines(lister endpoint.EngineLister) Option {
	return func(c *Component) { c.lister = lister }
}

// WithHealth backs the probe endpoints with checker.
func WithHealth(checker endpoint.HealthChecker) Option {
	return func(c *Component) { c.checker = checker }
}

// Component serves a fully wired server.Server, middleware included, from
// an httptest.Server on a random local port.
type Component struct {
	lister  endpoint.EngineLister
	checker endpoint.HealthChecker

	mu  sync.RWMutex
	srv *server.Server
	ts  *httptest.Server
}

// NewComponent builds the server. Routes can be added through GinEngine
// until Start.
func NewComponent(opts ...Option) *Component {
	c := &Component{}
	for _, opt := range opts {
		opt(c)
	}
	c.srv = c.newServer()
	return c
}

func (c *Component) newServer() *server.Server {
	cfg := server.Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	srv := server.New(cfg, logger.Nop())
	srv.RegisterDefaultEndpoints(serviceName, c.checker)
	if c.lister != nil {
		srv.RegisterEngineRoutes(c.lister)
	}
	srv.ApplyMiddleware()
	return srv
}

// GinEngine exposes the router for extra test routes.
func (c *Component) GinEngine() *gin.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.srv.GinEngine()
}

// BaseURL is the server's URL, empty while stopped.
func (c *Component) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ts == nil {
		return ""
	}
	return c.ts.URL
}

// Get issues a GET for path.
func (c *Component) Get(ctx context.Context, path string) (*http.Response, error) {
	base := c.BaseURL()
	if base == "" {
		return nil, errors.New("test server not started")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// GetJSON issues a GET for path and decodes the body into v.
func (c *Component) GetJSON(ctx context.Context, path string, v any) (int, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(v)
}

func (c *Component) Name() string { return "server-test" }

func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts != nil {
		return errors.New("test server already started")
	}
	c.ts = httptest.NewServer(c.srv.Handler())
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts != nil {
		c.ts.Close()
		c.ts = nil
	}
	return nil
}

func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.BaseURL() == "" {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	}
	return h
}

// Reset swaps in a freshly built server, dropping routes added through
// GinEngine. The URL changes.
func (c *Component) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts == nil {
		return errors.New("test server not started")
	}
	c.ts.Close()
	c.srv = c.newServer()
	c.ts = httptest.NewServer(c.srv.Handler())
	return nil
}
