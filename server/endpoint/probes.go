package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mira/component"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// ProbeReport is the body of the health, liveness and readiness endpoints.
type ProbeReport struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  time.Time          `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

// Probes serves the health endpoints of one service.
type Probes struct {
	service string
	checker HealthChecker
	now     func() time.Time
}

// NewProbes creates the probe handlers. A nil checker reports healthy.
func NewProbes(service string, checker HealthChecker) *Probes {
	return &Probes{service: service, checker: checker, now: time.Now}
}

func (p *Probes) check(ctx context.Context) ([]component.Health, component.HealthStatus) {
	if p.checker == nil {
		return nil, component.StatusHealthy
	}
	healths := p.checker(ctx)
	return healths, component.Overall(healths)
}

func (p *Probes) respond(c *gin.Context, code int, status string, healths []component.Health) {
	c.JSON(code, ProbeReport{
		Status:     status,
		Service:    p.service,
		Timestamp:  p.now().UTC().Truncate(time.Second),
		Components: healths,
	})
}

// Health lists every component. Degraded still answers 200; a single
// unhealthy component, a failing discovery backend included, answers 503.
func (p *Probes) Health(c *gin.Context) {
	healths, overall := p.check(c.Request.Context())
	code := http.StatusOK
	if overall == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	p.respond(c, code, string(overall), healths)
}

// Alive only confirms the process serves HTTP.
func (p *Probes) Alive(c *gin.Context) {
	p.respond(c, http.StatusOK, "alive", nil)
}

// Ready answers 503 while any component is unhealthy.
func (p *Probes) Ready(c *gin.Context) {
	if _, overall := p.check(c.Request.Context()); overall == component.StatusUnhealthy {
		p.respond(c, http.StatusServiceUnavailable, "not_ready", nil)
		return
	}
	p.respond(c, http.StatusOK, "ready", nil)
}
