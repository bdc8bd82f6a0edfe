package discovery

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/logger"
)

// ensure Component satisfies the lifecycle interfaces.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Loop under the component registry.
type Component struct {
	loop    *Loop
	adapter Adapter
	cfg     Config
	log     *logger.Logger
}

// NewComponent wraps loop. adapter is closed on Stop when it implements
// io.Closer.
func NewComponent(loop *Loop, adapter Adapter, cfg Config, log *logger.Logger) *Component {
	return &Component{loop: loop, adapter: adapter, cfg: cfg, log: log.WithComponent("discovery")}
}

func (c *Component) Name() string { return "discovery" }

// Loop returns the wrapped loop.
func (c *Component) Loop() *Loop { return c.loop }

func (c *Component) Start(ctx context.Context) error {
	if err := c.loop.Start(ctx); err != nil {
		return fmt.Errorf("discovery start: %w", err)
	}
	c.log.Info("discovery started", logger.Fields(
		logger.FieldMode, c.cfg.Mode, "interval", c.cfg.Interval.String()))
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.log.Info("discovery stopping")
	c.loop.Stop()
	if closer, ok := c.adapter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Health is unhealthy while the most recent discovery attempt failed.
func (c *Component) Health(ctx context.Context) component.Health {
	st := c.loop.State()
	if !st.Success {
		msg := "discovery failing"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: msg}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d engines", c.loop.Registry().Len()),
	}
}

// Describe returns summary info for the startup display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Engine Discovery",
		Type:    "discovery",
		Details: fmt.Sprintf("mode=%s label=%s interval=%s", c.cfg.Mode, c.cfg.Label, c.cfg.Interval),
	}
}
