package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/config"
	"github.com/kbukum/mira/logger"
)

// Config is satisfied by any configuration struct embedding
// config.ServiceConfig and defining its own ApplyDefaults and Validate.
type Config interface {
	Service() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// App owns the components of one service process and drives them through
// start, readiness, signal wait and shutdown.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	settings settings
	hooks    map[Stage][]namedHook
}

// NewApp applies defaults to cfg, validates it and builds the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	svc := cfg.Service()
	log := s.log
	if log == nil {
		logger.Init(svc.Logging)
		log = logger.GetGlobalLogger()
	}

	summary := NewSummary(svc.Name, svc.Version)
	summary.SetOutput(s.summary)

	return &App[C]{
		Name:       svc.Name,
		Version:    svc.Version,
		Cfg:        cfg,
		Components: component.NewRegistry(log),
		Logger:     log,
		Summary:    summary,
		settings:   s,
	}, nil
}

// RegisterComponent adds c. Components start in registration order and stop
// in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck returns an error naming every component that is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var errs []error
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		if h.Message != "" {
			errs = append(errs, fmt.Errorf("%s is %s: %s", h.Name, h.Status, h.Message))
		} else {
			errs = append(errs, fmt.Errorf("%s is %s", h.Name, h.Status))
		}
	}
	return errors.Join(errs...)
}

// Run starts the application, blocks until a shutdown signal arrives or ctx
// ends, then shuts down. A failed start still stops whatever did start.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		if stopErr := a.Shutdown(); stopErr != nil {
			a.Logger.Error("Cleanup after failed start", logger.ErrorFields("shutdown", stopErr))
		}
		return err
	}
	a.Wait(ctx)
	return a.Shutdown()
}

// Start starts every component, runs the Started hooks, checks readiness,
// runs the Ready hooks and prints the summary. An unhealthy component is
// logged, not fatal: discovery backends are often still coming up.
func (a *App[C]) Start(ctx context.Context) error {
	begin := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return err
	}
	if err := a.runStage(ctx, Started); err != nil {
		return err
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Not every component is healthy yet", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := a.runStage(ctx, Ready); err != nil {
		return err
	}

	a.Summary.SetStartupDuration(time.Since(begin))
	a.DisplaySummary(ctx)
	a.Logger.Info("Application ready")
	return nil
}

// DisplaySummary prints the startup summary, collecting infrastructure,
// routes and live health from the component registry.
func (a *App[C]) DisplaySummary(ctx context.Context) {
	a.Summary.Collect(a.Components)
	a.Summary.Display(ctx, a.Components)
}

// Wait blocks until one of the configured signals arrives or ctx ends.
func (a *App[C]) Wait(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, a.settings.signals...)
	defer stop()
	<-sigCtx.Done()

	if ctx.Err() != nil {
		a.Logger.Info("Context done, shutting down")
		return
	}
	a.Logger.Info("Shutdown signal received")
}

// Shutdown runs the Stopping hooks, then stops the components in reverse
// order, all within the shutdown timeout. Every error is returned.
func (a *App[C]) Shutdown() error {
	a.Logger.Info("Shutting down", logger.Fields("timeout", a.settings.shutdownTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.settings.shutdownTimeout)
	defer cancel()

	err := errors.Join(a.runStage(ctx, Stopping), a.Components.StopAll(ctx))
	if err != nil {
		a.Logger.Error("Shutdown finished with errors", logger.ErrorFields("shutdown", err))
		return err
	}
	a.Logger.Info("Shutdown complete")
	return nil
}
