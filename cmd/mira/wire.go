package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/mira/bootstrap"
	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/events"
	"github.com/kbukum/mira/fetcher"
	"github.com/kbukum/mira/observability"
	"github.com/kbukum/mira/server"

	// discovery backends
	_ "github.com/kbukum/mira/discovery/consul"
	_ "github.com/kbukum/mira/discovery/dns"
	_ "github.com/kbukum/mira/discovery/docker"
	_ "github.com/kbukum/mira/discovery/kubernetes"
	_ "github.com/kbukum/mira/discovery/static"
	_ "github.com/kbukum/mira/discovery/swarm"
)

// wire builds the service graph and registers its components. Start order
// is observability, events, discovery, HTTP server; stop order is the
// reverse, so the API goes away before the registry is cleared.
func wire(app *bootstrap.App[*Config]) (*discovery.Loop, error) {
	cfg := app.Cfg
	log := app.Logger

	f, err := fetcher.New(cfg.Fetcher, log)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	adapter, err := discovery.NewAdapter(cfg.Discovery, log)
	if err != nil {
		return nil, fmt.Errorf("discovery adapter: %w", err)
	}

	registry := engine.NewRegistry()
	metrics, err := observability.NewMetrics(observability.Meter(), registry.Len)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	obs := observability.NewObserver(metrics, observability.Tracer())

	if err := app.RegisterComponent(observability.NewComponent(cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     app.Version,
		Environment: cfg.Environment,
	}, log)); err != nil {
		return nil, err
	}

	loopOpts := []discovery.LoopOption{discovery.WithLogger(log), discovery.WithObserver(obs)}
	if cfg.Events.Enabled {
		publisher, err := events.New(cfg.Events, log)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		if err := app.RegisterComponent(publisher); err != nil {
			return nil, err
		}
		loopOpts = append(loopOpts, discovery.WithObserver(publisher))
	}

	builder := discovery.NewEntryBuilder(cfg.Engine, f, engine.WithLogger(log), engine.WithObserver(obs))
	loop := discovery.NewLoop(adapter, registry, builder, cfg.Discovery, loopOpts...)
	if err := app.RegisterComponent(discovery.NewComponent(loop, adapter, cfg.Discovery, log)); err != nil {
		return nil, err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	srv.RegisterEngineRoutes(loop)
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return nil, err
	}

	app.Hook(bootstrap.Stopping, "close-clients", func(context.Context) error {
		return errors.Join(metrics.Close(), f.Close())
	})
	return loop, nil
}
