// Package bootstrap runs a service built from components. NewApp validates
// the typed config and initializes logging. Run starts the registered
// components in order, prints a startup summary, waits for SIGINT or
// SIGTERM and stops everything in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(discoveryComponent)
//	app.RegisterComponent(serverComponent)
//	app.Hook(bootstrap.Stopping, "close-clients", closeClients)
//	return app.Run(ctx)
package bootstrap
