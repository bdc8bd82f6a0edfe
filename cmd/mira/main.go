// Command mira runs the engine discovery service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/mira/bootstrap"
	"github.com/kbukum/mira/config"
	"github.com/kbukum/mira/version"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mira: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg Config
	if err := config.LoadConfig("mira", &cfg); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	if _, err := wire(app); err != nil {
		return err
	}
	return app.Run(ctx)
}
