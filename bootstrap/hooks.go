package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Stage is a point in the application lifecycle where hooks run.
type Stage int

const (
	// Started runs once every component has started.
	Started Stage = iota
	// Ready runs after the readiness check, right before the summary.
	Ready
	// Stopping runs at shutdown, before components are stopped.
	Stopping
)

func (s Stage) String() string {
	switch s {
	case Started:
		return "started"
	case Ready:
		return "ready"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Hook registers fn under name to run at stage. Hooks of a stage run in
// registration order.
func (a *App[C]) Hook(stage Stage, name string, fn Hook) {
	if a.hooks == nil {
		a.hooks = make(map[Stage][]namedHook)
	}
	a.hooks[stage] = append(a.hooks[stage], namedHook{name: name, fn: fn})
}

// runStage runs the hooks of stage. Startup stages stop at the first
// failure; Stopping runs every hook and joins the errors.
func (a *App[C]) runStage(ctx context.Context, stage Stage) error {
	var errs []error
	for _, h := range a.hooks[stage] {
		err := h.fn(ctx)
		if err == nil {
			continue
		}
		err = fmt.Errorf("%s hook %q: %w", stage, h.name, err)
		if stage != Stopping {
			return err
		}
		a.Logger.Error("Hook failed", map[string]interface{}{
			"stage": stage.String(),
			"hook":  h.name,
			"error": err.Error(),
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
