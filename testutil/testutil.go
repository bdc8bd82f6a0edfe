package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/mira/component"
)

// TestComponent is a component whose state can be reset between test cases.
type TestComponent interface {
	component.Component
	Reset(ctx context.Context) error
}

// Start starts c and registers its Stop as a test cleanup.
func Start(t testing.TB, c TestComponent) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}

// Reset resets every component in cs, failing the test on the first error.
func Reset(t testing.TB, cs ...TestComponent) {
	t.Helper()
	for _, c := range cs {
		if err := c.Reset(context.Background()); err != nil {
			t.Fatalf("reset %s: %v", c.Name(), err)
		}
	}
}
