package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/testutil"
)

var (
	_ discovery.Adapter      = (*FakeAdapter)(nil)
	_ testutil.TestComponent = (*FakeAdapter)(nil)
)

// FakeAdapter is a discovery.Adapter serving records set by the test.
type FakeAdapter struct {
	mu      sync.Mutex
	records []discovery.Record
	err     error
	calls   int
	started bool
	// block, when set, holds ListEngines until it is closed or ctx ends.
	block chan struct{}
}

// NewFakeAdapter returns an adapter reporting no engines.
func NewFakeAdapter(records ...discovery.Record) *FakeAdapter {
	return &FakeAdapter{records: records}
}

// SetRecords replaces the listed records and clears any error.
func (f *FakeAdapter) SetRecords(records ...discovery.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append([]discovery.Record(nil), records...)
	f.err = nil
}

// SetError makes every following ListEngines call fail with err.
func (f *FakeAdapter) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Block makes ListEngines wait until the returned release func is called.
func (f *FakeAdapter) Block() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.block = nil
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how often ListEngines was called.
func (f *FakeAdapter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeAdapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]discovery.Record(nil), f.records...), nil
}

// --- component.Component ---

func (f *FakeAdapter) Name() string { return "discovery-fake" }

func (f *FakeAdapter) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *FakeAdapter) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

func (f *FakeAdapter) Health(_ context.Context) component.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return component.Health{Name: f.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	if f.err != nil {
		return component.Health{Name: f.Name(), Status: component.StatusDegraded, Message: f.err.Error()}
	}
	return component.Health{Name: f.Name(), Status: component.StatusHealthy}
}

// Reset drops records, error and call count.
func (f *FakeAdapter) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err, f.calls = nil, nil, 0
	return nil
}
