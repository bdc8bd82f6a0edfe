// Package testutil provides a scripted engine.StatusFetcher for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/engine"
	"github.com/kbukum/mira/testutil"
)

var (
	_ engine.StatusFetcher   = (*FakeFetcher)(nil)
	_ testutil.TestComponent = (*FakeFetcher)(nil)
)

// ErrNoResponse is returned for paths without a scripted response.
var ErrNoResponse = errors.New("fake fetcher: no response scripted")

type response struct {
	payload any
	err     error
}

// FakeFetcher answers fetches from responses scripted per path, optionally
// per host. Every call is counted.
type FakeFetcher struct {
	mu        sync.Mutex
	responses map[string]response
	calls     map[string]int
	gates     map[string]chan struct{}
}

// NewFakeFetcher returns a fetcher failing every path until scripted.
func NewFakeFetcher() *FakeFetcher {
	f := &FakeFetcher{}
	f.init()
	return f
}

func (f *FakeFetcher) init() {
	f.responses = make(map[string]response)
	f.calls = make(map[string]int)
	f.gates = make(map[string]chan struct{})
}

func hostKey(host, path string) string { return host + path }

// Respond scripts the result for path on every host.
func (f *FakeFetcher) Respond(path string, payload any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = response{payload: payload, err: err}
}

// RespondFor scripts the result for path on one host. It takes precedence
// over Respond.
func (f *FakeFetcher) RespondFor(host, path string, payload any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[hostKey(host, path)] = response{payload: payload, err: err}
}

// Gate makes fetches of path wait until release is called. The wait
// ignores context cancellation, like a request already on the wire.
func (f *FakeFetcher) Gate(path string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[path] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns the number of fetches of path across all hosts.
func (f *FakeFetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls returns the number of fetches of any path.
func (f *FakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeFetcher) Fetch(_ context.Context, host string, port int, path string) (any, error) {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gates[path]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.responses[hostKey(host, path)]; ok {
		return r.payload, r.err
	}
	if r, ok := f.responses[path]; ok {
		return r.payload, r.err
	}
	return nil, fmt.Errorf("%w: %s:%d%s", ErrNoResponse, host, port, path)
}

// --- component.Component ---

func (f *FakeFetcher) Name() string { return "fetcher-fake" }
func (f *FakeFetcher) Start(_ context.Context) error { return nil }
func (f *FakeFetcher) Stop(_ context.Context) error { return nil }

func (f *FakeFetcher) Health(_ context.Context) component.Health {
	return component.Health{Name: f.Name(), Status: component.StatusHealthy}
}

// Reset drops scripted responses, gates and call counts.
func (f *FakeFetcher) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	return nil
}
