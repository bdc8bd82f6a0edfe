package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/mira/engine"
	etest "github.com/kbukum/mira/engine/testutil"
	"github.com/kbukum/mira/logger"
)

const (
	healthPath  = "/healthcheck"
	metricsPath = "/metrics"
	waitFor     = 2 * time.Second
	tick        = 5 * time.Millisecond
)

var errDown = errors.New("connection refused")

func testConfig(interval time.Duration) engine.Config {
	cfg := engine.Config{UpdateInterval: interval}
	cfg.ApplyDefaults()
	return cfg
}

func newEntry(t *testing.T, f engine.StatusFetcher, interval time.Duration, labels map[string]string) *engine.Entry {
	t.Helper()
	e := engine.NewEntry(engine.Info{Key: "e1", Address: "10.0.0.1", Labels: labels, Backend: "local"}, testConfig(interval), f)
	t.Cleanup(e.StopStatusChecks)
	return e
}

func TestStatusDerivation(t *testing.T) {
	tests := []struct {
		name       string
		healthErr  error
		metricsErr error
		want       engine.Status
	}{
		{"health and metrics ok", nil, nil, engine.StatusOK},
		{"health fails", errDown, nil, engine.StatusUnhealthy},
		{"health and metrics fail", errDown, errDown, engine.StatusUnhealthy},
		{"metrics fail", nil, errDown, engine.StatusNoMetrics},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := etest.NewFakeFetcher()
			f.Respond(healthPath, map[string]any{"mem": 1.0}, tc.healthErr)
			f.Respond(metricsPath, map[string]any{"sessions": 2.0}, tc.metricsErr)

			e := newEntry(t, f, tick, nil)
			e.StartStatusChecks()

			require.Eventually(t, func() bool {
				return f.Calls(healthPath) >= 1 && f.Calls(metricsPath) >= 1 && e.Status() == tc.want
			}, waitFor, tick)
		})
	}
}

func TestPendingUntilFirstInterval(t *testing.T) {
	f := etest.NewFakeFetcher()
	e := newEntry(t, f, time.Hour, nil)
	assert.Equal(t, engine.StatusPending, e.Status())

	e.StartStatusChecks()
	assert.True(t, e.Running())
	assert.Equal(t, engine.StatusPending, e.Status())
	assert.Zero(t, f.TotalCalls())
	assert.Nil(t, e.Health())
	assert.Nil(t, e.Metrics())
}

func TestStopImmediatelyAfterStartNeverFetches(t *testing.T) {
	f := etest.NewFakeFetcher()
	e := newEntry(t, f, 20*time.Millisecond, nil)

	e.StartStatusChecks()
	e.StopStatusChecks()
	e.StopStatusChecks()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.TotalCalls())
	assert.False(t, e.Running())
}

func TestRestartReplacesSchedule(t *testing.T) {
	f := etest.NewFakeFetcher()
	e := newEntry(t, f, 20*time.Millisecond, nil)

	e.StartStatusChecks()
	e.StartStatusChecks()
	e.StopStatusChecks()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.TotalCalls(), "timers of the replaced schedule must not fire")
}

func TestInFlightFetchIsDiscardedAfterStop(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{"ok": true}, nil)
	f.Respond(metricsPath, map[string]any{"ok": true}, nil)
	releaseHealth := f.Gate(healthPath)
	releaseMetrics := f.Gate(metricsPath)

	e := newEntry(t, f, tick, nil)
	e.StartStatusChecks()
	require.Eventually(t, func() bool {
		return f.Calls(healthPath) == 1 && f.Calls(metricsPath) == 1
	}, waitFor, tick)

	e.StopStatusChecks()
	releaseHealth()
	releaseMetrics()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, engine.StatusPending, e.Status())
	assert.Nil(t, e.Health())
	assert.Equal(t, 1, f.Calls(healthPath), "a discarded fetch must not reschedule")
	assert.Equal(t, 1, f.Calls(metricsPath))
}

func TestRestartDiscardsStaleResult(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	blocked := make(chan struct{})
	release := make(chan struct{})
	f := engine.FetcherFunc(func(ctx context.Context, host string, port int, path string) (any, error) {
		if path != healthPath {
			return map[string]any{}, nil
		}
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(blocked)
			<-release
			return map[string]any{"stale": true}, nil
		}
		return map[string]any{"fresh": true}, nil
	})

	e := newEntry(t, f, tick, nil)
	e.StartStatusChecks()
	<-blocked

	e.StartStatusChecks()
	require.Eventually(t, func() bool {
		_, ok := e.Properties().Get("fresh")
		return ok
	}, waitFor, tick)

	close(release)
	time.Sleep(50 * time.Millisecond)

	_, stale := e.Properties().Get("stale")
	assert.False(t, stale, "result of the replaced schedule must be dropped")
	assert.Equal(t, map[string]any{"fresh": true}, e.Health())
}

func TestCyclesFailIndependently(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{"ok": true}, nil)
	release := f.Gate(metricsPath)
	t.Cleanup(release)

	e := newEntry(t, f, tick, nil)
	e.StartStatusChecks()

	require.Eventually(t, func() bool { return f.Calls(healthPath) >= 3 }, waitFor, tick)
	assert.Equal(t, 1, f.Calls(metricsPath), "a stuck metrics fetch must not delay health checks")
	assert.Equal(t, engine.StatusOK, e.Status())
}

func TestPollingContinuesAfterFailure(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, nil, errDown)
	f.Respond(metricsPath, map[string]any{}, nil)

	e := newEntry(t, f, tick, nil)
	e.StartStatusChecks()
	require.Eventually(t, func() bool {
		return f.Calls(healthPath) >= 3 && e.Status() == engine.StatusUnhealthy
	}, waitFor, tick)

	f.Respond(healthPath, map[string]any{"up": true}, nil)
	require.Eventually(t, func() bool { return e.Status() == engine.StatusOK }, waitFor, tick)
	assert.Equal(t, map[string]any{"up": true}, e.Health())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEntryLogsAsEngineComponent(t *testing.T) {
	out := &lockedBuffer{}
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: logger.FormatJSON}, "mira", out)
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{}, nil)
	f.Respond(metricsPath, map[string]any{}, nil)

	e := engine.NewEntry(engine.Info{Key: "e1", Address: "10.0.0.1", Backend: "local"}, testConfig(tick), f, engine.WithLogger(log))
	t.Cleanup(e.StopStatusChecks)
	e.StartStatusChecks()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("engine status changed"))
	}, waitFor, tick)
	assert.Contains(t, out.String(), `"component":"engine"`)
}

func TestFailedFetchClearsPayload(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{"up": true}, nil)
	f.Respond(metricsPath, map[string]any{}, nil)

	e := newEntry(t, f, tick, nil)
	e.StartStatusChecks()
	require.Eventually(t, func() bool { return e.Health() != nil }, waitFor, tick)

	f.Respond(healthPath, nil, errDown)
	require.Eventually(t, func() bool {
		return e.Status() == engine.StatusUnhealthy && e.Health() == nil
	}, waitFor, tick)
	_, ok := e.Properties().Get("up")
	assert.False(t, ok)
}

func TestPropertiesMergeLabelsFirst(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{
		"role": "health-role",
		"mem":  map[string]any{"free": 10.0, "total": 20.0},
	}, nil)
	f.Respond(metricsPath, map[string]any{"sessions": map[string]any{"active": 3.0}}, nil)

	e := newEntry(t, f, tick, map[string]string{"role": "query", "mem.free": "label"})
	e.StartStatusChecks()
	require.Eventually(t, func() bool {
		_, ok := e.Properties().Get("sessions.active")
		return ok && e.Status() == engine.StatusOK
	}, waitFor, tick)

	p := e.Properties()
	got := p.Map()
	assert.Equal(t, "query", got["role"])
	assert.Equal(t, "label", got["mem.free"])
	assert.Equal(t, 20.0, got["mem.total"])
	assert.Equal(t, 3.0, got["sessions.active"])
	assert.Equal(t, []string{"mem.free", "role"}, p.Keys()[:2])
}

func TestArrayMetricsAreNotFlattened(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{}, nil)
	f.Respond(metricsPath, []any{map[string]any{"name": "qix_active_sessions"}}, nil)

	e := newEntry(t, f, tick, map[string]string{"zone": "a"})
	e.StartStatusChecks()
	require.Eventually(t, func() bool { return e.Metrics() != nil }, waitFor, tick)
	assert.Equal(t, []string{"zone"}, e.Properties().Keys())
}

func TestFetchTargetsEnginePorts(t *testing.T) {
	type call struct {
		host string
		port int
		path string
	}
	var mu sync.Mutex
	var calls []call
	f := engine.FetcherFunc(func(ctx context.Context, host string, port int, path string) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, call{host, port, path})
		return map[string]any{}, nil
	})

	e := newEntry(t, f, tick, map[string]string{
		"qix-engine-api-port":     "19076",
		"qix-engine-metrics-port": "19090",
	})
	e.StartStatusChecks()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) >= 2
	}, waitFor, tick)
	e.StopStatusChecks()

	mu.Lock()
	defer mu.Unlock()
	for _, c := range calls {
		assert.Equal(t, "10.0.0.1", c.host)
		switch c.path {
		case healthPath:
			assert.Equal(t, 19076, c.port)
		case metricsPath:
			assert.Equal(t, 19090, c.port)
		default:
			t.Fatalf("unexpected path %s", c.path)
		}
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	checks map[engine.Check]int
}

func (o *recordingObserver) CheckCompleted(_ context.Context, check engine.Check, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checks[check]++
}

func (o *recordingObserver) count(check engine.Check) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checks[check]
}

func TestObserverSeesAppliedChecks(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{}, nil)
	f.Respond(metricsPath, nil, errDown)
	obs := &recordingObserver{checks: map[engine.Check]int{}}

	e := engine.NewEntry(engine.Info{Key: "e1", Address: "h"}, testConfig(tick), f, engine.WithObserver(obs))
	t.Cleanup(e.StopStatusChecks)
	e.StartStatusChecks()

	require.Eventually(t, func() bool {
		return obs.count(engine.CheckHealth) >= 1 && obs.count(engine.CheckMetrics) >= 1
	}, waitFor, tick)
}

func TestViewJSON(t *testing.T) {
	f := etest.NewFakeFetcher()
	f.Respond(healthPath, map[string]any{"up": true}, nil)
	f.Respond(metricsPath, map[string]any{"sessions": 1.0}, nil)

	e := engine.NewEntry(engine.Info{
		Key:     "c1",
		Address: "172.17.0.2",
		Backend: "local",
		Raw:     map[string]any{"Id": "c1"},
	}, testConfig(tick), f)
	t.Cleanup(e.StopStatusChecks)
	e.StartStatusChecks()
	require.Eventually(t, func() bool { return e.Status() == engine.StatusOK }, waitFor, tick)
	e.StopStatusChecks()

	full, err := json.Marshal(e.View(false))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"key": "c1",
		"engine": {
			"ip": "172.17.0.2", "port": 9076, "metricsPort": 9090, "status": "OK",
			"health": {"up": true}, "metrics": {"sessions": 1}
		},
		"local": {"Id": "c1"}
	}`, string(full))

	condensed, err := json.Marshal(e.View(true))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"key": "c1",
		"engine": {"ip": "172.17.0.2", "port": 9076, "metricsPort": 9090, "status": "OK"}
	}`, string(condensed))
}

func TestConfigPorts(t *testing.T) {
	cfg := testConfig(time.Second)
	tests := []struct {
		name        string
		labels      map[string]string
		declared    int
		api, metric int
	}{
		{"defaults", nil, 0, 9076, 9090},
		{"declared port", nil, 8000, 8000, 9090},
		{"labels win", map[string]string{"qix-engine-api-port": "1", "qix-engine-metrics-port": "2"}, 8000, 1, 2},
		{"bad label ignored", map[string]string{"qix-engine-api-port": "http"}, 0, 9076, 9090},
		{"out of range label ignored", map[string]string{"qix-engine-metrics-port": "70000"}, 0, 9076, 9090},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api, metrics := cfg.Ports(tc.labels, tc.declared)
			assert.Equal(t, tc.api, api)
			assert.Equal(t, tc.metric, metrics)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg engine.Config
	cfg.ApplyDefaults()
	assert.Equal(t, 10*time.Second, cfg.UpdateInterval)
	assert.Equal(t, "/healthcheck", cfg.HealthPath)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, (&engine.Config{}).Validate())
}
