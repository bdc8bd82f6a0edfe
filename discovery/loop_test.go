package discovery_test

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

	"github.com/kbukum/mira/discovery"
	dtest "github.com/kbukum/mira/discovery/testutil"
	"github.com/kbukum/mira/engine"
	etest "github.com/kbukum/mira/engine/testutil"
	apperrors "github.com/kbukum/mira/errors"
	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/query"
)

var errBackendDown = errors.New("cannot connect to the Docker daemon")

func record(key, addr string, labels map[string]string) discovery.Record {
	return discovery.Record{Key: key, Addresses: []string{addr}, Labels: labels, Backend: "local"}
}

type fixture struct {
	adapter *dtest.FakeAdapter
	fetcher *etest.FakeFetcher
	loop    *discovery.Loop
}

func newFixture(t *testing.T, interval time.Duration, opts ...discovery.LoopOption) *fixture {
	t.Helper()
	cfg := discovery.Config{Mode: discovery.ModeLocal, Interval: interval}
	cfg.ApplyDefaults()
	ecfg := engine.Config{UpdateInterval: time.Hour}
	ecfg.ApplyDefaults()

	fx := &fixture{adapter: dtest.NewFakeAdapter(), fetcher: etest.NewFakeFetcher()}
	fx.loop = discovery.NewLoop(fx.adapter, engine.NewRegistry(),
		discovery.NewEntryBuilder(ecfg, fx.fetcher), cfg, opts...)
	t.Cleanup(fx.loop.Stop)
	return fx
}

func listKeys(t *testing.T, l *discovery.Loop, sets ...query.Constraints) []string {
	t.Helper()
	entries, err := l.List(sets...)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key())
	}
	return out
}

func TestListBeforeFirstCycleFails(t *testing.T) {
	fx := newFixture(t, time.Hour)

	_, err := fx.loop.List()
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrNotStarted)
	assert.True(t, apperrors.IsAppError(err))
	assert.False(t, fx.loop.State().Success)
}

func TestRefreshReconciles(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil), record("b", "10.0.0.2", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	assert.Equal(t, []string{"a", "b"}, listKeys(t, fx.loop))

	a, ok := fx.loop.Registry().Get("a")
	require.True(t, ok)
	assert.True(t, a.Running())

	fx.adapter.SetRecords(record("a", "10.0.0.1", nil), record("c", "10.0.0.3", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	assert.Equal(t, []string{"a", "c"}, listKeys(t, fx.loop))

	again, _ := fx.loop.Registry().Get("a")
	assert.Same(t, a, again, "a surviving engine keeps its entry")
}

func TestRemovedEntriesStopPolling(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	a, _ := fx.loop.Registry().Get("a")

	fx.adapter.SetRecords()
	require.NoError(t, fx.loop.Refresh(context.Background()))
	assert.False(t, a.Running())
	assert.Empty(t, listKeys(t, fx.loop))
}

func TestFailureIsStickyUntilNextSuccess(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))

	fx.adapter.SetError(errBackendDown)
	err := fx.loop.Refresh(context.Background())
	require.Error(t, err)

	for i := 0; i < 3; i++ {
		_, listErr := fx.loop.List()
		require.Error(t, listErr)
		assert.ErrorIs(t, listErr, errBackendDown)
		appErr, ok := apperrors.As(listErr)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeDiscoveryUnavailable, appErr.Code)
	}
	assert.True(t, fx.loop.Registry().Has("a"), "a failed cycle leaves the registry untouched")

	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	assert.Equal(t, []string{"a"}, listKeys(t, fx.loop))
}

func TestSkipsInvalidRecords(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(
		record("", "10.0.0.9", nil),
		record("a", "10.0.0.1", nil),
		record("a", "10.0.0.2", nil),
	)
	require.NoError(t, fx.loop.Refresh(context.Background()))

	entries, err := fx.loop.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1", entries[0].Address())
}

func TestLoopLogsAsDiscoveryComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: logger.FormatJSON}, "mira", buf)
	fx := newFixture(t, time.Hour, discovery.WithLogger(log))
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil), record("a", "10.0.0.2", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "ignoring duplicate engine key", line["message"])
	assert.Equal(t, "discovery", line[logger.FieldComponent])
	assert.Equal(t, "a", line[logger.FieldEngineKey])
}

func TestListWithConstraints(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(
		record("a", "10.0.0.1", map[string]string{"role": "query", "zone": "eu"}),
		record("b", "10.0.0.2", map[string]string{"role": "reload", "zone": "eu"}),
		record("c", "10.0.0.3", map[string]string{"role": "query", "zone": "us"}),
	)
	require.NoError(t, fx.loop.Refresh(context.Background()))

	assert.Equal(t, []string{"a", "c"}, listKeys(t, fx.loop, query.Constraints{"role": "query"}))
	assert.Equal(t, []string{"b"}, listKeys(t, fx.loop,
		query.Constraints{"role": "gpu"}, query.Constraints{"role": "reload"}))
	assert.Empty(t, listKeys(t, fx.loop, query.Constraints{"zone": "ap"}))
}

func TestStartRunsFirstCycleSynchronously(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))

	require.NoError(t, fx.loop.Start(context.Background()))
	assert.Equal(t, 1, fx.adapter.Calls())
	assert.Equal(t, []string{"a"}, listKeys(t, fx.loop))
	assert.ErrorIs(t, fx.loop.Start(context.Background()), discovery.ErrAlreadyRunning)
}

func TestStartWithFailingBackend(t *testing.T) {
	fx := newFixture(t, 10*time.Millisecond)
	fx.adapter.SetError(errBackendDown)

	require.NoError(t, fx.loop.Start(context.Background()))
	_, err := fx.loop.List()
	assert.ErrorIs(t, err, errBackendDown)

	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))
	require.Eventually(t, func() bool {
		_, err := fx.loop.List()
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, listKeys(t, fx.loop))
}

func TestStopEndsScheduleAndClearsRegistry(t *testing.T) {
	fx := newFixture(t, 5*time.Millisecond)
	fx.adapter.SetRecords(record("a", "10.0.0.1", nil))
	require.NoError(t, fx.loop.Start(context.Background()))
	require.Eventually(t, func() bool { return fx.adapter.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a, _ := fx.loop.Registry().Get("a")
	fx.loop.Stop()
	calls := fx.adapter.Calls()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, calls, fx.adapter.Calls())
	assert.Zero(t, fx.loop.Registry().Len())
	assert.False(t, a.Running())

	require.NoError(t, fx.loop.Start(context.Background()), "a stopped loop can be started again")
}

func TestStopWaitsForRunningCycle(t *testing.T) {
	fx := newFixture(t, 5*time.Millisecond)
	require.NoError(t, fx.loop.Start(context.Background()))

	release := fx.adapter.Block()
	defer release()
	calls := fx.adapter.Calls()
	require.Eventually(t, func() bool { return fx.adapter.Calls() > calls }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		fx.loop.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the blocked cycle")
	}
}

type cycleRecorder struct {
	mu      sync.Mutex
	results []discovery.CycleResult
}

func (r *cycleRecorder) CycleStarted(ctx context.Context) context.Context { return ctx }

func (r *cycleRecorder) CycleFinished(_ context.Context, res discovery.CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func TestObserverSeesCycles(t *testing.T) {
	rec := &cycleRecorder{}
	fx := newFixture(t, time.Hour, discovery.WithObserver(rec))

	fx.adapter.SetRecords(record("a", "10.0.0.1", nil), record("b", "10.0.0.2", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	fx.adapter.SetRecords(record("b", "10.0.0.2", nil))
	require.NoError(t, fx.loop.Refresh(context.Background()))
	fx.adapter.SetError(errBackendDown)
	require.Error(t, fx.loop.Refresh(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.results, 3)
	assert.Len(t, rec.results[0].Added, 2)
	assert.Equal(t, 2, rec.results[0].Total)
	assert.Len(t, rec.results[1].Removed, 1)
	assert.Equal(t, "a", rec.results[1].Removed[0].Key())
	assert.Error(t, rec.results[2].Err)
	assert.Equal(t, discovery.ModeLocal, rec.results[2].Mode)
}
