package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/mira/discovery"
	dtest "github.com/kbukum/mira/discovery/testutil"
	"github.com/kbukum/mira/engine"
	etest "github.com/kbukum/mira/engine/testutil"
	"github.com/kbukum/mira/logger"
	"github.com/kbukum/mira/observability"
)

type harness struct {
	reader   *sdkmetric.ManualReader
	spans    *tracetest.SpanRecorder
	observer *observability.Observer
	metrics  *observability.Metrics
}

func newHarness(t *testing.T, engines func() int) *harness {
	t.Helper()
	h := &harness{reader: sdkmetric.NewManualReader(), spans: tracetest.NewSpanRecorder()}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})

	m, err := observability.NewMetrics(mp.Meter("test"), engines)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	h.metrics = m
	h.observer = observability.NewObserver(m, tp.Tracer("test"))
	return h
}

func (h *harness) collect(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func hasAttrs(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func counter(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if hasAttrs(dp.Attributes, attrs) {
			total += dp.Value
		}
	}
	return total
}

func TestDiscoveryCyclesAreTracedAndCounted(t *testing.T) {
	registry := engine.NewRegistry()
	h := newHarness(t, registry.Len)

	cfg := discovery.Config{Mode: discovery.ModeConsul, Interval: time.Hour}
	cfg.ApplyDefaults()
	ecfg := engine.Config{UpdateInterval: time.Hour}
	ecfg.ApplyDefaults()
	adapter := dtest.NewFakeAdapter()
	loop := discovery.NewLoop(adapter, registry, discovery.NewEntryBuilder(ecfg, etest.NewFakeFetcher()), cfg,
		discovery.WithObserver(h.observer))
	t.Cleanup(loop.Stop)

	adapter.SetRecords(
		discovery.Record{Key: "a", Addresses: []string{"10.0.0.1"}},
		discovery.Record{Key: "b", Addresses: []string{"10.0.0.2"}},
	)
	require.NoError(t, loop.Refresh(context.Background()))
	adapter.SetError(errors.New("consul agent unreachable"))
	require.Error(t, loop.Refresh(context.Background()))

	spans := h.spans.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, observability.SpanDiscoveryRefresh, spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int(observability.AttrAdded, 2))
	assert.Contains(t, spans[0].Attributes(), attribute.String(observability.AttrMode, discovery.ModeConsul))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1, "the failure is recorded as an exception event")

	got := h.collect(t)
	cycles := got[observability.MetricCycles]
	assert.EqualValues(t, 1, counter(t, cycles, attribute.String(observability.AttrResult, observability.ResultSuccess)))
	assert.EqualValues(t, 1, counter(t, cycles, attribute.String(observability.AttrResult, observability.ResultFailure)))

	hist, ok := got[observability.MetricDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 2, hist.DataPoints[0].Count)

	gauge, ok := got[observability.MetricEngines].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.EqualValues(t, 2, gauge.DataPoints[0].Value, "a failed cycle keeps the known engines")
}

func TestCheckOutcomesAreCounted(t *testing.T) {
	h := newHarness(t, nil)

	f := etest.NewFakeFetcher()
	f.Respond("/healthcheck", map[string]any{"started": true}, nil)
	f.Respond("/metrics", nil, errors.New("connection refused"))

	cfg := engine.Config{UpdateInterval: 5 * time.Millisecond}
	cfg.ApplyDefaults()
	e := engine.NewEntry(engine.Info{Key: "e1", Address: "10.0.0.1"}, cfg, f, engine.WithObserver(h.observer))
	e.StartStatusChecks()
	t.Cleanup(e.StopStatusChecks)

	require.Eventually(t, func() bool {
		fetches, ok := h.collect(t)[observability.MetricFetches]
		if !ok {
			return false
		}
		return counter(t, fetches, attribute.String(observability.AttrKind, "health")) >= 2 &&
			counter(t, fetches, attribute.String(observability.AttrKind, "metrics")) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	fetches := h.collect(t)[observability.MetricFetches]
	assert.Zero(t, counter(t, fetches,
		attribute.String(observability.AttrKind, "health"),
		attribute.String(observability.AttrResult, observability.ResultFailure)))
	assert.Zero(t, counter(t, fetches,
		attribute.String(observability.AttrKind, "metrics"),
		attribute.String(observability.AttrResult, observability.ResultSuccess)))
	_, hasGauge := h.collect(t)[observability.MetricEngines]
	assert.False(t, hasGauge)
}

func TestConfigDefaults(t *testing.T) {
	var cfg observability.Config
	cfg.ApplyDefaults()
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.NoError(t, cfg.Validate())

	cfg.SampleRate = 1.5
	assert.ErrorContains(t, cfg.Validate(), "sample_rate")
}

func TestDisabledComponent(t *testing.T) {
	c := observability.NewComponent(observability.Config{}, observability.ServiceInfo{Name: "mira"}, logger.Nop())
	require.NoError(t, c.Start(context.Background()))
	h := c.Health(context.Background())
	assert.Equal(t, "disabled", h.Message)
	assert.Equal(t, "disabled", c.Describe().Details)
	assert.NoError(t, c.Stop(context.Background()))
}

func TestEnabledComponentStartsAndStops(t *testing.T) {
	cfg := observability.Config{Enabled: true, Insecure: true, Endpoint: "127.0.0.1:1"}
	cfg.ApplyDefaults()
	c := observability.NewComponent(cfg, observability.ServiceInfo{Name: "mira", Version: "dev"}, logger.Nop())
	require.NoError(t, c.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// Nothing listens on the endpoint; shutdown may report the failed flush.
	_ = c.Stop(ctx)
}
