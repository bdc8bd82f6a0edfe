package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Instrument names.
const (
	MetricCycles   = "mira.discovery.cycles"
	MetricDuration = "mira.discovery.duration"
	MetricFetches  = "mira.engine.fetches"
	MetricEngines  = "mira.engines"
)

// Values of the result attribute.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config, svc ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns mira's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(ScopeName)
}

// Metrics holds the discovery and polling instruments.
type Metrics struct {
	cycles   metric.Int64Counter
	duration metric.Float64Histogram
	fetches  metric.Int64Counter
	reg      metric.Registration
}

// NewMetrics creates the instruments on meter. engines is sampled by the
// mira.engines gauge at every collection; nil leaves the gauge out.
func NewMetrics(meter metric.Meter, engines func() int) (*Metrics, error) {
	cycles, err := meter.Int64Counter(MetricCycles,
		metric.WithDescription("Discovery cycles by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCycles, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Duration of discovery cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	fetches, err := meter.Int64Counter(MetricFetches,
		metric.WithDescription("Engine health and metrics fetches by kind and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricFetches, err)
	}

	m := &Metrics{cycles: cycles, duration: duration, fetches: fetches}
	if engines == nil {
		return m, nil
	}

	gauge, err := meter.Int64ObservableGauge(MetricEngines,
		metric.WithDescription("Engines currently tracked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricEngines, err)
	}
	m.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(engines()))
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("registering %s callback: %w", MetricEngines, err)
	}
	return m, nil
}

// RecordCycle counts a discovery cycle and records its duration.
func (m *Metrics) RecordCycle(ctx context.Context, mode string, err error, d time.Duration) {
	m.cycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrResult, result(err)),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrMode, mode),
	))
}

// RecordFetch counts one health or metrics fetch.
func (m *Metrics) RecordFetch(ctx context.Context, kind string, err error) {
	m.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKind, kind),
		attribute.String(AttrResult, result(err)),
	))
}

// Close unregisters the gauge callback.
func (m *Metrics) Close() error {
	if m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
