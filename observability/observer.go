package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/engine"
)

var (
	_ discovery.Observer = (*Observer)(nil)
	_ engine.Observer    = (*Observer)(nil)
)

// Observer traces discovery cycles and feeds Metrics from cycle and check
// outcomes.
type Observer struct {
	metrics *Metrics
	tracer  trace.Tracer
}

// NewObserver returns an observer recording into metrics and tracer.
func NewObserver(metrics *Metrics, tracer trace.Tracer) *Observer {
	return &Observer{metrics: metrics, tracer: tracer}
}

// CycleStarted opens the discovery.refresh span; the adapter call runs
// inside it.
func (o *Observer) CycleStarted(ctx context.Context) context.Context {
	ctx, _ = o.tracer.Start(ctx, SpanDiscoveryRefresh, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx
}

func (o *Observer) CycleFinished(ctx context.Context, res discovery.CycleResult) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String(AttrMode, res.Mode),
		attribute.Int(AttrAdded, len(res.Added)),
		attribute.Int(AttrRemoved, len(res.Removed)),
		attribute.Int(AttrTotal, res.Total),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	span.End()

	o.metrics.RecordCycle(ctx, res.Mode, res.Err, res.Duration)
}

func (o *Observer) CheckCompleted(ctx context.Context, check engine.Check, err error) {
	o.metrics.RecordFetch(ctx, string(check), err)
}
