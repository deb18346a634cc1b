package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	traceparentKey = "traceparent"
	tracestateKey  = "tracestate"
)

// TraceContext is the W3C trace context in a form that can be stored in a database row and
// restored later, for example by an outbox relay.
type TraceContext struct {
	Parent string
	State  string
}

// CurrentTraceContext captures the trace context of ctx using the global propagator.
func CurrentTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Parent: carrier[traceparentKey], State: carrier[tracestateKey]}
}

func (tc TraceContext) IsZero() bool {
	return tc.Parent == "" && tc.State == ""
}

// Into returns ctx carrying tc as its remote parent span context.
func (tc TraceContext) Into(ctx context.Context) context.Context {
	if tc.IsZero() {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		traceparentKey: tc.Parent,
		tracestateKey:  tc.State,
	})
}
