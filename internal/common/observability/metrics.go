package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability carries the OTel meter and tracer used around workspace
// connections and skill invocations. The zero value is safe to use.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	connCounter    otelmetric.Int64Counter
	connDuration   otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	connCounter, _ := meter.Int64Counter(
		"workspace.connections",
		otelmetric.WithDescription("Number of workspace connections opened"),
	)

	connDuration, _ := meter.Float64Histogram(
		"workspace.connection.duration",
		otelmetric.WithDescription("Time a workspace connection stayed open"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		tracer:        otel.Tracer(serviceName),
		connCounter:   connCounter,
		connDuration:  connDuration,
	}
}

// RecordConnection counts one connection attempt with its outcome.
func (o *Observability) RecordConnection(ctx context.Context, workspace, status string) {
	if o == nil || o.connCounter == nil {
		return
	}
	o.connCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("workspace", workspace),
		attribute.String("status", status),
	))
}

// RecordConnectionDuration records how long a connection was held.
func (o *Observability) RecordConnectionDuration(ctx context.Context, workspace string, duration time.Duration, status string) {
	if o == nil || o.connDuration == nil {
		return
	}
	o.connDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("workspace", workspace),
		attribute.String("status", status),
	))
}

// StartSpan opens a span named after the invocation. Without a configured
// tracer it returns a non-recording span.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracerOrNoop()
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) tracerOrNoop() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("noop")
	}
	return o.tracer
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		o.tracerProvider.Shutdown(ctx)
	}
}
