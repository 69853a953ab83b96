package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingOptions configures the OTLP span exporter.
type TracingOptions struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// EnableTracing installs a batching tracer provider that exports spans over
// OTLP/gRPC and makes it the global provider.
func (o *Observability) EnableTracing(ctx context.Context, opts TracingOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required")
	}

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	o.tracerProvider = provider
	o.tracer = provider.Tracer(opts.ServiceName)
	return nil
}
