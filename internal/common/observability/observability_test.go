package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestZeroValueIsUsable(t *testing.T) {
	var o *Observability
	ctx := context.Background()

	o.RecordConnection(ctx, "Sales", "success")
	o.RecordConnectionDuration(ctx, "Sales", time.Second, "success")
	_, span := o.StartSpan(ctx, "GetTableSchema")
	span.End()
	o.Shutdown()

	empty := &Observability{}
	empty.RecordConnection(ctx, "Sales", "error")
	empty.Shutdown()
}

func TestStartSpanRecordsAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o := &Observability{tracerProvider: provider, tracer: provider.Tracer("test")}

	_, span := o.StartSpan(context.Background(), "AlterColumnType", attribute.String("dataset", "Sales"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "AlterColumnType", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("dataset", "Sales"))
}

func TestEnableTracingRequiresEndpoint(t *testing.T) {
	o := &Observability{}
	err := o.EnableTracing(context.Background(), TracingOptions{ServiceName: "svc"})
	assert.Error(t, err)
}
