package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTraced_RecordsFailure(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var inner string
	err := Traced(context.Background(), "test", "store.receive", func(ctx context.Context) error {
		inner = TraceID(ctx)
		return errors.New("boom")
	}, attribute.String("locationId", "WH1_1_A_2_item-a"))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "store.receive", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), inner)
	assert.Empty(t, TraceID(context.Background()))
}

func TestInitialize_Disabled(t *testing.T) {
	p, err := Initialize(context.Background(), DefaultConfig("stock-ledger"))
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}
